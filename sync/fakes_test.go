package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdsync "sync"

	"github.com/charmbracelet/log"

	"github.com/lokesh75way/confirmed-add-in/models"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type fakePrimary struct {
	mu      stdsync.Mutex
	records []models.ExternalContact
	err     error
	calls   int
}

func (f *fakePrimary) ListExternalContacts(_ context.Context, _, _ string) ([]models.ExternalContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.records, f.err
}

type fakeMeetings struct {
	mu           stdsync.Mutex
	meetings     []models.Meeting
	totalRecords int
	details      map[string]*models.InvitationDetail
	pageErr      map[int]error
	listErr      error
	detailErr    map[string]error
	pagesFetched []int
	queries      []models.MeetingQuery
	detailCalls  int
}

func (f *fakeMeetings) ListMeetings(_ context.Context, _ string, q models.MeetingQuery) (*models.MeetingsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pagesFetched = append(f.pagesFetched, q.PageNumber)
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if err := f.pageErr[q.PageNumber]; err != nil {
		return nil, err
	}

	total := f.totalRecords
	if total == 0 {
		total = len(f.meetings)
	}
	start := q.PageNumber * q.ResultsPerPage
	end := min(start+q.ResultsPerPage, len(f.meetings))
	if start >= len(f.meetings) {
		return &models.MeetingsPage{TotalRecords: total}, nil
	}
	return &models.MeetingsPage{Meetings: f.meetings[start:end], TotalRecords: total}, nil
}

func (f *fakeMeetings) GetInvitation(_ context.Context, _ string, id string) (*models.InvitationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	return f.details[id], nil
}

func (f *fakeMeetings) fetchedPages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pagesFetched...)
}

// addMeeting registers a meeting and its detail.
func (f *fakeMeetings) addMeeting(id, first, last, email, phone, created string) {
	if f.details == nil {
		f.details = make(map[string]*models.InvitationDetail)
	}
	f.meetings = append(f.meetings, models.Meeting{ID: id, CreateDate: created})
	f.details[id] = &models.InvitationDetail{
		ID:                   id,
		RecipientFirstName:   first,
		RecipientLastName:    last,
		RecipientEmail:       email,
		RecipientPhoneNumber: phone,
	}
}

// numbered adds n meetings with distinct recipients.
func (f *fakeMeetings) numbered(n int) {
	for i := 0; i < n; i++ {
		f.addMeeting(fmt.Sprintf("m%d", i), "First", fmt.Sprintf("Last%d", i), fmt.Sprintf("p%d@x.com", i), "", "")
	}
}

type fakeCRM struct {
	mu          stdsync.Mutex
	contacts    []models.CRMRecord
	leads       []models.CRMRecord
	contactsErr error
	leadsErr    error
	calls       int
}

func (f *fakeCRM) ListSalesforceContacts(context.Context) ([]models.CRMRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.contacts, f.contactsErr
}

func (f *fakeCRM) ListSalesforceLeads(context.Context) ([]models.CRMRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.leads, f.leadsErr
}

func (f *fakeCRM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errUnavailable = errors.New("service unavailable")
