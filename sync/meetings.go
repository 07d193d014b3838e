// ABOUTME: Meeting-derived contacts pipeline
// ABOUTME: Pages through invitations, fans out detail calls, and extracts recipients
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lokesh75way/confirmed-add-in/models"
)

const (
	DefaultPageSize   = 10
	DefaultMaxPages   = 10
	DefaultSyncLimit  = 20
	DefaultLookback   = 30 * 24 * time.Hour
	sortByCreateDate  = "CreateDate"
	sortDirectionDesc = "DESC"
)

// PageCount returns how many pages to fetch for total records, capped at maxPages.
func PageCount(totalRecords, pageSize, maxPages int) int {
	if totalRecords <= 0 || pageSize <= 0 {
		return 0
	}
	pages := (totalRecords + pageSize - 1) / pageSize
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}
	return pages
}

// FetchMeetingContacts pulls every meeting recipient as a contact.
//
// Page 0 is fetched first to learn the total, the remaining pages are fetched
// concurrently, then one detail call per meeting is issued concurrently.
// A failing page contributes no meetings and a failing detail call skips its
// meeting. Only a failure of page 0 is returned as an error. The result is
// deduplicated by identity key in meeting order.
func FetchMeetingContacts(ctx context.Context, src MeetingSource, token string, pageSize, maxPages int, logger *log.Logger) ([]models.Contact, error) {
	logger = loggerOrDefault(logger)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	first, err := src.ListMeetings(ctx, token, models.MeetingQuery{PageNumber: 0, ResultsPerPage: pageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	totalPages := PageCount(first.TotalRecords, pageSize, maxPages)
	pages := make([][]models.Meeting, max(totalPages, 1))
	pages[0] = first.Meetings

	var g errgroup.Group
	for p := 1; p < totalPages; p++ {
		g.Go(func() error {
			page, err := src.ListMeetings(ctx, token, models.MeetingQuery{PageNumber: p, ResultsPerPage: pageSize})
			if err != nil {
				logger.Warn("failed to fetch meetings page", "page", p, "err", err)
				return nil
			}
			pages[p] = page.Meetings
			return nil
		})
	}
	_ = g.Wait()

	var meetings []models.Meeting
	for _, page := range pages {
		meetings = append(meetings, page...)
	}
	logger.Debug("fetched meetings", "total_records", first.TotalRecords, "pages", totalPages, "meetings", len(meetings))

	details, errs := fetchDetails(ctx, src, token, meetings)

	matcher := NewContactMatcher(BuildKey)
	for i, m := range meetings {
		if details[i] == nil {
			if errs[i] != nil {
				logger.Warn("skipping meeting", "meeting", m.ID, "err", errs[i])
			}
			continue
		}
		c := meetingContact(m, details[i])
		c.ID = MeetingContactID(c)
		matcher.AddContact(c)
	}
	return matcher.Contacts(), nil
}

// RecentQuery bounds a sync fetch.
type RecentQuery struct {
	Limit    int
	Lookback time.Duration
	Now      time.Time
}

// RecentResult is the outcome of a recent-meetings fetch.
type RecentResult struct {
	Contacts           []models.Contact
	TotalMeetings      int
	SuccessfulMeetings int
	SkippedContacts    int
	Errors             []string
}

// FetchRecentMeetingContacts fetches the newest meetings inside the look-back
// window and builds sync candidates carrying meeting id and create date.
// Candidates without both names are skipped and counted. Detail failures are
// collected in Errors. Only a list failure is returned as an error.
func FetchRecentMeetingContacts(ctx context.Context, src MeetingSource, token string, q RecentQuery) (*RecentResult, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultSyncLimit
	}
	if q.Lookback <= 0 {
		q.Lookback = DefaultLookback
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}

	page, err := src.ListMeetings(ctx, token, models.MeetingQuery{
		PageNumber:     0,
		ResultsPerPage: q.Limit,
		StartDate:      q.Now.Add(-q.Lookback),
		EndDate:        q.Now,
		SortBy:         sortByCreateDate,
		SortDirection:  sortDirectionDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meetings: %w", err)
	}

	result := &RecentResult{TotalMeetings: len(page.Meetings)}
	if len(page.Meetings) == 0 {
		return result, nil
	}

	details, errs := fetchDetails(ctx, src, token, page.Meetings)

	matcher := NewContactMatcher(BuildKey)
	for i, m := range page.Meetings {
		if details[i] == nil {
			if errs[i] != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Error processing meeting %s: %v", m.ID, errs[i]))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to fetch details for meeting %s", m.ID))
			}
			continue
		}

		c := meetingContact(m, details[i])
		if !c.IsComplete() {
			result.SkippedContacts++
			continue
		}
		c.ID = MeetingContactID(c)
		c.MeetingID = m.ID
		c.CreateDate = m.CreateDate
		matcher.AddContact(c)
		result.SuccessfulMeetings++
	}
	result.Contacts = matcher.Contacts()
	return result, nil
}

// fetchDetails issues every detail call before waiting on any. The returned
// slices are indexed like meetings.
func fetchDetails(ctx context.Context, src MeetingSource, token string, meetings []models.Meeting) ([]*models.InvitationDetail, []error) {
	details := make([]*models.InvitationDetail, len(meetings))
	errs := make([]error, len(meetings))

	var g errgroup.Group
	for i, m := range meetings {
		g.Go(func() error {
			details[i], errs[i] = src.GetInvitation(ctx, token, m.ID)
			if errs[i] != nil {
				details[i] = nil
			}
			return nil
		})
	}
	_ = g.Wait()
	return details, errs
}

// meetingContact prefers detail names and falls back to the summary.
func meetingContact(m models.Meeting, d *models.InvitationDetail) models.Contact {
	first := d.RecipientFirstName
	if first == "" {
		first = m.RecipientFirstName
	}
	last := d.RecipientLastName
	if last == "" {
		last = m.RecipientLastName
	}
	return models.Contact{
		FirstName: first,
		LastName:  last,
		Email:     d.RecipientEmail,
		Phone:     d.RecipientPhoneNumber,
		Source:    models.SourceMeeting,
	}
}
