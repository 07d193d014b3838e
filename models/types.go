// ABOUTME: Data models for the contacts pipeline
// ABOUTME: Defines Contact, cache entries, meeting and scheduling link wire records, and sync results
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Source tags the origin of a contact.
type Source string

const (
	SourceExternal          Source = "external"
	SourceMeeting           Source = "meeting"
	SourceSalesforceContact Source = "salesforce-contact"
	SourceSalesforceLead    Source = "salesforce-lead"
)

// IsCRM reports whether the contact came from Salesforce.
func (s Source) IsCRM() bool {
	return strings.HasPrefix(string(s), "salesforce-")
}

// Contact is the canonical person record shared by every source and cache.
// JSON names match the blobs written by the task pane so existing caches decode as-is.
type Contact struct {
	ID          string `json:"id,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Source      Source `json:"source,omitempty"`
	MeetingID   string `json:"meetingId,omitempty"`
	CreateDate  string `json:"createDate,omitempty"`
}

// IsComplete reports whether the contact has both a first and a last name.
// Only complete contacts are eligible for aggregation.
func (c Contact) IsComplete() bool {
	return c.FirstName != "" && c.LastName != ""
}

// PhoneValue returns Phone, falling back to PhoneNumber.
func (c Contact) PhoneValue() string {
	if c.Phone != "" {
		return c.Phone
	}
	return c.PhoneNumber
}

// DisplayName returns "First Last".
func (c Contact) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CreatedAt parses CreateDate. The Confirmed service emits both RFC 3339 and
// zone-less timestamps.
func (c Contact) CreatedAt() (time.Time, bool) {
	return ParseServiceTime(c.CreateDate)
}

var serviceTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseServiceTime parses a timestamp in any layout the Confirmed service uses.
func ParseServiceTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range serviceTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CacheEntry is one user's slot inside a cache blob.
type CacheEntry struct {
	Timestamp int64     `json:"timestamp"` // epoch millis
	Data      []Contact `json:"data"`
}

// Time returns the entry timestamp as a time.Time.
func (e CacheEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// EmailList accepts either a single string or an array of strings. A missing
// or null email decodes to nil, an empty array to an empty non-nil list.
type EmailList []string

func (l *EmailList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var many []string
		if err := json.Unmarshal(data, &many); err != nil {
			return fmt.Errorf("email list: %w", err)
		}
		// An empty array stays non-nil so callers can tell it from a missing email.
		if many == nil {
			many = []string{}
		}
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	*l = EmailList{one}
	return nil
}

// ExternalContact is a record from the primary contacts API.
// A record with several emails arrives with an array in Email.
type ExternalContact struct {
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       EmailList `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
}

// Meeting is an invitation summary from the paged meetings list.
type Meeting struct {
	ID                 string `json:"id"`
	Subject            string `json:"subject,omitempty"`
	RecipientFirstName string `json:"recipientFirstName,omitempty"`
	RecipientLastName  string `json:"recipientLastName,omitempty"`
	CreateDate         string `json:"createDate,omitempty"`
	Status             int    `json:"status,omitempty"`
}

// MeetingsPage is one page of the meetings list.
type MeetingsPage struct {
	Meetings     []Meeting `json:"meetings"`
	TotalRecords int       `json:"totalRecords"`
}

// InvitationDetail carries the recipient fields missing from the summary.
type InvitationDetail struct {
	ID                   string `json:"id,omitempty"`
	RecipientFirstName   string `json:"recipientFirstName,omitempty"`
	RecipientLastName    string `json:"recipientLastName,omitempty"`
	RecipientEmail       string `json:"recipientEmail,omitempty"`
	RecipientPhoneNumber string `json:"recipientPhoneNumber,omitempty"`
}

// CRMRecord is a Salesforce Contact or Lead row.
type CRMRecord struct {
	ID        string `json:"Id"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Email     string `json:"Email"`
	Phone     string `json:"Phone"`
}

// UserInfo is the identity provider profile for the token holder.
type UserInfo struct {
	Subject  string `json:"sub"`
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// InvitationStatus is the numeric meeting status used by the meetings API.
type InvitationStatus int

const (
	StatusPending   InvitationStatus = 1
	StatusConfirmed InvitationStatus = 2 // "Accepted" in the API
	StatusCancelled InvitationStatus = 3
	StatusRejected  InvitationStatus = 4
	StatusCountered InvitationStatus = 5
	StatusChanged   InvitationStatus = 6
	StatusWithdrawn InvitationStatus = 7 // "Rescinded" in the API
)

func (s InvitationStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCancelled:
		return "Cancelled"
	case StatusRejected:
		return "Rejected"
	case StatusCountered:
		return "Countered"
	case StatusChanged:
		return "Changed"
	case StatusWithdrawn:
		return "Withdrawn"
	default:
		return "Unknown"
	}
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// SyncResult is returned to the caller of a manual sync.
type SyncResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SyncStats describes one sync run. It is never persisted.
type SyncStats struct {
	RunID             string    `json:"run_id"`
	TotalContacts     int       `json:"total_contacts"`
	NewContacts       int       `json:"new_contacts"`
	UpdatedContacts   int       `json:"updated_contacts"`
	MeetingsProcessed int       `json:"meetings_processed"`
	TotalMeetings     int       `json:"total_meetings"`
	SkippedContacts   int       `json:"skipped_contacts"`
	SyncedAt          time.Time `json:"synced_at"`
	Errors            []string  `json:"errors,omitempty"`
	Error             string    `json:"error,omitempty"`
}

// SyncState is the persisted status of a sync service.
type SyncState struct {
	Service      string     `json:"service"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LastStats    *SyncStats `json:"last_stats,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FlexID is a scheduling link id. The service sends it as a string or a number.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("flexcal id: %w", err)
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexcal id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// FlexCal is a scheduling link ("lazy calendar"). Evergreen links have no
// date range.
type FlexCal struct {
	ID        FlexID `json:"lazyCalendarId"`
	Name      string `json:"name"`
	URL       string `json:"url,omitempty"`
	Evergreen bool   `json:"evergreen"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// FlexCalList accepts the summary's lazyCalendars as an array or as an
// object keyed by position. Object values are ordered by key.
type FlexCalList []FlexCal

func (l *FlexCalList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var many []FlexCal
		if err := json.Unmarshal(data, &many); err != nil {
			return fmt.Errorf("flexcal list: %w", err)
		}
		*l = many
		return nil
	}
	var byKey map[string]FlexCal
	if err := json.Unmarshal(data, &byKey); err != nil {
		return fmt.Errorf("flexcal list: %w", err)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		if aErr == nil && bErr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make(FlexCalList, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	*l = out
	return nil
}

// FlexCalPage is one page of the scheduling link summary.
type FlexCalPage struct {
	FlexCals     FlexCalList `json:"lazyCalendars"`
	TotalRecords int         `json:"totalRecords"`
}

// FlexCalQuery selects a page of scheduling links.
type FlexCalQuery struct {
	NameFilter     string
	PageNumber     int
	ResultsPerPage int
}

// MeetingQuery is the body of a meetings list request. Zero dates and empty
// sort fields are omitted on the wire.
type MeetingQuery struct {
	Subject            string
	RecipientFirstName string
	RecipientLastName  string
	PageNumber         int
	ResultsPerPage     int
	StartDate          time.Time
	EndDate            time.Time
	SortBy             string
	SortDirection      string
}
