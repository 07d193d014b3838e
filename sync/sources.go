// ABOUTME: Source interfaces for the three contact pipelines
// ABOUTME: Implemented by the Confirmed REST client and the Google People source
package sync

import (
	"context"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// PrimarySource lists the user's directory contacts.
type PrimarySource interface {
	ListExternalContacts(ctx context.Context, token, userName string) ([]models.ExternalContact, error)
}

// MeetingSource lists meeting invitations and fetches their recipient details.
type MeetingSource interface {
	ListMeetings(ctx context.Context, token string, query models.MeetingQuery) (*models.MeetingsPage, error)
	GetInvitation(ctx context.Context, token, meetingID string) (*models.InvitationDetail, error)
}

// CRMSource lists Salesforce contacts and leads. The CRM credential is
// resolved by the source itself.
type CRMSource interface {
	ListSalesforceContacts(ctx context.Context) ([]models.CRMRecord, error)
	ListSalesforceLeads(ctx context.Context) ([]models.CRMRecord, error)
}
