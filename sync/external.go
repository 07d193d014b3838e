// ABOUTME: Primary contacts pipeline
// ABOUTME: Expands multi-email directory records into one contact per email
package sync

import (
	"context"
	"fmt"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// FetchPrimaryContacts lists the user's directory contacts and expands them.
func FetchPrimaryContacts(ctx context.Context, src PrimarySource, token, userName string) ([]models.Contact, error) {
	records, err := src.ListExternalContacts(ctx, token, userName)
	if err != nil {
		return nil, fmt.Errorf("failed to list external contacts: %w", err)
	}
	return ExpandExternalContacts(records), nil
}

// ExpandExternalContacts converts directory records to contacts. A record with
// N emails becomes N contacts sharing the same name and phone, so each
// contact carries exactly one email into deduplication.
func ExpandExternalContacts(records []models.ExternalContact) []models.Contact {
	contacts := make([]models.Contact, 0, len(records))
	for _, r := range records {
		base := models.Contact{
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			PhoneNumber: r.PhoneNumber,
			Source:      models.SourceExternal,
		}
		// A missing email still yields one contact; an empty array yields none.
		if r.Email == nil {
			contacts = append(contacts, base)
			continue
		}
		for _, email := range r.Email {
			c := base
			c.Email = email
			contacts = append(contacts, c)
		}
	}
	return contacts
}
