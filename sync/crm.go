// ABOUTME: CRM contacts pipeline
// ABOUTME: Fetches Salesforce contacts and leads concurrently and tags each record
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// FetchCRMContacts returns Salesforce contacts followed by leads. No
// deduplication happens here. A failing list contributes nothing; an error
// is returned only when both lists fail.
func FetchCRMContacts(ctx context.Context, src CRMSource, logger *log.Logger) ([]models.Contact, error) {
	logger = loggerOrDefault(logger)

	var (
		contacts, leads       []models.CRMRecord
		contactsErr, leadsErr error
		g                     errgroup.Group
	)
	g.Go(func() error {
		contacts, contactsErr = src.ListSalesforceContacts(ctx)
		return nil
	})
	g.Go(func() error {
		leads, leadsErr = src.ListSalesforceLeads(ctx)
		return nil
	})
	_ = g.Wait()

	if contactsErr != nil && leadsErr != nil {
		return nil, fmt.Errorf("failed to list salesforce records: %w", errors.Join(contactsErr, leadsErr))
	}
	if contactsErr != nil {
		logger.Warn("salesforce contacts unavailable", "err", contactsErr)
	}
	if leadsErr != nil {
		logger.Warn("salesforce leads unavailable", "err", leadsErr)
	}

	out := make([]models.Contact, 0, len(contacts)+len(leads))
	out = appendCRM(out, contacts, models.SourceSalesforceContact)
	out = appendCRM(out, leads, models.SourceSalesforceLead)
	return out, nil
}

func appendCRM(out []models.Contact, records []models.CRMRecord, source models.Source) []models.Contact {
	for _, r := range records {
		out = append(out, models.Contact{
			ID:        r.ID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Email:     r.Email,
			Phone:     r.Phone,
			Source:    source,
		})
	}
	return out
}

func loggerOrDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
