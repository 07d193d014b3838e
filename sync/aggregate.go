// ABOUTME: Source aggregation with fixed precedence
// ABOUTME: Merges existing, meeting, and CRM contacts by identity key, first source wins
package sync

import (
	"strings"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// Breakdown counts what each source contributed to an aggregate.
type Breakdown struct {
	Existing   int
	Meeting    int
	CRM        int
	Duplicates int
	Incomplete int
}

// Aggregate merges the three sources. Existing contacts go in first and win
// every tie, then meeting contacts, then CRM contacts. Contacts missing a
// first or last name are dropped. Output order is insertion order.
func Aggregate(existing, meeting, crm []models.Contact) []models.Contact {
	out, _ := AggregateWithBreakdown(existing, meeting, crm)
	return out
}

// AggregateWithBreakdown is Aggregate plus per-source counts.
func AggregateWithBreakdown(existing, meeting, crm []models.Contact) ([]models.Contact, Breakdown) {
	var b Breakdown
	m := NewContactMatcher(BuildKey)

	insert := func(contacts []models.Contact, counter *int) {
		for _, c := range contacts {
			if !c.IsComplete() {
				b.Incomplete++
				continue
			}
			if m.AddContact(normalizeOutput(c)) {
				*counter++
			} else {
				b.Duplicates++
			}
		}
	}
	insert(existing, &b.Existing)
	insert(meeting, &b.Meeting)
	insert(crm, &b.CRM)

	out := m.Contacts()
	if out == nil {
		out = []models.Contact{}
	}
	return out, b
}

// normalizeOutput fills Phone from PhoneNumber. Email and Phone are always
// present on aggregated contacts, possibly empty.
func normalizeOutput(c models.Contact) models.Contact {
	c.Phone = c.PhoneValue()
	return c
}

// FilterContacts keeps contacts whose name, email, or email domain contains
// query, case-insensitively. An empty query keeps everything.
func FilterContacts(contacts []models.Contact, query string) []models.Contact {
	q := normalize(query)
	if q == "" {
		return contacts
	}
	var out []models.Contact
	for _, c := range contacts {
		email := normalizeEmail(c.Email)
		switch {
		case strings.Contains(normalize(c.DisplayName()), q),
			strings.Contains(email, q),
			strings.Contains(extractDomain(email), q):
			out = append(out, c)
		}
	}
	return out
}
