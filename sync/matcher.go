// ABOUTME: Contact identity keys and deduplication
// ABOUTME: Builds canonical keys and tracks which identities a merge has already seen
package sync

import (
	"strings"

	"github.com/lokesh75way/confirmed-add-in/models"
)

const keySeparator = "|"

// BuildKey returns the canonical identity key for a contact.
//
// With a phone the key is first|last|email|phone, with only an email it is
// first|last|email, and otherwise first|last| (trailing separator kept).
// Names are part of every key, so the same email under two names is two people.
func BuildKey(c models.Contact) string {
	first := normalize(c.FirstName)
	last := normalize(c.LastName)
	email := normalizeEmail(c.Email)
	phone := normalize(c.PhoneValue())

	switch {
	case phone != "":
		return strings.Join([]string{first, last, email, phone}, keySeparator)
	case email != "":
		return strings.Join([]string{first, last, email}, keySeparator)
	default:
		return first + keySeparator + last + keySeparator
	}
}

// MeetingContactID returns the id stored on meeting contacts. Unlike BuildKey
// it always has four fields, keeping empty ones, so ids match those already
// present in caches shared with the task pane.
func MeetingContactID(c models.Contact) string {
	return strings.Join([]string{
		normalize(c.FirstName),
		normalize(c.LastName),
		normalizeEmail(c.Email),
		normalize(c.PhoneValue()),
	}, keySeparator)
}

// ContactKey returns the contact's own ID when it has one, else its identity key.
func ContactKey(c models.Contact) string {
	if c.ID != "" {
		return c.ID
	}
	return BuildKey(c)
}

// ContactMatcher remembers contacts by key. The first contact stored under a
// key wins; later ones are reported as duplicates.
type ContactMatcher struct {
	byKey map[string]int
	keyFn func(models.Contact) string
	out   []models.Contact

	byAlt map[string]int
	altFn func(models.Contact) string
}

// NewContactMatcher creates an empty matcher using keyFn to identify contacts.
func NewContactMatcher(keyFn func(models.Contact) string) *ContactMatcher {
	if keyFn == nil {
		keyFn = BuildKey
	}
	return &ContactMatcher{
		byKey: make(map[string]int),
		keyFn: keyFn,
	}
}

// MatchAlso makes FindMatch fall back to altFn when the primary key misses.
// The fallback never stops AddContact from storing a contact.
func (m *ContactMatcher) MatchAlso(altFn func(models.Contact) string) *ContactMatcher {
	m.altFn = altFn
	m.byAlt = make(map[string]int)
	return m
}

// FindMatch looks up a previously added contact with the same key.
func (m *ContactMatcher) FindMatch(c models.Contact) (*models.Contact, bool) {
	if i, found := m.byKey[m.keyFn(c)]; found {
		return &m.out[i], true
	}
	if m.altFn != nil {
		if i, found := m.byAlt[m.altFn(c)]; found {
			return &m.out[i], true
		}
	}
	return nil, false
}

// AddContact stores c unless its key is already present. It reports whether c was added.
func (m *ContactMatcher) AddContact(c models.Contact) bool {
	key := m.keyFn(c)
	if _, found := m.byKey[key]; found {
		return false
	}
	m.byKey[key] = len(m.out)
	if m.altFn != nil {
		alt := m.altFn(c)
		if _, found := m.byAlt[alt]; !found {
			m.byAlt[alt] = len(m.out)
		}
	}
	m.out = append(m.out, c)
	return true
}

// Contacts returns the stored contacts in insertion order.
func (m *ContactMatcher) Contacts() []models.Contact {
	return m.out
}

// Len returns the number of distinct keys seen.
func (m *ContactMatcher) Len() int {
	return len(m.out)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeEmail converts email to lowercase for comparison.
func normalizeEmail(email string) string {
	return normalize(email)
}

// extractDomain extracts domain from email address.
func extractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
