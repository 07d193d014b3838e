// ABOUTME: Google People API as a directory contacts source
// ABOUTME: Pages through connections and converts each person with all of its emails
package sync

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"

	"github.com/lokesh75way/confirmed-add-in/models"
)

const peoplePageSize = 1000

// PeopleSource lists Google contacts as directory records. It satisfies
// PrimarySource; the Confirmed token and user name are not used because
// the People service carries its own credential.
type PeopleSource struct {
	service *people.Service
}

// NewPeopleClient creates a People API service authenticated with token.
func NewPeopleClient(ctx context.Context, token *oauth2.Token) (*people.Service, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	client := NewOAuthConfig().Client(ctx, token)
	service, err := people.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}
	return service, nil
}

// NewPeopleSource wraps an existing People service.
func NewPeopleSource(service *people.Service) *PeopleSource {
	return &PeopleSource{service: service}
}

// ListExternalContacts returns every connection that has a name.
func (s *PeopleSource) ListExternalContacts(ctx context.Context, _, _ string) ([]models.ExternalContact, error) {
	var out []models.ExternalContact
	pageToken := ""

	for {
		call := s.service.People.Connections.List("people/me").
			PageSize(peoplePageSize).
			PersonFields("names,emailAddresses,phoneNumbers").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch connections: %w", err)
		}
		if response == nil {
			break
		}

		for _, person := range response.Connections {
			rec, ok := convertPerson(person)
			if ok {
				out = append(out, rec)
			}
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

// convertPerson maps a person to a directory record. Every email is kept,
// the primary one first. The primary phone wins, otherwise the first.
func convertPerson(person *people.Person) (models.ExternalContact, bool) {
	var rec models.ExternalContact
	if person == nil || len(person.Names) == 0 {
		return rec, false
	}

	name := person.Names[0]
	rec.FirstName = name.GivenName
	rec.LastName = name.FamilyName
	if rec.FirstName == "" && rec.LastName == "" && name.DisplayName != "" {
		rec.FirstName, rec.LastName = splitDisplayName(name.DisplayName)
	}

	for _, email := range person.EmailAddresses {
		if email.Value == "" {
			continue
		}
		if email.Metadata != nil && email.Metadata.Primary {
			rec.Email = append(models.EmailList{email.Value}, rec.Email...)
		} else {
			rec.Email = append(rec.Email, email.Value)
		}
	}

	for _, phone := range person.PhoneNumbers {
		if phone.Value == "" {
			continue
		}
		if rec.PhoneNumber == "" {
			rec.PhoneNumber = phone.Value
		}
		if phone.Metadata != nil && phone.Metadata.Primary {
			rec.PhoneNumber = phone.Value
			break
		}
	}

	return rec, true
}

func splitDisplayName(display string) (string, string) {
	fields := strings.Fields(display)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}
