// ABOUTME: Shared dependencies for the MCP handlers
// ABOUTME: Resolves the signed-in user's token and the engine inputs for each call
package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

// FlexCalLister lists the user's scheduling links.
type FlexCalLister interface {
	ListFlexCals(ctx context.Context, token string, q models.FlexCalQuery) (*models.FlexCalPage, error)
}

// Deps is what the handlers need from the running app.
type Deps struct {
	Engine       *contactsync.Engine
	Reconciler   *contactsync.Reconciler
	Store        *cache.Store
	Tokens       oauth2.TokenSource
	UserName     string
	CRMConnected bool
	// DB holds sync history. Nil when the charm backend is used.
	DB *sql.DB
	// FlexCals backs list_flexcals. The tool is not registered when nil.
	FlexCals FlexCalLister
}

func (d *Deps) token() (string, error) {
	if d.Tokens == nil {
		return "", fmt.Errorf("not signed in")
	}
	tok, err := d.Tokens.Token()
	if err != nil {
		return "", fmt.Errorf("not signed in: %w", err)
	}
	return tok.AccessToken, nil
}

func (d *Deps) inputs() (contactsync.Inputs, error) {
	token, err := d.token()
	if err != nil {
		return contactsync.Inputs{}, err
	}
	return contactsync.Inputs{Token: token, UserName: d.UserName, CRMConnected: d.CRMConnected}, nil
}

func (d *Deps) userID() (string, error) {
	token, err := d.token()
	if err != nil {
		return "", err
	}
	return contactsync.UserIDFromToken(token)
}

// ContactOutput is a contact as returned by the tools.
type ContactOutput struct {
	ID         string `json:"id,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Source     string `json:"source"`
	MeetingID  string `json:"meeting_id,omitempty"`
	CreateDate string `json:"create_date,omitempty"`
}

func contactToOutput(c models.Contact) ContactOutput {
	return ContactOutput{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Email:      c.Email,
		Phone:      c.PhoneValue(),
		Source:     string(c.Source),
		MeetingID:  c.MeetingID,
		CreateDate: c.CreateDate,
	}
}
