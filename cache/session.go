// ABOUTME: Session cleanup for sign-out
// ABOUTME: Removes credentials and transient state while keeping every contacts cache
package cache

import (
	"errors"
	"fmt"
)

// Session and credential keys.
const (
	AccessTokenKey       = "access_token"
	TokenExpiresAtKey    = "token_expires_at"
	CRMAccessTokenKey    = "sf_access_token"
	CRMTokenExpiresAtKey = "sf_token_expires_at"
	VerifierKey          = "verifier"
	AppCacheKey          = "app-cache"
	PageMeetingStatusKey = "page_meeting_status"
)

// SessionKeys are removed on sign-out.
var SessionKeys = []string{
	AccessTokenKey,
	TokenExpiresAtKey,
	CRMAccessTokenKey,
	CRMTokenExpiresAtKey,
	VerifierKey,
	AppCacheKey,
	PageMeetingStatusKey,
}

// userDataKeys indicate that some user data is present.
var userDataKeys = []string{
	"contacts",
	"meeting_contacts",
	"sf_contacts",
	"combined-contacts",
	VerifierKey,
	MeetingContacts,
	CRMContacts,
}

// ClearSession removes every session key. Contacts caches for all users are
// kept so the next sign-in starts warm. All keys are attempted even if some fail.
func ClearSession(storage Storage) error {
	var errs []error
	for _, key := range SessionKeys {
		if err := storage.RemoveItem(key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// HasUserData reports whether any user data key is present.
func HasUserData(storage Storage) (bool, error) {
	for _, key := range userDataKeys {
		_, ok, err := storage.GetItem(key)
		if err != nil {
			return false, fmt.Errorf("check %s: %w", key, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
