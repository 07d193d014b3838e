// ABOUTME: oauth2.TokenSource over credentials saved in the session storage
// ABOUTME: Reads the stored {"access_token": ...} blob and saves new logins in the same shape
package confirmed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/lokesh75way/confirmed-add-in/cache"
)

// ErrNoToken means no credential has been stored.
var ErrNoToken = errors.New("no access token stored")

// storedToken is the persisted credential shape.
type storedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// StoredTokenSource serves the credential saved under Key. The value is read
// on every call so a new login is picked up without restarting.
type StoredTokenSource struct {
	Storage cache.Storage
	Key     string
	// ExpiresKey optionally names an epoch-millis expiry entry.
	ExpiresKey string
}

// NewStoredTokenSource reads the Confirmed access token.
func NewStoredTokenSource(storage cache.Storage) *StoredTokenSource {
	return &StoredTokenSource{Storage: storage, Key: cache.AccessTokenKey, ExpiresKey: cache.TokenExpiresAtKey}
}

// Token implements oauth2.TokenSource.
func (s *StoredTokenSource) Token() (*oauth2.Token, error) {
	raw, ok, err := s.Storage.GetItem(s.Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Key, err)
	}
	if !ok || raw == "" {
		return nil, ErrNoToken
	}

	var st storedToken
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// Tolerate a bare token string.
		st.AccessToken = raw
	}
	if st.AccessToken == "" {
		return nil, ErrNoToken
	}

	tok := &oauth2.Token{AccessToken: st.AccessToken, TokenType: st.TokenType}
	if s.ExpiresKey != "" {
		if v, ok, _ := s.Storage.GetItem(s.ExpiresKey); ok {
			if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
				tok.Expiry = time.UnixMilli(ms)
			}
		}
	}
	if !tok.Expiry.IsZero() && !tok.Valid() {
		return nil, fmt.Errorf("stored token expired at %s", tok.Expiry.Format(time.RFC3339))
	}
	return tok, nil
}

// SaveToken stores accessToken under key in the persisted shape, with an
// optional expiry.
func SaveToken(storage cache.Storage, key, expiresKey, accessToken string, expiry time.Time) error {
	data, err := json.Marshal(storedToken{AccessToken: accessToken})
	if err != nil {
		return err
	}
	if err := storage.SetItem(key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if expiresKey == "" || expiry.IsZero() {
		return nil
	}
	return storage.SetItem(expiresKey, strconv.FormatInt(expiry.UnixMilli(), 10))
}

var _ oauth2.TokenSource = (*StoredTokenSource)(nil)
