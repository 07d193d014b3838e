// ABOUTME: REST client for the Confirmed service
// ABOUTME: Contacts, meetings, scheduling links, Salesforce records and user info, with retries on reads
package confirmed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/lokesh75way/confirmed-add-in/models"
)

const (
	DefaultBaseURL     = "https://confirmedservice.confirmedapp.com"
	DefaultUserInfoURL = "https://confirmed.auth0.com/userinfo"
	// DefaultSchedulerURL opens a scheduling link for booking.
	DefaultSchedulerURL = "https://use.confirmedapp.com/scheduler"

	// isoMillis matches the service's ISO timestamps.
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// HTTPError is a non-2xx response from the service.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserInfoURL overrides the identity provider's userinfo endpoint.
func WithUserInfoURL(u string) Option {
	return func(c *Client) { c.userInfoURL = u }
}

// WithLogger sets the client's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCRMTokenSource sets where Salesforce calls get their bearer token.
func WithCRMTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.crmTokens = ts }
}

// WithRetry tunes retry behaviour. Zero values keep the defaults.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries > 0 {
			c.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
		if maxDelay > 0 {
			c.maxDelay = maxDelay
		}
	}
}

// Client talks to the Confirmed service. It is safe for concurrent use.
type Client struct {
	baseURL     string
	userInfoURL string
	httpClient  *http.Client
	crmTokens   oauth2.TokenSource
	logger      *log.Logger
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewClient creates a Client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userInfoURL: DefaultUserInfoURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      log.Default(),
		maxRetries:  3,
		baseDelay:   100 * time.Millisecond,
		maxDelay:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "confirmed")
	return c
}

type externalContactsRequest struct {
	UserName          string   `json:"userName"`
	ExternalProviders []string `json:"externalProviders"`
}

// ListExternalContacts returns the user's directory contacts.
func (c *Client) ListExternalContacts(ctx context.Context, token, userName string) ([]models.ExternalContact, error) {
	var out []models.ExternalContact
	body := externalContactsRequest{UserName: userName, ExternalProviders: []string{""}}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/users/getExternalContacts", bearer(token), body, &out); err != nil {
		return nil, fmt.Errorf("list external contacts: %w", err)
	}
	return out, nil
}

type meetingsRequest struct {
	Subject            string `json:"Subject"`
	RecipientFirstName string `json:"RecipientFirstName"`
	RecipientLastName  string `json:"RecipientLastName"`
	PageNumber         int    `json:"PageNumber"`
	ResultsPerPage     int    `json:"ResultsPerPage"`
	StartDate          string `json:"StartDate,omitempty"`
	EndDate            string `json:"EndDate,omitempty"`
	SortBy             string `json:"SortBy,omitempty"`
	SortDirection      string `json:"SortDirection,omitempty"`
}

func newMeetingsRequest(q models.MeetingQuery) meetingsRequest {
	req := meetingsRequest{
		Subject:            q.Subject,
		RecipientFirstName: q.RecipientFirstName,
		RecipientLastName:  q.RecipientLastName,
		PageNumber:         q.PageNumber,
		ResultsPerPage:     q.ResultsPerPage,
		SortBy:             q.SortBy,
		SortDirection:      q.SortDirection,
	}
	if !q.StartDate.IsZero() {
		req.StartDate = q.StartDate.UTC().Format(isoMillis)
	}
	if !q.EndDate.IsZero() {
		req.EndDate = q.EndDate.UTC().Format(isoMillis)
	}
	return req
}

// ListMeetings returns one page of the user's meeting invitations.
func (c *Client) ListMeetings(ctx context.Context, token string, query models.MeetingQuery) (*models.MeetingsPage, error) {
	var page models.MeetingsPage
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/invitations/meetings", bearer(token), newMeetingsRequest(query), &page); err != nil {
		return nil, fmt.Errorf("list meetings page %d: %w", query.PageNumber, err)
	}
	return &page, nil
}

// GetInvitation returns the recipient details of one meeting.
func (c *Client) GetInvitation(ctx context.Context, token, meetingID string) (*models.InvitationDetail, error) {
	var detail models.InvitationDetail
	endpoint := c.baseURL + "/api/invitations/" + url.PathEscape(meetingID)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, bearer(token), nil, &detail); err != nil {
		return nil, fmt.Errorf("get invitation %s: %w", meetingID, err)
	}
	return &detail, nil
}

// SendReminder asks the service to email the meeting's recipient again.
// It is not retried, so a reminder is never sent twice.
func (c *Client) SendReminder(ctx context.Context, token, meetingID string) error {
	endpoint := c.baseURL + "/api/invitations/sendReminder/" + url.PathEscape(meetingID)
	if err := c.send(ctx, http.MethodPost, endpoint, bearer(token), struct{}{}, nil, 0); err != nil {
		return fmt.Errorf("send reminder for %s: %w", meetingID, err)
	}
	return nil
}

// WithdrawInvitation withdraws a meeting invitation.
func (c *Client) WithdrawInvitation(ctx context.Context, token, meetingID string) error {
	endpoint := c.baseURL + "/api/invitations/" + url.PathEscape(meetingID)
	if err := c.send(ctx, http.MethodDelete, endpoint, bearer(token), nil, nil, 0); err != nil {
		return fmt.Errorf("withdraw invitation %s: %w", meetingID, err)
	}
	return nil
}

// ListFlexCals returns one page of the user's scheduling links.
func (c *Client) ListFlexCals(ctx context.Context, token string, q models.FlexCalQuery) (*models.FlexCalPage, error) {
	size := q.ResultsPerPage
	if size <= 0 {
		size = 10
	}
	params := url.Values{}
	params.Set("pageNumber", strconv.Itoa(q.PageNumber))
	params.Set("resultsPerPage", strconv.Itoa(size))
	params.Set("nameFilter", q.NameFilter)

	var page models.FlexCalPage
	endpoint := c.baseURL + "/api/lazycalendar/summary?" + params.Encode()
	if err := c.doJSON(ctx, http.MethodGet, endpoint, bearer(token), nil, &page); err != nil {
		return nil, fmt.Errorf("list flexcals page %d: %w", q.PageNumber, err)
	}
	return &page, nil
}

// SchedulerLink is the booking page for a scheduling link.
func SchedulerLink(id models.FlexID) string {
	return DefaultSchedulerURL + "?flexcalid=" + url.QueryEscape(string(id))
}

type recordsResponse struct {
	Records []models.CRMRecord `json:"records"`
}

// ListSalesforceContacts returns the Salesforce Contact records.
func (c *Client) ListSalesforceContacts(ctx context.Context) ([]models.CRMRecord, error) {
	return c.listCRM(ctx, "listContacts")
}

// ListSalesforceLeads returns the Salesforce Lead records.
func (c *Client) ListSalesforceLeads(ctx context.Context) ([]models.CRMRecord, error) {
	return c.listCRM(ctx, "listLeads")
}

func (c *Client) listCRM(ctx context.Context, op string) ([]models.CRMRecord, error) {
	if c.crmTokens == nil {
		return nil, fmt.Errorf("salesforce %s: %w", op, ErrNoToken)
	}
	tok, err := c.crmTokens.Token()
	if err != nil {
		return nil, fmt.Errorf("salesforce %s: %w", op, err)
	}
	var out recordsResponse
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/salesforce/"+op, tok, nil, &out); err != nil {
		return nil, fmt.Errorf("salesforce %s: %w", op, err)
	}
	return out.Records, nil
}

// UserInfo returns the identity provider's profile for token.
func (c *Client) UserInfo(ctx context.Context, token string) (*models.UserInfo, error) {
	var info models.UserInfo
	if err := c.doJSON(ctx, http.MethodGet, c.userInfoURL, bearer(token), nil, &info); err != nil {
		return nil, fmt.Errorf("user info: %w", err)
	}
	return &info, nil
}

func bearer(token string) *oauth2.Token {
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, tok *oauth2.Token, in, out any) error {
	return c.send(ctx, method, endpoint, tok, in, out, c.maxRetries)
}

func (c *Client) send(ctx context.Context, method, endpoint string, tok *oauth2.Token, in, out any, maxRetries int) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}

	for attempt := 0; ; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return err
		}
		tok.SetAuthHeader(req)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt < maxRetries {
				c.logger.Debug("request failed, retrying", "method", method, "url", endpoint, "attempt", attempt+1, "err", err)
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out != nil && len(bytes.TrimSpace(data)) > 0 {
				if err := json.Unmarshal(data, out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}

		if shouldRetry(resp.StatusCode) && attempt < maxRetries {
			c.logger.Debug("retryable status", "method", method, "url", endpoint, "status", resp.StatusCode, "attempt", attempt+1)
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}
		return newHTTPError(resp, data)
	}
}

func newHTTPError(resp *http.Response, data []byte) *HTTPError {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &payload)
	msg := payload.Message
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if msg == "" {
		msg = resp.Status
	}
	return &HTTPError{StatusCode: resp.StatusCode, Code: payload.Code, Message: msg}
}

func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		return min(retryAfter, c.maxDelay)
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return min(delay, c.maxDelay)
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
