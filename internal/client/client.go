// Package client is a Go client for the meeting registration HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// Client talks to one server as one session.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit commits entries for meetingID as one registration.
func (c *Client) Submit(ctx context.Context, meetingID string, entries []model.EventEntryDraft) (*model.Registration, error) {
	var reg model.Registration
	body := model.SubmitRegistrationRequest{MeetingID: meetingID, Events: entries}
	if err := c.do(ctx, http.MethodPost, "/registrations", body, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Registrations lists a user's registrations newest first. An empty userID
// lists the caller's own.
func (c *Client) Registrations(ctx context.Context, userID string) ([]model.Registration, error) {
	path := "/registrations"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var regs []model.Registration
	if err := c.do(ctx, http.MethodGet, path, nil, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// Session returns the principal for the client's token, or nil when the
// server treats the caller as anonymous.
func (c *Client) Session(ctx context.Context) (*model.Principal, error) {
	var resp model.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Meeting fetches one meeting.
func (c *Client) Meeting(ctx context.Context, id string) (*model.Meeting, error) {
	var m model.Meeting
	if err := c.do(ctx, http.MethodGet, "/meetings/"+url.PathEscape(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var body model.ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Code = body.Code
		apiErr.Field = body.Field
	}
	return apiErr
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
