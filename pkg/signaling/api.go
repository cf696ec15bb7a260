package signaling

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
)

const sessionHeader = "X-Session-Id"

// APIError is a non 2xx answer from the server.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("signaling: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// API is the HTTP client for the call, signaling and room endpoints.
type API struct {
	baseURL   string
	authToken string
	http      *http.Client
}

func NewAPI(baseURL, authToken string, client *http.Client) *API {
	if client == nil {
		client = http.DefaultClient
	}
	return &API{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		http:      client,
	}
}

func (a *API) Join(ctx context.Context, roomToken string) (string, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := a.do(ctx, "join", http.MethodPost, callPath(roomToken), "", nil, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (a *API) Leave(ctx context.Context, roomToken, sid string) error {
	return a.do(ctx, "leave", http.MethodDelete, callPath(roomToken), sid, nil, nil)
}

func (a *API) Peers(ctx context.Context, roomToken string) ([]Peer, error) {
	var peers []Peer
	err := a.do(ctx, "peers", http.MethodGet, callPath(roomToken), "", nil, &peers)
	return peers, err
}

func (a *API) Ping(ctx context.Context, roomToken, sid string) error {
	return a.do(ctx, "ping", http.MethodPost, callPath(roomToken)+"/ping", sid, nil, nil)
}

// PostMessages sends a batch. The list travels JSON encoded inside the
// "messages" string field.
func (a *API) PostMessages(ctx context.Context, sid string, batch []Envelope) error {
	encoded, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	body := map[string]string{"messages": string(encoded)}
	return a.do(ctx, "post messages", http.MethodPost, "/api/v1/signaling", sid, body, nil)
}

// PullMessages blocks until the server has mail for sid or its poll times out.
func (a *API) PullMessages(ctx context.Context, sid string) ([]PullItem, error) {
	var resp struct {
		Data []PullItem `json:"data"`
	}
	if err := a.do(ctx, "pull messages", http.MethodGet, "/api/v1/signaling", sid, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *API) Rooms(ctx context.Context) ([]Room, error) {
	var resp struct {
		Rooms []Room `json:"rooms"`
	}
	if err := a.do(ctx, "rooms", http.MethodGet, "/api/v1/room", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func callPath(roomToken string) string {
	return "/api/v1/call/" + url.PathEscape(roomToken)
}

func (a *API) do(ctx context.Context, op, method, path, sid string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.authToken)
	}
	if sid != "" {
		req.Header.Set(sessionHeader, sid)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("signaling: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("signaling: %s: decode: %w", op, err)
	}
	return nil
}
