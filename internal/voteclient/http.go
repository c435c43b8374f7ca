package voteclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emilythestrangee/designarena/backend/internal/vote"
)

// HTTPAPI talks to the /api/votes endpoints.
type HTTPAPI struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPAPI returns a transport for the API at baseURL. An empty token
// makes every request anonymous.
func NewHTTPAPI(baseURL, token string, client *http.Client) *HTTPAPI {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAPI{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

// SignedIn reports whether requests carry an identity.
func (a *HTTPAPI) SignedIn() bool {
	return a.token != ""
}

func (a *HTTPAPI) CurrentVote(ctx context.Context, t vote.Target) (vote.Direction, error) {
	var out struct {
		UserVote *string `json:"userVote"`
	}
	path := fmt.Sprintf("/api/votes/user-vote/%s/%d", t.Kind, t.ID)
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return vote.None, err
	}
	if out.UserVote == nil {
		return vote.None, nil
	}
	return vote.ParseDirection(*out.UserVote)
}

func (a *HTTPAPI) Cast(ctx context.Context, t vote.Target, dir vote.Direction) (vote.Counts, error) {
	body := map[string]interface{}{
		"entityType": t.Kind,
		"entityId":   t.ID,
		"voteType":   dir,
	}
	var counts vote.Counts
	err := a.do(ctx, http.MethodPost, "/api/votes", body, &counts)
	return counts, err
}

func (a *HTTPAPI) Remove(ctx context.Context, t vote.Target) (vote.Counts, error) {
	var counts vote.Counts
	path := fmt.Sprintf("/api/votes/%s/%d", t.Kind, t.ID)
	err := a.do(ctx, http.MethodDelete, path, nil, &counts)
	return counts, err
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError maps an error response onto the vote package's errors.
func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	var kind error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = vote.ErrUnauthenticated
	case http.StatusNotFound:
		kind = vote.ErrNotFound
	case http.StatusConflict:
		kind = vote.ErrConflict
	case http.StatusBadRequest:
		kind = vote.ErrInvalidTarget
	default:
		return fmt.Errorf("vote api: %s: %s", resp.Status, payload.Error)
	}
	return fmt.Errorf("%w: %s", kind, payload.Error)
}
