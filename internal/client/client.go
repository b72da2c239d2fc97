// Package client implements the engine's collaborators against the HTTP API
// served by cmd/server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/playperu/cluegame/internal/cluegame"
)

// ClueSetResponse is the body of GET /api/clues.
type ClueSetResponse struct {
	Date   string   `json:"date"`
	Slot   string   `json:"slot"`
	Clues  []string `json:"clues"`
	Answer string   `json:"answer"`
}

// CheckResponse is the body of GET /api/participants/{name}/check.
type CheckResponse struct {
	Valid bool `json:"valid"`
}

// RecordResponse is the body of POST /api/attempts.
type RecordResponse struct {
	Recorded bool `json:"recorded"`
}

// Client talks to one API base URL. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: hc}, nil
}

func (c *Client) Fetch(ctx context.Context, key cluegame.Key) (cluegame.ClueSet, error) {
	q := url.Values{"date": {key.Date.String()}, "slot": {key.Slot.String()}}
	var body ClueSetResponse
	if err := c.do(ctx, http.MethodGet, "/api/clues?"+q.Encode(), nil, &body); err != nil {
		return cluegame.ClueSet{}, err
	}
	return cluegame.ClueSet{Key: key, Clues: body.Clues, Answer: body.Answer}, nil
}

// Check accepts both {"valid": bool} and a bare JSON boolean.
func (c *Client) Check(ctx context.Context, name string) (bool, error) {
	var raw json.RawMessage
	path := "/api/participants/" + url.PathEscape(strings.TrimSpace(name)) + "/check"
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return false, err
	}

	var valid bool
	if err := json.Unmarshal(raw, &valid); err == nil {
		return valid, nil
	}
	var body CheckResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return false, fmt.Errorf("decoding participant check: %w", err)
	}
	return body.Valid, nil
}

// Report posts the attempt. Any 2xx response is an ack, including one for a
// record the ledger already had.
func (c *Client) Report(ctx context.Context, rec cluegame.AttemptRecord) error {
	var body RecordResponse
	return c.do(ctx, http.MethodPost, "/api/attempts", rec.Payload(), &body)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, cluegame.ErrNotFound)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, errorMessage(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}

var (
	_ cluegame.ClueProvider         = (*Client)(nil)
	_ cluegame.ParticipantValidator = (*Client)(nil)
	_ cluegame.AttemptReporter      = (*Client)(nil)
)
