package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/itsbohara/anchor/internal/events"
	"github.com/itsbohara/anchor/internal/models"
)

// Client talks to the backend over its HTTP API.
type Client struct {
	base   string
	token  string
	http   *http.Client
	stream *http.Client
	logger *slog.Logger
}

// NewClient creates a client for the server at baseURL. token may be empty
// when the server runs with auth disabled.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/") + "/api",
		token:  token,
		http:   &http.Client{Timeout: 15 * time.Second},
		stream: &http.Client{},
		logger: logger,
	}
}

// Load fetches the full reference set.
func (c *Client) Load(ctx context.Context) ([]models.Reference, error) {
	var refs []models.Reference
	if err := c.call(ctx, OpLoad, http.MethodGet, "/references", nil, &refs); err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []models.Reference{}
	}
	return refs, nil
}

// Create sends a draft and returns the canonical reference.
func (c *Client) Create(ctx context.Context, d models.Draft) (models.Reference, error) {
	var ref models.Reference
	err := c.call(ctx, OpCreate, http.MethodPost, "/references", models.ToPayload("", d), &ref)
	return ref, err
}

// Update replaces the editable fields of reference id.
func (c *Client) Update(ctx context.Context, id string, d models.Draft) (models.Reference, error) {
	var ref models.Reference
	err := c.call(ctx, OpUpdate, http.MethodPut, "/references/"+url.PathEscape(id), models.ToPayload(id, d), &ref)
	return ref, err
}

// Delete removes reference id. Unknown ids fail.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, OpDelete, http.MethodDelete, "/references/"+url.PathEscape(id), nil, nil)
}

// PathExists asks the backend whether path exists on its host.
func (c *Client) PathExists(ctx context.Context, path string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	q := url.Values{"path": {path}}
	if err := c.call(ctx, OpPathExists, http.MethodGet, "/path-exists?"+q.Encode(), nil, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// Run asks the backend to perform an OS integration command.
func (c *Client) Run(ctx context.Context, command, path string) error {
	body := map[string]string{"path": path}
	return c.call(ctx, OpAction, http.MethodPost, "/actions/"+url.PathEscape(command), body, nil)
}

// Listen consumes the server's event stream and emits
// events.ReferencesChanged on bus for every references_changed event. It
// returns when ctx is cancelled or the stream ends; it does not reconnect.
func (c *Client) Listen(ctx context.Context, bus *events.Bus) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("remote: listen: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: listen: unexpected status %d", resp.StatusCode)
	}

	c.logger.Debug("remote: listening for changes")
	sc := bufio.NewScanner(resp.Body)
	var event string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if event == events.ReferencesChanged {
				bus.Emit(events.ReferencesChanged)
			}
			event = ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("remote: listen: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// call performs one round trip. Any failure is returned as *OpError.
func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &OpError{Op: op, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("remote: request failed", slog.String("op", op), slog.String("error", err.Error()))
		return &OpError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		return &OpError{
			Op:      op,
			Message: strings.TrimSpace(eb.Error),
			Err:     fmt.Errorf("remote: %s %s: status %d", method, path, resp.StatusCode),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &OpError{Op: op, Err: fmt.Errorf("remote: decode: %w", err)}
	}
	return nil
}
