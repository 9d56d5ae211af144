package boardsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/pitchside/internal/domain/board"
	"github.com/okian/pitchside/internal/domain/model"
)

// Client talks to the board API of one service.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Any status other than want is an error.
func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, want int, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpected, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func boardPath(matchID, variant, suffix string) string {
	p := "/boards/" + url.PathEscape(matchID) + suffix
	if variant != "" {
		p += "?variant=" + url.QueryEscape(variant)
	}
	return p
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// Matches lists the matches of the service.
func (c *Client) Matches(ctx context.Context) ([]model.Match, error) {
	var out []model.Match
	err := c.do(ctx, http.MethodGet, "/matches", nil, nil, http.StatusOK, &out)
	return out, err
}

// View fetches a board.
func (c *Client) View(ctx context.Context, matchID, variant string) (View, error) {
	var v View
	err := c.do(ctx, http.MethodGet, boardPath(matchID, variant, ""), nil, nil, http.StatusOK, &v)
	return v, err
}

// SetTool selects the active tool.
func (c *Client) SetTool(ctx context.Context, matchID, variant string, tool board.Tool) error {
	body := map[string]string{"tool": string(tool)}
	return c.do(ctx, http.MethodPut, boardPath(matchID, variant, "/tool"), body, nil, http.StatusOK, nil)
}

// Pointer sends one pointer event.
func (c *Client) Pointer(ctx context.Context, matchID, variant, phase string, ev board.PointerEvent) (PointerResult, error) {
	body := struct {
		Phase string `json:"phase"`
		board.PointerEvent
	}{Phase: phase, PointerEvent: ev}
	var res PointerResult
	err := c.do(ctx, http.MethodPost, boardPath(matchID, variant, "/pointer"), body, nil, http.StatusOK, &res)
	return res, err
}

// Undo removes the last arrow.
func (c *Client) Undo(ctx context.Context, matchID, variant string) error {
	return c.do(ctx, http.MethodPost, boardPath(matchID, variant, "/undo"), nil, nil, http.StatusOK, nil)
}

// Save saves a board under an idempotency key and waits up to wait.
func (c *Client) Save(ctx context.Context, matchID, variant, key string, wait time.Duration) (SaveOutcome, error) {
	path := "/boards/" + url.PathEscape(matchID) + "/save?wait=" + url.QueryEscape(wait.String())
	if variant != "" {
		path += "&variant=" + url.QueryEscape(variant)
	}
	header := http.Header{}
	header.Set("Idempotency-Key", key)
	var out SaveOutcome
	err := c.do(ctx, http.MethodPost, path, nil, header, http.StatusOK, &out)
	return out, err
}
