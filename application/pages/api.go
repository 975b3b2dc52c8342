package pages

import (
	"context"
	"encoding/json"
	"fmt"

	"demoqa-e2e/application/session"
	"demoqa-e2e/infrastructure/browser"
)

// APIResponse is what an in-page fetch observed.
type APIResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Decode unmarshals the response body into v.
func (r *APIResponse) Decode(v any) error {
	if len(r.Body) == 0 || string(r.Body) == "null" {
		return fmt.Errorf("response %d has no body", r.Status)
	}
	return json.Unmarshal(r.Body, v)
}

// Request is an in-page fetch.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is JSON-encoded when set.
	Body any
}

// APIClient mocks endpoints through the session's interception rules and
// calls them with fetch from inside the page, so requests travel the same
// path the application's own calls would.
type APIClient struct {
	session *session.Session
	browser *session.BrowserController
}

// NewAPIClient creates an API client on s.
func NewAPIClient(s *session.Session) *APIClient {
	return &APIClient{session: s, browser: s.Browser()}
}

// Blank loads about:blank so fetches start from an empty page.
func (c *APIClient) Blank(ctx context.Context) error {
	return c.browser.Navigate(ctx, "about:blank")
}

// Mock serves status and body, JSON-encoded when not nil, for requests to url.
func (c *APIClient) Mock(ctx context.Context, url string, status int, body any) error {
	resp := &browser.MockResponse{Status: status}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode mock body: %w", err)
		}
		resp.ContentType = "application/json"
		resp.Body = data
	}
	return c.session.Route(ctx, browser.RouteRule{
		Name:    fmt.Sprintf("mock %d %s", status, url),
		Match:   browser.MatchExact(url),
		Fulfill: resp,
	})
}

// fetchScript builds the page script issuing req. Bodies of empty responses
// decode to null.
func fetchScript(req Request) (string, error) {
	method := req.Method
	if method == "" {
		method = "GET"
	}
	init := map[string]any{"method": method}
	headers := map[string]string{}
	for k, v := range req.Headers {
		headers[k] = v
	}
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request body: %w", err)
		}
		init["body"] = string(data)
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}
	if len(headers) > 0 {
		init["headers"] = headers
	}
	initJSON, err := json.Marshal(init)
	if err != nil {
		return "", err
	}
	urlJSON, err := json.Marshal(req.URL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(async () => {
  const resp = await fetch(%s, %s);
  const text = await resp.text();
  return { status: resp.status, body: text ? JSON.parse(text) : null };
})()`, urlJSON, initJSON), nil
}

// Fetch issues req from the page.
func (c *APIClient) Fetch(ctx context.Context, req Request) (*APIResponse, error) {
	script, err := fetchScript(req)
	if err != nil {
		return nil, err
	}
	var resp APIResponse
	if err := c.browser.Evaluate(ctx, script, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", req.Method, req.URL, err)
	}
	return &resp, nil
}
