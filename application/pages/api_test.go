package pages

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchScript(t *testing.T) {
	script, err := fetchScript(Request{
		Method:  "POST",
		URL:     "https://demoqa.com/Account/v1/User",
		Headers: map[string]string{"Authorization": "Bearer t"},
		Body:    map[string]string{"userName": "neo", "password": "Password@123"},
	})
	require.NoError(t, err)
	assert.Contains(t, script, `fetch("https://demoqa.com/Account/v1/User"`)
	assert.Contains(t, script, `"method":"POST"`)
	assert.Contains(t, script, `"Content-Type":"application/json"`)
	assert.Contains(t, script, `"Authorization":"Bearer t"`)
	assert.Contains(t, script, `\"userName\":\"neo\"`)

	script, err = fetchScript(Request{URL: "https://api.example.com/users/204"})
	require.NoError(t, err)
	assert.Contains(t, script, `{"method":"GET"}`)
	assert.False(t, strings.Contains(script, "headers"))
}

func TestAPIClient_MockAndFetch(t *testing.T) {
	s, driver := startSession(t)
	client := NewAPIClient(s)
	ctx := ctxT(t)

	require.NoError(t, client.Blank(ctx))
	assert.Equal(t, "about:blank", driver.URL())

	url := "https://api.example.com/users/1"
	require.NoError(t, client.Mock(ctx, url, 200, map[string]any{"id": 1, "name": "John Doe"}))
	require.NoError(t, client.Mock(ctx, "https://api.example.com/users/204", 204, nil))

	rule, ok := driver.Request(url)
	require.True(t, ok)
	assert.Equal(t, 200, rule.Fulfill.Status)
	assert.Equal(t, "application/json", rule.Fulfill.ContentType)
	assert.JSONEq(t, `{"id":1,"name":"John Doe"}`, string(rule.Fulfill.Body))

	rule, ok = driver.Request("https://api.example.com/users/204")
	require.True(t, ok)
	assert.Empty(t, rule.Fulfill.Body)

	driver.EvaluateFunc = func(expr string) (any, error) {
		return map[string]any{"status": 200, "body": map[string]any{"id": 1, "name": "John Doe"}}, nil
	}
	resp, err := client.Fetch(ctx, Request{URL: url})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	var user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, resp.Decode(&user))
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "John Doe", user.Name)

	empty := &APIResponse{Status: 204, Body: []byte("null")}
	assert.Error(t, empty.Decode(&user))
}
