package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultDriverConfig(t *testing.T) {
	config := DefaultDriverConfig()

	if config == nil {
		t.Fatal("DefaultDriverConfig returned nil")
	}

	if config.Engine != EngineChromium {
		t.Errorf("Engine = %v, want chromium", config.Engine)
	}

	if config.Headless != true {
		t.Errorf("Headless = %v, want true", config.Headless)
	}

	if config.Viewport.Width != 1920 {
		t.Errorf("Viewport.Width = %d, want 1920", config.Viewport.Width)
	}

	if config.Viewport.Height != 1080 {
		t.Errorf("Viewport.Height = %d, want 1080", config.Viewport.Height)
	}

	if config.DisableWebSecurity != true {
		t.Errorf("DisableWebSecurity = %v, want true", config.DisableWebSecurity)
	}

	if config.LaunchTimeout != 60*time.Second {
		t.Errorf("LaunchTimeout = %v, want 60s", config.LaunchTimeout)
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    Engine
		wantErr bool
	}{
		{"chromium", EngineChromium, false},
		{" Firefox ", EngineFirefox, false},
		{"webkit", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEngine(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEngine(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEngine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEngine_IsSlow(t *testing.T) {
	if EngineChromium.IsSlow() {
		t.Error("chromium should not be slow")
	}
	if !EngineFirefox.IsSlow() {
		t.Error("firefox should be slow")
	}
}

func TestMatchers(t *testing.T) {
	exact := MatchExact("https://api.example.com/users/1")
	if !exact("https://api.example.com/users/1") {
		t.Error("exact matcher should match identical URL")
	}
	if exact("https://api.example.com/users/10") {
		t.Error("exact matcher should not match a longer URL")
	}

	ads := MatchAnySubstring("doubleclick.net", "", "facebook.com/tr")
	if !ads("https://stats.g.doubleclick.net/r/collect") {
		t.Error("substring matcher should match doubleclick")
	}
	if !ads("https://www.facebook.com/tr?id=1") {
		t.Error("substring matcher should match facebook pixel")
	}
	if ads("https://demoqa.com/alerts") {
		t.Error("empty fragment must not match everything")
	}
}

func TestRouteTable_Lookup(t *testing.T) {
	var table routeTable
	table = append(table,
		RouteRule{Name: "block-all", Match: MatchAnySubstring("example.com"), Block: true},
		RouteRule{Name: "mock-user", Match: MatchExact("https://api.example.com/users/1"), Fulfill: &MockResponse{Status: 200}},
		RouteRule{Name: "no-matcher"},
	)

	rule, ok := table.lookup("https://api.example.com/users/1")
	if !ok || rule.Name != "mock-user" {
		t.Errorf("lookup = %q, %v; want mock-user", rule.Name, ok)
	}

	rule, ok = table.lookup("https://api.example.com/users/2")
	if !ok || rule.Name != "block-all" {
		t.Errorf("lookup = %q, %v; want block-all", rule.Name, ok)
	}

	if _, ok := table.lookup("https://demoqa.com"); ok {
		t.Error("lookup should miss unrelated URL")
	}
}

func TestMockHeaders(t *testing.T) {
	h := mockHeaders(&MockResponse{
		ContentType: "application/json",
		Headers:     map[string]string{"X-Trace": "1"},
	})
	if h["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", h["Content-Type"])
	}
	if h["Access-Control-Allow-Origin"] != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", h["Access-Control-Allow-Origin"])
	}
	if h["X-Trace"] != "1" {
		t.Errorf("X-Trace = %q", h["X-Trace"])
	}

	h = mockHeaders(&MockResponse{
		ContentType: "application/json",
		Headers:     map[string]string{"Content-Type": "text/plain"},
	})
	if h["Content-Type"] != "text/plain" {
		t.Errorf("explicit header should win, got %q", h["Content-Type"])
	}
}

func TestNewChromeDPDriver(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		driver := NewChromeDPDriver(nil)
		if driver == nil {
			t.Fatal("NewChromeDPDriver returned nil")
		}
		if driver.config == nil {
			t.Fatal("driver.config is nil")
		}
		if driver.Engine() != EngineChromium {
			t.Errorf("Engine() = %v", driver.Engine())
		}
	})

	t.Run("rejects firefox", func(t *testing.T) {
		config := DefaultDriverConfig()
		config.Engine = EngineFirefox
		err := NewChromeDPDriver(config).Start(context.Background())
		if err == nil || !strings.Contains(err.Error(), "firefox") {
			t.Errorf("Start() error = %v, want firefox rejection", err)
		}
	})
}

func TestChromeDPDriver_NotStarted(t *testing.T) {
	driver := NewChromeDPDriver(nil)

	if driver.IsRunning() {
		t.Error("IsRunning() should return false before Start()")
	}

	// Should not panic or error when stopping a driver that was never started
	if err := driver.Stop(); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}

	ctx := context.Background()
	if err := driver.Navigate(ctx, "https://demoqa.com", WaitLoad); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Navigate() error = %v, want ErrNotRunning", err)
	}
	if _, err := driver.Count(ctx, "#submit"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Count() error = %v, want ErrNotRunning", err)
	}
	if err := driver.WaitForLoadState(ctx, WaitNetworkIdle); !errors.Is(err, ErrNotRunning) {
		t.Errorf("WaitForLoadState() error = %v, want ErrNotRunning", err)
	}
}

func TestPlaywrightDriver_NotStarted(t *testing.T) {
	config := DefaultDriverConfig()
	config.Engine = EngineFirefox
	driver := NewPlaywrightDriver(config)

	if driver.Engine() != EngineFirefox {
		t.Errorf("Engine() = %v, want firefox", driver.Engine())
	}
	if driver.IsRunning() {
		t.Error("IsRunning() should return false before Start()")
	}
	if err := driver.Stop(); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}
	if err := driver.Click(context.Background(), "#submit", ClickOptions{}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Click() error = %v, want ErrNotRunning", err)
	}
	if args := driver.launchArgs(); len(args) != 0 {
		t.Errorf("firefox launch args = %v, want none", args)
	}
}

func TestPlaywrightDriver_ChromiumLaunchArgs(t *testing.T) {
	config := DefaultDriverConfig()
	config.ExtraArgs = []string{"--disable-renderer-backgrounding", "--lang=en-US"}
	args := NewPlaywrightDriver(config).launchArgs()

	seen := make(map[string]int)
	for _, a := range args {
		seen[a]++
	}
	for _, want := range []string{"--disable-web-security", "--disable-renderer-backgrounding", "--lang=en-US"} {
		if seen[want] != 1 {
			t.Errorf("launch arg %s appears %d times, want 1: %v", want, seen[want], args)
		}
	}
	if seen["--disable-ipc-flooding-protection"] != 0 {
		t.Errorf("args not configured should not be added: %v", args)
	}
}

func TestAwait(t *testing.T) {
	v, err := await(context.Background(), func() (int, error) { return 3, nil })
	if err != nil || v != 3 {
		t.Fatalf("await = %d, %v; want 3, nil", v, err)
	}

	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = await(ctx, func() (bool, error) {
		<-release
		return true, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("await on a stuck call = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("await did not return when ctx ended")
	}

	boom := errors.New("boom")
	if err := awaitErr(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("awaitErr = %v, want boom", err)
	}
}

func TestTimeoutMS(t *testing.T) {
	if timeoutMS(context.Background()) != nil {
		t.Error("no deadline should yield nil timeout")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ms := timeoutMS(ctx)
	if ms == nil || *ms <= 0 || *ms > 2000 {
		t.Errorf("timeoutMS = %v, want (0, 2000]", ms)
	}
}

func TestMockReply(t *testing.T) {
	resp := &MockResponse{ContentType: "application/json", Body: []byte(`{"ok":true}`)}

	status, headers, body := mockReply("POST", resp)
	if status != 200 {
		t.Errorf("status = %d, want 200 for unset status", status)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
	if headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", headers["Content-Type"])
	}

	status, headers, body = mockReply("OPTIONS", resp)
	if status != 204 || body != nil {
		t.Errorf("preflight = %d %q, want 204 with no body", status, body)
	}
	if !strings.Contains(headers["Access-Control-Allow-Headers"], "Authorization") {
		t.Errorf("Access-Control-Allow-Headers = %q", headers["Access-Control-Allow-Headers"])
	}
	if _, ok := headers["Content-Type"]; ok {
		t.Error("preflight should not carry a content type")
	}
}
