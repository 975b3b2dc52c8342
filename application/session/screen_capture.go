package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"demoqa-e2e/infrastructure/browser"
)

// ScreenCapture handles screenshots for a session.
type ScreenCapture struct {
	driver  browser.Driver
	logger  *slog.Logger
	saveDir string
	now     func() time.Time
}

// NewScreenCapture creates a new screen capture service writing under saveDir.
func NewScreenCapture(driver browser.Driver, saveDir string, logger *slog.Logger) *ScreenCapture {
	if logger == nil {
		logger = slog.Default()
	}
	if saveDir == "" {
		saveDir = filepath.Join("test-results", "screenshots")
	}
	return &ScreenCapture{
		driver:  driver,
		logger:  logger,
		saveDir: saveDir,
		now:     time.Now,
	}
}

// SaveDir returns the screenshot directory.
func (s *ScreenCapture) SaveDir() string {
	return s.saveDir
}

// Capture returns a full-page PNG of the current page.
func (s *ScreenCapture) Capture(ctx context.Context) ([]byte, error) {
	if !s.driver.IsRunning() {
		return nil, browser.ErrNotRunning
	}
	return s.driver.CaptureScreenshot(ctx)
}

// CaptureImage captures the page and decodes it.
func (s *ScreenCapture) CaptureImage(ctx context.Context) (image.Image, error) {
	data, err := s.Capture(ctx)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// CaptureAndSave captures the page and writes it as <name>-<millis>.png.
func (s *ScreenCapture) CaptureAndSave(ctx context.Context, name string) (string, error) {
	data, err := s.Capture(ctx)
	if err != nil {
		return "", err
	}
	return s.save(name, data)
}

func (s *ScreenCapture) save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.saveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	filename := filepath.Join(s.saveDir, fmt.Sprintf("%s-%d.png", fileSafe(name), s.now().UnixMilli()))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	s.logger.Debug("Screenshot saved", "filename", filename)
	return filename, nil
}

// fileSafe turns a test name into a file name: letters and digits are kept,
// runs of anything else become one dash.
func fileSafe(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "screenshot"
	}
	return out
}
