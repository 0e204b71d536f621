// Package screenshot captures rendered pages with a headless browser.
package screenshot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

const DefaultPageTimeout = 30 * time.Second

type Options struct {
	// ChromePath overrides the browser binary; empty lets the launcher find or download one.
	ChromePath  string
	PageTimeout time.Duration
	Width       int
	Height      int
}

// Capturer renders one URL to PNG bytes.
type Capturer interface {
	Capture(ctx context.Context, target string) ([]byte, error)
}

// Session owns one headless browser. Callers must Close it on every exit path.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	opts     Options
	logger   zerolog.Logger
}

func Open(opts Options, logger zerolog.Logger) (*Session, error) {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = DefaultPageTimeout
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1280, 800
	}

	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu")
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	logger = logger.With().Str("component", "screenshot").Logger()
	logger.Info().Msg("headless browser started")
	return &Session{launcher: l, browser: browser, opts: opts, logger: logger}, nil
}

func (s *Session) Capture(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.PageTimeout)
	defer cancel()

	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  s.opts.Width,
		Height: s.opts.Height,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to set viewport")
	}
	if err := page.Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	return page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close shuts the browser down and removes its temporary profile. It is safe to call twice.
func (s *Session) Close() error {
	if s == nil || s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.launcher.Cleanup()
	s.browser = nil
	s.logger.Info().Msg("headless browser stopped")
	return err
}
