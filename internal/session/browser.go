// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"vendorbridge/cli/internal/errors"
)

// Browser kinds accepted by the rod launcher.
const (
	KindChromium = "chromium"
	KindChrome   = "chrome"
	KindEdge     = "edge"
)

// LogEntry is one console message or network request observed on the page.
type LogEntry struct {
	Type      string    `json:"type,omitempty"`
	Text      string    `json:"text,omitempty"`
	URL       string    `json:"url,omitempty"`
	Method    string    `json:"method,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BrowserSession is the single browser, its page and the logs collected
// from that page since launch.
type BrowserSession struct {
	Kind     string
	Headless bool
	Browser  *rod.Browser
	Page     *rod.Page

	mu      sync.Mutex
	console []LogEntry
	network []LogEntry
	closeFn func() error
}

// NewBrowserSession assembles a session; closeFn releases the browser process.
func NewBrowserSession(kind string, headless bool, browser *rod.Browser, page *rod.Page, closeFn func() error) *BrowserSession {
	return &BrowserSession{Kind: kind, Headless: headless, Browser: browser, Page: page, closeFn: closeFn}
}

// RecordConsole appends a console message.
func (s *BrowserSession) RecordConsole(e LogEntry) {
	s.mu.Lock()
	s.console = append(s.console, e)
	s.mu.Unlock()
}

// RecordRequest appends a network request.
func (s *BrowserSession) RecordRequest(e LogEntry) {
	s.mu.Lock()
	s.network = append(s.network, e)
	s.mu.Unlock()
}

// ConsoleLog returns a copy of the console messages in arrival order.
func (s *BrowserSession) ConsoleLog() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.console...)
}

// NetworkLog returns a copy of the network requests in arrival order.
func (s *BrowserSession) NetworkLog() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.network...)
}

// Close releases the browser and drops the collected logs.
func (s *BrowserSession) Close() error {
	s.mu.Lock()
	s.console, s.network = nil, nil
	s.mu.Unlock()
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Launcher starts a browser of the given kind with one blank page.
type Launcher func(ctx context.Context, kind string, headless bool) (*BrowserSession, error)

// NewRodLauncher returns a Launcher backed by go-rod. Chromium is fetched
// and managed by rod; chrome and edge use the binaries installed on the host.
func NewRodLauncher(log *zap.Logger) Launcher {
	return func(ctx context.Context, kind string, headless bool) (*BrowserSession, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l := launcher.New().
			Headless(headless).
			NoSandbox(true).
			Delete("use-mock-keychain")

		switch strings.ToLower(kind) {
		case "", KindChromium:
			kind = KindChromium
		case KindChrome:
			bin, ok := launcher.LookPath()
			if !ok {
				return nil, errors.New(errors.ConnectionFailed, "chrome executable not found")
			}
			l = l.Bin(bin)
		case KindEdge:
			bin, err := lookEdge()
			if err != nil {
				return nil, errors.Wrap(errors.ConnectionFailed, "edge executable not found", err)
			}
			l = l.Bin(bin)
		default:
			return nil, errors.Newf(errors.UnsupportedKind, "Unsupported browser type: %s", kind)
		}

		// the process outlives the request that launched it
		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(errors.ConnectionFailed, "failed to launch browser", err)
		}

		browser := rod.New().ControlURL(u)
		if err := browser.Connect(); err != nil {
			l.Kill()
			return nil, errors.Wrap(errors.ConnectionFailed, "failed to connect to browser", err)
		}

		page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			_ = browser.Close()
			l.Kill()
			return nil, errors.Wrap(errors.ConnectionFailed, "failed to open page", err)
		}

		s := NewBrowserSession(kind, headless, browser, page, func() error {
			err := browser.Close()
			l.Kill()
			l.Cleanup()
			return err
		})
		go page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
			s.RecordConsole(LogEntry{
				Type:      string(e.Type),
				Text:      consoleText(e),
				Timestamp: time.Now(),
			})
		}, func(e *proto.NetworkRequestWillBeSent) {
			s.RecordRequest(LogEntry{
				Type:      string(e.Type),
				URL:       e.Request.URL,
				Method:    e.Request.Method,
				Timestamp: time.Now(),
			})
		})()

		log.Info("browser launched", zap.String("kind", kind), zap.Bool("headless", headless))
		return s, nil
	}
}

func consoleText(e *proto.RuntimeConsoleAPICalled) string {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if v := arg.Value.Val(); v != nil {
			parts = append(parts, fmt.Sprint(v))
			continue
		}
		parts = append(parts, arg.Description)
	}
	return strings.Join(parts, " ")
}

func lookEdge() (string, error) {
	var lastErr error
	for _, name := range []string{"microsoft-edge", "microsoft-edge-stable", "msedge"} {
		p, err := exec.LookPath(name)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return "", lastErr
}
