// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package browserexec runs browser vendor operations on the single page of
// the current browser session. Every handler binds the page to the
// operation context, so element waits end with the operation deadline.
package browserexec

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"vendorbridge/cli/internal/errors"
	"vendorbridge/cli/internal/operation"
	"vendorbridge/cli/internal/session"
)

// Group names the operation set in error messages.
const Group = "Browser"

// DefaultTimeout bounds one browser operation unless parameters.timeout says otherwise.
const DefaultTimeout = 30 * time.Second

const defaultTypeDelay = 100 * time.Millisecond

// Closer releases the browser session; it reports whether one was running.
type Closer func(ctx context.Context) (bool, error)

// Target is what every browser operation runs against.
type Target struct {
	Session *session.BrowserSession
	Page    *rod.Page
	Close   Closer
}

// Operations is the browser operation table.
var Operations = operation.Table[Target]{
	"navigate":         navigate,
	"navigate_back":    navigateBack,
	"navigate_forward": navigateForward,
	"reload":           reload,

	"click":         click,
	"fill":          fill,
	"type":          typeText,
	"press_key":     pressKey,
	"select_option": selectOption,
	"hover":         hover,
	"drag":          drag,
	"fill_form":     fillForm,
	"file_upload":   fileUpload,

	"snapshot":        snapshot,
	"take_screenshot": takeScreenshot,
	"get_text":        getText,
	"get_attribute":   getAttribute,
	"get_html":        getHTML,

	"wait_for":         waitFor,
	"evaluate":         evaluate,
	"console_messages": consoleMessages,
	"network_requests": networkRequests,
	"get_url":          getURL,
	"get_title":        getTitle,
	"resize":           resize,
	"pdf_save":         pdfSave,
	"handle_dialog":    handleDialog,
	"close":            closeBrowser,
}

// NeedsSession reports whether op runs on a page. Only close does not;
// it must never launch a browser just to shut it down.
func NeedsSession(op string) bool { return op != "close" }

// Timeout returns the bound for one operation: parameters.timeout in
// milliseconds when positive, otherwise DefaultTimeout.
func Timeout(p operation.Params) time.Duration {
	if ms := p.Int("timeout", 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return DefaultTimeout
}

// Execute runs op. s may be nil only for operations where NeedsSession is false.
func Execute(ctx context.Context, s *session.BrowserSession, closer Closer, op string, p operation.Params) (any, error) {
	h, err := Operations.Lookup(Group, op)
	if err != nil {
		return nil, err
	}
	t := Target{Session: s, Close: closer}
	if NeedsSession(op) {
		if s == nil || s.Page == nil {
			return nil, errors.New(errors.VendorExecution, "browser session is not active")
		}
		t.Page = s.Page.Context(ctx)
	}
	return h(ctx, t, p)
}

func failed(op string, err error) error {
	return errors.Wrap(errors.VendorExecution, op, err)
}

func done(message string, fields map[string]any) map[string]any {
	out := map[string]any{"success": true, "message": message}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func element(t Target, p operation.Params) (*rod.Element, string, error) {
	selector, err := p.RequireString("selector")
	if err != nil {
		return nil, "", err
	}
	el, err := t.Page.Element(selector)
	if err != nil {
		return nil, selector, failed(fmt.Sprintf("element %s", selector), err)
	}
	return el, selector, nil
}

// navigation waiters must be armed before the action that triggers them.
func armWait(page *rod.Page, waitUntil string) func() {
	switch waitUntil {
	case "commit":
		return func() {}
	case "domcontentloaded":
		return page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	case "networkidle":
		return page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	default:
		return page.WaitNavigation(proto.PageLifecycleEventNameLoad)
	}
}

func navigateWith(op string, t Target, p operation.Params, action func() error) (any, error) {
	wait := armWait(t.Page, p.StringOr("waitUntil", "load"))
	if err := action(); err != nil {
		return nil, failed(op, err)
	}
	wait()
	info, err := t.Page.Info()
	if err != nil {
		return nil, failed(op, err)
	}
	return info, nil
}

func navigate(_ context.Context, t Target, p operation.Params) (any, error) {
	url, err := p.RequireString("url")
	if err != nil {
		return nil, err
	}
	res, err := navigateWith("navigate", t, p, func() error { return t.Page.Navigate(url) })
	if err != nil {
		return nil, err
	}
	info := res.(*proto.TargetTargetInfo)
	return done("Navigated to "+url, map[string]any{"url": info.URL, "title": info.Title}), nil
}

func navigateBack(_ context.Context, t Target, p operation.Params) (any, error) {
	res, err := navigateWith("navigate_back", t, p, t.Page.NavigateBack)
	if err != nil {
		return nil, err
	}
	return done("Navigated back", map[string]any{"url": res.(*proto.TargetTargetInfo).URL}), nil
}

func navigateForward(_ context.Context, t Target, p operation.Params) (any, error) {
	res, err := navigateWith("navigate_forward", t, p, t.Page.NavigateForward)
	if err != nil {
		return nil, err
	}
	return done("Navigated forward", map[string]any{"url": res.(*proto.TargetTargetInfo).URL}), nil
}

func reload(_ context.Context, t Target, p operation.Params) (any, error) {
	res, err := navigateWith("reload", t, p, t.Page.Reload)
	if err != nil {
		return nil, err
	}
	return done("Page reloaded", map[string]any{"url": res.(*proto.TargetTargetInfo).URL}), nil
}

func getURL(_ context.Context, t Target, _ operation.Params) (any, error) {
	info, err := t.Page.Info()
	if err != nil {
		return nil, failed("get_url", err)
	}
	return map[string]any{"success": true, "url": info.URL}, nil
}

func getTitle(_ context.Context, t Target, _ operation.Params) (any, error) {
	info, err := t.Page.Info()
	if err != nil {
		return nil, failed("get_title", err)
	}
	return map[string]any{"success": true, "title": info.Title}, nil
}

func closeBrowser(ctx context.Context, t Target, _ operation.Params) (any, error) {
	if t.Close == nil {
		return done("Browser was not running", nil), nil
	}
	closed, err := t.Close(ctx)
	if err != nil {
		return nil, failed("close", err)
	}
	if !closed {
		return done("Browser was not running", nil), nil
	}
	return done("Browser closed", nil), nil
}
