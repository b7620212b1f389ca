// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package browserexec

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"vendorbridge/cli/internal/operation"
)

func snapshot(_ context.Context, t Target, p operation.Params) (any, error) {
	_ = proto.AccessibilityEnable{}.Call(t.Page)
	tree, err := proto.AccessibilityGetFullAXTree{}.Call(t.Page)
	if err != nil {
		return nil, failed("snapshot", err)
	}

	var root proto.AccessibilityAXNodeID
	if selector := p.String("selector"); selector != "" {
		el, err := t.Page.Element(selector)
		if err != nil {
			return nil, failed(fmt.Sprintf("element %s", selector), err)
		}
		node, err := el.Describe(0, false)
		if err != nil {
			return nil, failed("snapshot", err)
		}
		for _, n := range tree.Nodes {
			if n.BackendDOMNodeID == node.BackendNodeID {
				root = n.NodeID
				break
			}
		}
	}
	return done("Snapshot captured", map[string]any{"snapshot": RenderAXTree(tree.Nodes, root)}), nil
}

// RenderAXTree renders an accessibility tree as an indented outline of
// `- role "name"` lines. An empty root renders from the first node.
// Ignored and unnamed structural nodes are skipped and their children lifted.
func RenderAXTree(nodes []*proto.AccessibilityAXNode, root proto.AccessibilityAXNodeID) string {
	if len(nodes) == 0 {
		return ""
	}
	byID := make(map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode, len(nodes))
	for _, n := range nodes {
		byID[n.NodeID] = n
	}
	if root == "" {
		root = nodes[0].NodeID
	}

	var b strings.Builder
	var walk func(id proto.AccessibilityAXNodeID, depth int)
	walk = func(id proto.AccessibilityAXNodeID, depth int) {
		n, ok := byID[id]
		if !ok {
			return
		}
		role, name := axString(n.Role), axString(n.Name)
		next := depth
		if !skipNode(n, role, name) {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString("- ")
			if role == "StaticText" {
				fmt.Fprintf(&b, "text: %q", name)
			} else {
				b.WriteString(role)
				if name != "" {
					fmt.Fprintf(&b, " %q", name)
				}
				if v := axString(n.Value); v != "" {
					fmt.Fprintf(&b, ": %s", v)
				}
			}
			b.WriteByte('\n')
			next = depth + 1
		}
		if role == "StaticText" {
			return
		}
		for _, child := range n.ChildIDs {
			walk(child, next)
		}
	}
	walk(root, 0)
	return strings.TrimRight(b.String(), "\n")
}

func skipNode(n *proto.AccessibilityAXNode, role, name string) bool {
	if n.Ignored || role == "InlineTextBox" {
		return true
	}
	switch role {
	case "", "none", "generic", "GenericContainer":
		return name == ""
	}
	return false
}

func axString(v *proto.AccessibilityAXValue) string {
	if v == nil || v.Value.Nil() {
		return ""
	}
	if s, ok := v.Value.Val().(string); ok {
		return s
	}
	return fmt.Sprint(v.Value.Val())
}

func screenshotFormat(kind string) (proto.PageCaptureScreenshotFormat, imaging.Format, string) {
	if kind == "jpeg" || kind == "jpg" {
		return proto.PageCaptureScreenshotFormatJpeg, imaging.JPEG, "jpeg"
	}
	return proto.PageCaptureScreenshotFormatPng, imaging.PNG, "png"
}

func takeScreenshot(_ context.Context, t Target, p operation.Params) (any, error) {
	format, imgFormat, kind := screenshotFormat(p.StringOr("type", "png"))
	quality := p.Int("quality", 80)

	var (
		data []byte
		err  error
	)
	if selector := p.String("selector"); selector != "" {
		el, err := t.Page.Element(selector)
		if err != nil {
			return nil, failed(fmt.Sprintf("element %s", selector), err)
		}
		data, err = el.Screenshot(format, quality)
		if err != nil {
			return nil, failed("take_screenshot", err)
		}
	} else {
		req := &proto.PageCaptureScreenshot{Format: format}
		if format == proto.PageCaptureScreenshotFormatJpeg {
			req.Quality = gson.Int(quality)
		}
		data, err = t.Page.Screenshot(p.Bool("fullPage", false), req)
		if err != nil {
			return nil, failed("take_screenshot", err)
		}
	}

	if maxWidth := p.Int("maxWidth", 0); maxWidth > 0 {
		data, err = Downscale(data, maxWidth, imgFormat, quality)
		if err != nil {
			return nil, failed("take_screenshot", err)
		}
	}
	return done("Screenshot captured", map[string]any{
		"screenshot": base64.StdEncoding.EncodeToString(data),
		"type":       kind,
	}), nil
}

// Downscale shrinks an encoded image to maxWidth keeping the aspect ratio.
// Images already narrow enough are returned unchanged.
func Downscale(data []byte, maxWidth int, format imaging.Format, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return data, nil
	}
	img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func getText(_ context.Context, t Target, p operation.Params) (any, error) {
	selector, err := p.RequireString("selector")
	if err != nil {
		return nil, err
	}
	if p.Bool("all", false) {
		els, err := t.Page.Elements(selector)
		if err != nil {
			return nil, failed("get_text", err)
		}
		texts := make([]string, 0, len(els))
		for _, el := range els {
			s, err := el.Text()
			if err != nil {
				return nil, failed("get_text", err)
			}
			texts = append(texts, s)
		}
		return map[string]any{"success": true, "texts": texts, "count": len(texts)}, nil
	}
	el, _, err := element(t, p)
	if err != nil {
		return nil, err
	}
	text, err := el.Text()
	if err != nil {
		return nil, failed("get_text", err)
	}
	return map[string]any{"success": true, "text": text}, nil
}

func getAttribute(_ context.Context, t Target, p operation.Params) (any, error) {
	el, _, err := element(t, p)
	if err != nil {
		return nil, err
	}
	name, err := p.RequireString("attribute")
	if err != nil {
		return nil, err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return nil, failed("get_attribute", err)
	}
	var value any
	if v != nil {
		value = *v
	}
	return map[string]any{"success": true, "attribute": name, "value": value}, nil
}

func getHTML(_ context.Context, t Target, p operation.Params) (any, error) {
	if p.String("selector") == "" {
		html, err := t.Page.HTML()
		if err != nil {
			return nil, failed("get_html", err)
		}
		return map[string]any{"success": true, "html": html}, nil
	}
	el, _, err := element(t, p)
	if err != nil {
		return nil, err
	}
	res, err := el.Eval(`function() { return this.innerHTML }`)
	if err != nil {
		return nil, failed("get_html", err)
	}
	return map[string]any{"success": true, "html": res.Value.Str()}, nil
}
