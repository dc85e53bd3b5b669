package domsvg

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/snapkit/domsvg/dom"
	"github.com/hazyhaar/snapkit/domsvg/snapshot"
)

// fakeCapturer serves a fixed tree and records what it was asked for.
type fakeCapturer struct {
	mu       sync.Mutex
	root     *dom.Node
	err      error
	started  bool
	closed   bool
	url, sel string
}

func (f *fakeCapturer) Start(context.Context) error { f.started = true; return nil }
func (f *fakeCapturer) Close() error                { f.closed = true; return nil }

func (f *fakeCapturer) Capture(_ context.Context, pageURL, selector string) (*dom.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url, f.sel = pageURL, selector
	if f.err != nil {
		return nil, f.err
	}
	return f.root, nil
}

func scenarioTree() *dom.Node {
	div := dom.Element("div").SetStyle("display", "block").SetBox(100, 50)
	return div.Append(dom.Element("input").SetValue("x"))
}

func testService(t *testing.T, fc *fakeCapturer, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Capture.AllowPrivate = true
	if mutate != nil {
		mutate(cfg)
	}
	svc := NewService(cfg, nil, WithCapturer(fc),
		WithConverterOptions(WithIDGenerator(func() string { return "snap_1" })))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestService_Capture(t *testing.T) {
	fc := &fakeCapturer{root: scenarioTree()}
	svc := testService(t, fc, nil)

	snap, err := svc.Capture(context.Background(), CaptureRequest{URL: "http://127.0.0.1/page", Size: 2})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if fc.sel != "body" {
		t.Fatalf("selector = %q, want default body", fc.sel)
	}
	if snap.ID != "snap_1" || snap.PageURL != "http://127.0.0.1/page" || snap.Selector != "body" {
		t.Fatalf("snapshot metadata = %+v", snap)
	}
	if !strings.HasPrefix(snap.SVG, `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100">`) {
		t.Fatalf("svg = %q", snap.SVG)
	}
	if !strings.Contains(snap.SVG, `<div style="display: block;" xmlns="http://www.w3.org/1999/xhtml"><input value="x"/></div>`) {
		t.Fatalf("payload = %q", snap.SVG)
	}
}

func TestService_CaptureValidation(t *testing.T) {
	fc := &fakeCapturer{root: scenarioTree()}
	svc := testService(t, fc, func(c *Config) { c.Capture.AllowPrivate = false })

	neg := -1.0
	tests := []struct {
		name string
		req  CaptureRequest
		want error
	}{
		{"empty url", CaptureRequest{}, ErrInvalidRequest},
		{"scheme", CaptureRequest{URL: "file:///etc/passwd"}, ErrUnsafeScheme},
		{"loopback", CaptureRequest{URL: "http://127.0.0.1:8080/"}, ErrSSRF},
		{"private", CaptureRequest{URL: "http://10.1.2.3/"}, ErrSSRF},
		{"negative width", CaptureRequest{URL: "http://93.184.216.34/", Width: &neg}, ErrInvalidRequest},
		{"negative size", CaptureRequest{URL: "http://93.184.216.34/", Size: -2}, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Capture(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if fc.url != "" {
		t.Fatalf("capturer reached with %q", fc.url)
	}
}

func TestService_CaptureError(t *testing.T) {
	fc := &fakeCapturer{err: fmt.Errorf("%w: %q", ErrNoMatch, "#x")}
	svc := testService(t, fc, nil)
	_, err := svc.Capture(context.Background(), CaptureRequest{URL: "http://localhost/", Selector: "#x"})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", err)
	}
}

func TestService_RenderHTML(t *testing.T) {
	svc := testService(t, &fakeCapturer{}, nil)
	w, h := 40.0, 20.0

	snap, err := svc.RenderHTML(context.Background(), RenderRequest{
		HTML:  "\n<p style=\"color: #f00\">a<br>b</p>\n",
		Width: &w, Height: &h,
	})
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	want := `<p style="color: %23f00;" xmlns="http://www.w3.org/1999/xhtml">a<br/>b</p>`
	if !strings.Contains(snap.SVG, want) {
		t.Fatalf("svg = %q, want payload %q", snap.SVG, want)
	}
	if snap.Nodes != 4 {
		t.Fatalf("nodes = %d, want 4", snap.Nodes)
	}

	// Several top-level nodes convert from the body.
	snap, err = svc.RenderHTML(context.Background(), RenderRequest{HTML: "<i>a</i><b>b</b>"})
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(snap.SVG, `<body xmlns="http://www.w3.org/1999/xhtml"><i>a</i><b>b</b></body>`) {
		t.Fatalf("svg = %q", snap.SVG)
	}

	if _, err := svc.RenderHTML(context.Background(), RenderRequest{HTML: "  "}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty html: err = %v", err)
	}
}

func TestService_RenderHTML_PageContent(t *testing.T) {
	svc := testService(t, &fakeCapturer{}, nil)
	snap, err := svc.RenderHTML(context.Background(), RenderRequest{HTML: `<div>` +
		`<img src="logo.png">` +
		`<script>if (a && b < c) {}</script>` +
		`<svg viewBox="0 0 1 1"><linearGradient id="g"></linearGradient></svg>` +
		`</div>`})
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, want := range []string{
		`<img src="logo.png"/>`,
		`<script>if (a &amp;&amp; b &lt; c) {}</script>`,
		`<svg viewBox="0 0 1 1" xmlns="http://www.w3.org/2000/svg"><linearGradient id="g"/></svg>`,
	} {
		if !strings.Contains(snap.SVG, want) {
			t.Errorf("svg = %q, want %q", snap.SVG, want)
		}
	}
	if err := xml.Unmarshal([]byte(snap.SVG), new(struct{})); err != nil {
		t.Fatalf("snapshot is not well-formed XML: %v", err)
	}
}

func TestService_StartStop(t *testing.T) {
	fc := &fakeCapturer{}
	svc := NewService(nil, nil, WithCapturer(fc))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc.Stop()
	if !fc.started || !fc.closed {
		t.Fatalf("capturer lifecycle: started=%v closed=%v", fc.started, fc.closed)
	}
}

// --- HTTP ---

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_Snapshot(t *testing.T) {
	h := testService(t, &fakeCapturer{root: scenarioTree()}, nil).Handler()

	rec := post(t, h, "/snapshot", `{"url":"http://localhost/","selector":"#main"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "<svg ") || rec.Header().Get("ETag") != `"`+snapshot.HashSVG(body)+`"` {
		t.Fatalf("body/etag mismatch: %q", rec.Header().Get("ETag"))
	}
}

func TestHTTP_SnapshotJSON(t *testing.T) {
	h := testService(t, &fakeCapturer{root: scenarioTree()}, nil).Handler()

	rec := post(t, h, "/snapshot.json", `{"url":"http://localhost/","width":10,"height":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	snap, err := snapshot.UnmarshalSnapshot(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Width != 10 || snap.Height != 5 || snap.Nodes != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestHTTP_Errors(t *testing.T) {
	tests := []struct {
		name   string
		fc     *fakeCapturer
		path   string
		body   string
		status int
	}{
		{"bad json", &fakeCapturer{}, "/snapshot", `{`, http.StatusBadRequest},
		{"missing url", &fakeCapturer{}, "/snapshot.json", `{}`, http.StatusBadRequest},
		{"too large", &fakeCapturer{}, "/snapshot", `{"url":"` + strings.Repeat("a", 200) + `"}`, http.StatusRequestEntityTooLarge},
		{"no match", &fakeCapturer{err: ErrNoMatch}, "/snapshot", `{"url":"http://localhost/"}`, http.StatusNotFound},
		{"timeout", &fakeCapturer{err: context.DeadlineExceeded}, "/snapshot", `{"url":"http://localhost/"}`, http.StatusGatewayTimeout},
		{"browser", &fakeCapturer{err: errors.New("crashed")}, "/snapshot", `{"url":"http://localhost/"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testService(t, tt.fc, func(c *Config) { c.HTTP.MaxBody = 128 }).Handler()
			rec := post(t, h, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
				t.Fatalf("error body = %q", rec.Body)
			}
		})
	}
}

func TestHTTP_RenderAndHealth(t *testing.T) {
	h := testService(t, &fakeCapturer{}, nil).Handler()

	rec := post(t, h, "/render", `{"html":"<div>hi</div>","size":2}`)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"svg":`)) {
		t.Fatalf("render: %d %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	hrec := httptest.NewRecorder()
	h.ServeHTTP(hrec, req)
	if hrec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", hrec.Code)
	}
}

// --- MCP ---

var testMCPImpl = &mcp.Implementation{Name: "domsvg-test", Version: "0.0.1"}

func mcpSession(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result
}

func mcpSnapshot(t *testing.T, result *mcp.CallToolResult) *snapshot.Snapshot {
	t.Helper()
	if err := result.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	snap, err := snapshot.UnmarshalSnapshot([]byte(tc.Text))
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func TestMCP_Capture(t *testing.T) {
	fc := &fakeCapturer{root: scenarioTree()}
	session := mcpSession(t, testService(t, fc, nil))

	snap := mcpSnapshot(t, mcpCallTool(t, session, "domsvg_capture", map[string]any{
		"url": "http://localhost/", "selector": "form", "size": 0.5,
	}))
	if fc.sel != "form" || snap.Width != 50 || snap.Height != 25 {
		t.Fatalf("snapshot = %+v (selector %q)", snap, fc.sel)
	}
}

func TestMCP_CaptureRejectsPrivate(t *testing.T) {
	svc := testService(t, &fakeCapturer{root: scenarioTree()}, func(c *Config) { c.Capture.AllowPrivate = false })
	session := mcpSession(t, svc)

	result := mcpCallTool(t, session, "domsvg_capture", map[string]any{"url": "http://127.0.0.1/"})
	if !result.IsError {
		t.Fatal("expected tool error for loopback URL")
	}
}

func TestMCP_RenderHTML(t *testing.T) {
	session := mcpSession(t, testService(t, &fakeCapturer{}, nil))

	snap := mcpSnapshot(t, mcpCallTool(t, session, "domsvg_render_html", map[string]any{
		"html": `<textarea style="width: 50%">x</textarea>`, "width": 300, "height": 100,
	}))
	if !strings.Contains(snap.SVG, `<textarea style="width: 50%25;" xmlns="http://www.w3.org/1999/xhtml">x</textarea>`) {
		t.Fatalf("svg = %q", snap.SVG)
	}
}

func TestService_DeliversSnapshots(t *testing.T) {
	var got []string
	handler := func(_ context.Context, snap *snapshot.Snapshot) error {
		got = append(got, snap.ID)
		return errors.New("receiver down")
	}
	cfg := DefaultConfig()
	cfg.Capture.AllowPrivate = true
	svc := NewService(cfg, nil,
		WithCapturer(&fakeCapturer{root: scenarioTree()}),
		WithSnapshotHandler(handler),
		WithConverterOptions(WithIDGenerator(func() string { return "snap_d" })))

	if _, err := svc.Capture(context.Background(), CaptureRequest{URL: "http://localhost/"}); err != nil {
		t.Fatalf("Capture should not fail on delivery errors: %v", err)
	}
	if _, err := svc.RenderHTML(context.Background(), RenderRequest{HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if len(got) != 2 || got[0] != "snap_d" {
		t.Fatalf("delivered = %v", got)
	}
}
