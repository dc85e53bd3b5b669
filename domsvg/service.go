package domsvg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hazyhaar/snapkit/domsvg/dom"
	"github.com/hazyhaar/snapkit/domsvg/internal/browser"
	"github.com/hazyhaar/snapkit/domsvg/internal/sink"
	"github.com/hazyhaar/snapkit/domsvg/snapshot"
	"github.com/hazyhaar/snapkit/horosafe"
)

// ErrInvalidRequest is returned for malformed capture or render requests.
var ErrInvalidRequest = errors.New("domsvg: invalid request")

// ErrNoMatch is returned when the selector matches no element on the page.
var ErrNoMatch = browser.ErrNoMatch

// Capturer loads a page and returns the rendered tree of one element.
type Capturer interface {
	Start(ctx context.Context) error
	Capture(ctx context.Context, pageURL, selector string) (*dom.Node, error)
	Close() error
}

// CaptureRequest asks for a snapshot of one element of a live page.
type CaptureRequest struct {
	URL      string   `json:"url"`
	Selector string   `json:"selector,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Size     float64  `json:"size,omitempty"`
}

// RenderRequest asks for a snapshot of an HTML fragment. There is no
// cascade: only style attributes reach the output.
type RenderRequest struct {
	HTML   string   `json:"html"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Size   float64  `json:"size,omitempty"`
}

// Service captures live pages and converts them into snapshots. Captures
// run one at a time against a single browser.
type Service struct {
	cfg      *Config
	capturer Capturer
	conv     *Converter[*dom.Node]
	sinks    *sink.Router
	mu       sync.Mutex
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	capturer Capturer
	convOpts []Option
	sinks    []sink.Sink
}

// SnapshotFunc receives every snapshot the service produces.
type SnapshotFunc func(ctx context.Context, snap *snapshot.Snapshot) error

// WithCapturer replaces the Chrome-backed capturer.
func WithCapturer(c Capturer) ServiceOption {
	return func(o *serviceOptions) { o.capturer = c }
}

// WithConverterOptions passes options to the underlying Converter.
func WithConverterOptions(opts ...Option) ServiceOption {
	return func(o *serviceOptions) { o.convOpts = append(o.convOpts, opts...) }
}

// WithSnapshotHandler adds an in-process receiver next to the configured
// sinks.
func WithSnapshotHandler(fn SnapshotFunc) ServiceOption {
	return func(o *serviceOptions) { o.sinks = append(o.sinks, sink.Func(fn)) }
}

// NewService creates a Service from configuration. A nil cfg uses defaults.
func NewService(cfg *Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o serviceOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.capturer == nil {
		o.capturer = newChromeCapturer(cfg, logger)
	}
	convOpts := append([]Option{
		WithLogger(logger),
		WithDecodeTimeout(cfg.Capture.DecodeTimeout),
	}, o.convOpts...)

	return &Service{
		cfg:      cfg,
		capturer: o.capturer,
		conv:     New[*dom.Node](dom.Engine{}, convOpts...),
		sinks:    sink.NewRouter(logger, append(buildSinks(cfg.Sinks, logger), o.sinks...)...),
		logger:   logger,
	}
}

func buildSinks(cfgs []SinkConfig, logger *slog.Logger) []sink.Sink {
	var sinks []sink.Sink
	for _, sc := range cfgs {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(nil))
		case "webhook":
			sinks = append(sinks, sink.NewWebhook(sc.URL, sink.WithWebhookLogger(logger)))
		default:
			logger.Warn("domsvg: unknown sink type", "type", sc.Type)
		}
	}
	return sinks
}

// Start launches the browser.
func (s *Service) Start(ctx context.Context) error {
	if err := s.capturer.Start(ctx); err != nil {
		return fmt.Errorf("domsvg: start: %w", err)
	}
	s.logger.Info("domsvg: service started", "stealth", s.cfg.Browser.Stealth)
	return nil
}

// Stop shuts the browser down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.capturer.Close(); err != nil {
		s.logger.Warn("domsvg: stop", "error", err)
	}
	if err := s.sinks.Close(); err != nil {
		s.logger.Warn("domsvg: close sinks", "error", err)
	}
	s.logger.Info("domsvg: service stopped")
}

// Capture loads req.URL, converts the selected element and returns the
// snapshot.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*snapshot.Snapshot, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if err := validateSize(req.Width, req.Height, req.Size); err != nil {
		return nil, err
	}
	if !s.cfg.Capture.AllowPrivate {
		if err := horosafe.ValidateURL(req.URL); err != nil {
			return nil, fmt.Errorf("domsvg: capture %s: %w", req.URL, err)
		}
	}
	selector := req.Selector
	if selector == "" {
		selector = s.cfg.Capture.DefaultSelector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.capturer.Capture(ctx, req.URL, selector)
	if err != nil {
		return nil, fmt.Errorf("domsvg: capture %s: %w", req.URL, err)
	}
	snap, err := s.conv.Snapshot(ctx, root, &Options{Width: req.Width, Height: req.Height, Size: req.Size})
	if err != nil {
		return nil, err
	}
	snap.PageURL = req.URL
	snap.Selector = selector
	s.logger.Info("domsvg: captured", "url", req.URL, "selector", selector, "id", snap.ID, "nodes", snap.Nodes)
	s.deliver(ctx, snap)
	return snap, nil
}

// deliver hands snap to the sinks. Delivery failures do not fail the
// capture; the router logs them.
func (s *Service) deliver(ctx context.Context, snap *snapshot.Snapshot) {
	if s.sinks.Len() == 0 {
		return
	}
	_ = s.sinks.Send(ctx, snap)
}

// RenderHTML converts an HTML fragment without a browser. A fragment with
// a single top-level element is converted from that element; anything
// else from the enclosing body.
func (s *Service) RenderHTML(ctx context.Context, req RenderRequest) (*snapshot.Snapshot, error) {
	if strings.TrimSpace(req.HTML) == "" {
		return nil, fmt.Errorf("%w: html is required", ErrInvalidRequest)
	}
	if err := validateSize(req.Width, req.Height, req.Size); err != nil {
		return nil, err
	}
	body, err := dom.FromHTML(strings.NewReader(req.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	snap, err := s.conv.Snapshot(ctx, fragmentRoot(body), &Options{Width: req.Width, Height: req.Height, Size: req.Size})
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, snap)
	return snap, nil
}

// fragmentRoot returns the only element child of body, ignoring
// whitespace, or body itself.
func fragmentRoot(body *dom.Node) *dom.Node {
	var root *dom.Node
	for _, c := range body.Children {
		switch {
		case c.Type == dom.ElementNode && root == nil:
			root = c
		case c.Type == dom.TextNode && strings.TrimSpace(c.Data) == "":
		default:
			return body
		}
	}
	if root == nil {
		return body
	}
	return root
}

func validateSize(w, h *float64, size float64) error {
	if w != nil && *w < 0 {
		return fmt.Errorf("%w: negative width", ErrInvalidRequest)
	}
	if h != nil && *h < 0 {
		return fmt.Errorf("%w: negative height", ErrInvalidRequest)
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidRequest)
	}
	return nil
}

// chromeCapturer captures through a managed Chrome instance.
type chromeCapturer struct {
	mgr    *browser.Manager
	logger *slog.Logger
}

func newChromeCapturer(cfg *Config, logger *slog.Logger) *chromeCapturer {
	return &chromeCapturer{
		mgr: browser.NewManager(browser.Config{
			RemoteURL:        cfg.Browser.Remote,
			MemoryLimit:      cfg.Browser.MemoryLimit,
			RecycleInterval:  cfg.Browser.RecycleInterval,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			Stealth:          browser.ParseStealth(cfg.Browser.Stealth),
			XvfbDisplay:      cfg.Browser.XvfbDisplay,
			NavigateTimeout:  cfg.Capture.NavigateTimeout,
			Logger:           logger,
		}),
		logger: logger,
	}
}

func (c *chromeCapturer) Start(ctx context.Context) error { return c.mgr.Start(ctx) }

func (c *chromeCapturer) Close() error { return c.mgr.Close() }

func (c *chromeCapturer) Capture(ctx context.Context, pageURL, selector string) (*dom.Node, error) {
	tab, err := browser.OpenTab(ctx, c.mgr, pageURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tab.Close(); err != nil {
			c.logger.Debug("domsvg: close tab", "url", pageURL, "error", err)
		}
	}()
	return tab.Capture(ctx, selector)
}
