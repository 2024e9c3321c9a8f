// Package httpclient provides the single pooled HTTP client shared by
// repository clients and the download engine, parameterized by the
// five timeout tiers in §4.10, plus an optional injected request
// tracer.
package httpclient

import (
	"net/http"
	"sync"
	"time"

	commonshttp "github.com/flanksource/commons/http"
	"github.com/flanksource/commons/logger"
)

// Purpose selects one of the five timeout tiers.
type Purpose string

const (
	PurposeLiveness  Purpose = "liveness"  // HEAD / existence checks
	PurposeScrape    Purpose = "scrape"    // HTML scraping
	PurposeForgeAPI  Purpose = "forge-api" // forge API requests
	PurposeDownload  Purpose = "download"  // file download
	PurposeFallback  Purpose = "fallback"  // anything else
)

func timeoutFor(purpose Purpose, globalTimeoutSeconds int) time.Duration {
	switch purpose {
	case PurposeLiveness:
		return 5 * time.Second
	case PurposeScrape:
		return 10 * time.Second
	case PurposeForgeAPI:
		return 15 * time.Second
	case PurposeDownload:
		cap := time.Duration(globalTimeoutSeconds) * 10 * time.Second
		if cap <= 0 {
			cap = 300 * time.Second
		}
		return cap
	default:
		return 30 * time.Second
	}
}

// Event is one recorded request, captured by a Tracer.
type Event struct {
	Method    string
	URL       string
	StartedAt time.Time
	Status    int
	Duration  time.Duration
	Err       error
}

// Tracer records HTTP request/response pairs for post-hoc inspection.
// It is injected into Client, never monkey-patched onto a global.
type Tracer struct {
	mu     sync.Mutex
	events []Event
}

func NewTracer() *Tracer { return &Tracer{} }

func (t *Tracer) record(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

// Events returns a snapshot of all recorded events.
func (t *Tracer) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

type tracingTransport struct {
	next   http.RoundTripper
	tracer *Tracer
}

func (rt *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := rt.next.RoundTrip(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	rt.tracer.record(Event{
		Method:    req.Method,
		URL:       req.URL.String(),
		StartedAt: started,
		Status:    status,
		Duration:  time.Since(started),
		Err:       err,
	})
	return resp, err
}

// Option configures the client built by New.
type Option func(*options)

type options struct {
	purpose        Purpose
	timeoutSeconds int
	userAgent      string
	tracer         *Tracer
}

func WithPurpose(p Purpose) Option { return func(o *options) { o.purpose = p } }

func WithGlobalTimeoutSeconds(s int) Option { return func(o *options) { o.timeoutSeconds = s } }

func WithUserAgent(ua string) Option { return func(o *options) { o.userAgent = ua } }

func WithTracer(t *Tracer) Option { return func(o *options) { o.tracer = t } }

// userAgentTransport stamps every outgoing request with the
// configured User-Agent, satisfying §6.5 ("User-Agent is always set").
type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (rt *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", rt.userAgent)
	}
	return rt.next.RoundTrip(req)
}

// New returns a configured *http.Client for the given purpose.
func New(opts ...Option) *http.Client {
	cfg := &options{
		purpose:        PurposeFallback,
		timeoutSeconds: 30,
		userAgent:      "appimage-updater/1.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	timeout := timeoutFor(cfg.purpose, cfg.timeoutSeconds)

	client := commonshttp.NewClient().Timeout(timeout)
	if logger.IsTraceEnabled() {
		client = client.WithHttpLogging(logger.Trace1, logger.Trace2)
	}

	var transport http.RoundTripper = client
	transport = &userAgentTransport{next: transport, userAgent: cfg.userAgent}
	if cfg.tracer != nil {
		transport = &tracingTransport{next: transport, tracer: cfg.tracer}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
