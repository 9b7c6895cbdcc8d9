package tool

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	starjson "go.starlark.net/lib/json"
	starmath "go.starlark.net/lib/math"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
)

// DefaultMaxSteps bounds the Starlark computation of a single tool call.
const DefaultMaxSteps = 50_000_000

// Host is the environment tools run in: the modules predeclared for every
// tool and the limits those modules enforce.
type Host struct {
	basePath          string
	allowedExtensions []string
	maxFileSize       int64

	client          *http.Client
	allowedHosts    []string
	blockedHosts    []string
	maxResponseSize int64
	timeout         time.Duration

	maxSteps uint64
	logger   *slog.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithBasePath restricts the files module to a directory.
// All paths will be resolved relative to this base path.
func WithBasePath(path string) HostOption {
	return func(h *Host) {
		h.basePath = path
	}
}

// WithAllowedExtensions restricts the files module to specific file extensions.
func WithAllowedExtensions(exts ...string) HostOption {
	return func(h *Host) {
		h.allowedExtensions = exts
	}
}

// WithMaxFileSize sets the maximum file size for read/write operations.
// Default is 10MB.
func WithMaxFileSize(bytes int64) HostOption {
	return func(h *Host) {
		h.maxFileSize = bytes
	}
}

// WithAllowedHosts restricts requests to specific hosts only.
func WithAllowedHosts(hosts ...string) HostOption {
	return func(h *Host) {
		h.allowedHosts = hosts
	}
}

// WithBlockedHosts blocks requests to specific hosts.
func WithBlockedHosts(hosts ...string) HostOption {
	return func(h *Host) {
		h.blockedHosts = hosts
	}
}

// WithMaxResponseSize sets the maximum response body size.
// Default is 1MB.
func WithMaxResponseSize(bytes int64) HostOption {
	return func(h *Host) {
		h.maxResponseSize = bytes
	}
}

// WithHTTPTimeout sets the request timeout.
// Default is 30 seconds.
func WithHTTPTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.timeout = d
	}
}

// WithMaxSteps bounds the Starlark execution steps of one call.
func WithMaxSteps(n uint64) HostOption {
	return func(h *Host) {
		h.maxSteps = n
	}
}

// WithHostLogger receives the output of print() inside tools.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// NewHost creates a Host with the given options.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		maxFileSize:     10 * 1024 * 1024, // 10MB default
		maxResponseSize: 1024 * 1024,      // 1MB default
		timeout:         30 * time.Second,
		maxSteps:        DefaultMaxSteps,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.client = &http.Client{Timeout: h.timeout}
	return h
}

// Modules returns the names of the predeclared modules, for prompts.
func (h *Host) Modules() map[string]string {
	return map[string]string{
		"json":    "json.encode(x), json.decode(s), json.indent(s)",
		"math":    "math.sqrt, math.pow, math.floor, math.ceil, math.log, math.sin, math.cos, math.pi, math.e, ...",
		"time":    "time.now(), time.parse_time(s), time.parse_duration(s), time.from_timestamp(n)",
		"hashlib": "hashlib.md5(s), hashlib.sha1(s), hashlib.sha256(s), hashlib.sha512(s) return hex digests",
		"arith":   "arith.eval(expression, precision=6) evaluates an arithmetic expression",
		"http":    "http.get(url, headers={}), http.post(url, body='', headers={}) return struct(status, headers, body)",
		"files":   "files.read(path), files.write(path, content, append=False), files.list(path='.'), files.exists(path)",
	}
}

func (h *Host) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"json":    starjson.Module,
		"math":    starmath.Module,
		"time":    startime.Module,
		"hashlib": hashlibModule,
		"arith":   arithModule,
		"http":    h.httpModule(),
		"files":   h.filesModule(),
	}
}

const contextKey = "context"

// newThread creates a thread for one tool call. The thread is cancelled
// when ctx is done; the returned stop releases the watcher.
func (h *Host) newThread(ctx context.Context, name string) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			h.logger.Debug("tool output", "tool", name, "msg", msg)
		},
	}
	thread.SetLocal(contextKey, ctx)
	if h.maxSteps > 0 {
		thread.SetMaxExecutionSteps(h.maxSteps)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return thread, func() { close(done) }
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}
