package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tokenledger/internal/ledger"
)

// Options configures an HTTPServer.
type Options struct {
	Tokens  []string
	Version string
	// DailyWindow is the default ?days for /stats/daily.
	DailyWindow int
	Logger      *zap.Logger
	// Metrics, when set, is served unauthenticated at /metrics.
	Metrics http.Handler
	// MCP, when set, is mounted at /mcp behind auth.
	MCP http.Handler
	// Advertise registers the server over mDNS/Bonjour when it starts listening.
	Advertise bool
}

// HTTPServer represents the HTTP API server
type HTTPServer struct {
	mux         *http.ServeMux
	srv         *http.Server
	tokens      []string
	version     string
	dailyWindow int
	advertise   bool

	ledger *ledger.Ledger
	feed   *Feed
	log    *zap.Logger
}

// NewHTTPServer creates a new HTTP server instance over l. feed may be nil,
// in which case /ws is not registered.
func NewHTTPServer(l *ledger.Ledger, feed *Feed, opts Options) *HTTPServer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DailyWindow <= 0 {
		opts.DailyWindow = 7
	}

	s := &HTTPServer{
		mux:         http.NewServeMux(),
		tokens:      opts.Tokens,
		version:     opts.Version,
		dailyWindow: opts.DailyWindow,
		advertise:   opts.Advertise,
		ledger:      l,
		feed:        feed,
		log:         log.Named("http"),
	}

	s.registerRoutes(opts)
	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// registerRoutes sets up all HTTP routes with middleware
func (s *HTTPServer) registerRoutes(opts Options) {
	// Unauthenticated endpoints
	s.mux.HandleFunc("/health", s.loggingMiddleware(s.handleHealth))
	if opts.Metrics != nil {
		s.mux.Handle("/metrics", opts.Metrics)
	}

	// Usage log
	s.mux.HandleFunc("/usage", s.loggingMiddleware(s.authMiddleware(s.jsonContentTypeMiddleware(s.handleUsage))))

	// Derived views
	s.mux.HandleFunc("/stats/overall", s.loggingMiddleware(s.authMiddleware(s.handleStatsOverall)))
	s.mux.HandleFunc("/stats/conversations", s.loggingMiddleware(s.authMiddleware(s.handleStatsConversations)))
	s.mux.HandleFunc("/stats/conversations/{id}", s.loggingMiddleware(s.authMiddleware(s.handleStatsConversation)))
	s.mux.HandleFunc("/stats/models", s.loggingMiddleware(s.authMiddleware(s.handleStatsModels)))
	s.mux.HandleFunc("/stats/models/{id}", s.loggingMiddleware(s.authMiddleware(s.handleStatsModel)))
	s.mux.HandleFunc("/stats/daily", s.loggingMiddleware(s.authMiddleware(s.handleStatsDaily)))
	s.mux.HandleFunc("/stats/share", s.loggingMiddleware(s.authMiddleware(s.handleStatsShare)))
	s.mux.HandleFunc("/export", s.loggingMiddleware(s.authMiddleware(s.handleExport)))

	if s.feed != nil {
		s.mux.HandleFunc("/ws", s.loggingMiddleware(s.authMiddleware(s.feed.ServeWS)))
	}
	if opts.MCP != nil {
		mcp := s.authMiddleware(opts.MCP.ServeHTTP)
		s.mux.HandleFunc("/mcp", mcp)
		s.mux.HandleFunc("/mcp/", mcp)
	}
}

// Handler returns the root handler, mainly for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until Shutdown. It returns nil after a graceful shutdown.
func (s *HTTPServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *HTTPServer) Serve(ln net.Listener) error {
	s.log.Info("starting server", zap.String("addr", ln.Addr().String()), zap.Int("tokens", len(s.tokens)))

	if s.advertise {
		if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
			stop := startMDNS(tcp.Port, s.version, s.log)
			defer stop()
		}
	}

	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and closes live feed connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.feed != nil {
		s.feed.Close()
	}
	return s.srv.Shutdown(ctx)
}

// parseDays reads ?days, falling back to def. Valid range is 1..366.
func parseDays(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 366 {
		return 0, errInvalidDays
	}
	return n, nil
}

var errInvalidDays = errors.New("days must be an integer between 1 and 366")
