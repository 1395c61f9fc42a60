package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"tokenledger/internal/config"
	"tokenledger/internal/httpserver"
	"tokenledger/internal/ledger"
	"tokenledger/internal/logging"
	mcpserver "tokenledger/internal/mcp"
	"tokenledger/internal/metrics"
	"tokenledger/internal/notify"
	"tokenledger/internal/snapshot"
	"tokenledger/internal/ui"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions are the flags of `tokenledger serve`.
type ServeOptions struct {
	Bind      string
	NoStdio   bool
	Advertise bool
}

// RunServe is the single entry point for `tokenledger serve`.
//
// Always starts:
//   - HTTP REST API, websocket feed and /metrics
//   - streamable-HTTP MCP handler mounted at /mcp
//   - the snapshot scheduler when a schedule is configured
//   - stdio MCP when stdin is a pipe (e.g. spawned by an agent host)
func RunServe(opts ServeOptions) error {
	stdioMCP := !opts.NoStdio && isStdinPipe()

	// When stdio MCP is active, stdout belongs to the JSON-RPC stream.
	var out io.Writer = os.Stdout
	if stdioMCP {
		out = os.Stderr
		ui.Out = os.Stderr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()

	// ── Config & auth token ───────────────────────────────────────────────────
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.HTTP.Tokens) == 0 {
		token, err := generateToken()
		if err != nil {
			return err
		}
		cfg.HTTP.Tokens = []string{token}
		if saveErr := saveToken(token); saveErr != nil {
			ui.ShowWarning("could not save generated token: %v", saveErr)
		}
		fmt.Fprintf(out, "Generated token: %s\n", token)
		fmt.Fprintf(out, "(saved to %s; send it as 'Authorization: Bearer <token>')\n", config.ConfigPath)
	}
	bind := opts.Bind
	if bind == "" {
		bind = cfg.HTTP.Bind
	}

	// ── Metrics, feed & ledger ────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)

	baseLog := logging.NewWithWriter(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	feed := httpserver.NewFeed(baseLog)

	observers := []ledger.Option{ledger.WithObserver(collector), ledger.WithObserver(feed)}
	notifier := notify.New(cfg.Notify.Hook, cfg.Notify.Webhook, baseLog)
	if notifier != nil {
		observers = append(observers, ledger.WithObserver(notifier))
	}

	a, err := newApp(cfg, baseLog, observers...)
	if err != nil {
		if notifier != nil {
			notifier.Close()
		}
		return err
	}
	defer a.Close()
	if notifier != nil {
		defer notifier.Close()
	}
	log := a.log.Named("serve")

	l := a.ledger
	collector.SetLogLength(l.Len())
	log.Info("ledger loaded",
		zap.String("store", cfg.Store.Backend),
		zap.Int("events", l.Len()))

	// ── Snapshot scheduler ────────────────────────────────────────────────────
	if cfg.Snapshot.Schedule != "" {
		dir := cfg.Snapshot.Dir
		if dir == "" {
			dir = filepath.Join(filepath.Dir(config.ConfigPath), "snapshots")
		}
		sched := snapshot.New(l, cfg.Snapshot.Schedule, dir, a.log)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		fmt.Fprintf(out, "Snapshots (%s) -> %s\n", cfg.Snapshot.Schedule, dir)
	}

	// ── HTTP + MCP ────────────────────────────────────────────────────────────
	mcp := mcpserver.NewServer(l, Version)
	srv := httpserver.NewHTTPServer(l, feed, httpserver.Options{
		Tokens:      cfg.HTTP.Tokens,
		Version:     Version,
		DailyWindow: cfg.DailyWindow,
		Logger:      a.log,
		Metrics:     metrics.Handler(reg),
		MCP:         mcpserver.HTTPHandler(mcp),
		Advertise:   opts.Advertise,
	})

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", bind, err)
	}
	fmt.Fprintf(out, "HTTP + MCP server listening on %s\n", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	// ── stdio MCP ─────────────────────────────────────────────────────────────
	if stdioMCP {
		go func() {
			if err := mcpserver.RunStdio(ctx, mcp); err != nil && ctx.Err() == nil {
				log.Warn("stdio MCP session ended", zap.Error(err))
			}
			// The host closed our stdin; nobody is left to serve.
			cancel()
		}()
	}

	select {
	case <-ctx.Done():
		fmt.Fprintf(out, "\nShutting down...\n")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutCtx, c := context.WithTimeout(context.Background(), shutdownTimeout)
	defer c()
	if err := srv.Shutdown(shutCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// isStdinPipe returns true when stdin is a pipe or file (not a terminal),
// i.e. tokenledger was spawned by another process feeding it data.
func isStdinPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// saveToken stores token in the config file. Environment overrides are not
// written back.
func saveToken(token string) error {
	fileCfg, err := config.LoadFileConfig()
	if err != nil {
		return err
	}
	fileCfg.HTTP.Tokens = []string{token}
	return config.SaveConfig(fileCfg)
}

// generateToken returns a random 32-character hex token.
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
