package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"tokenledger/internal/config"
	"tokenledger/internal/ledger"
	"tokenledger/internal/logging"
	"tokenledger/internal/output"
	"tokenledger/internal/store"
)

// errNotFound marks lookups of conversations or models with no events.
var errNotFound = errors.New("no usage recorded")

const openTimeout = 10 * time.Second

// app bundles what a command needs to work with the ledger.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	kv     store.KV
	ledger *ledger.Ledger
}

// openApp loads configuration, opens the configured store and loads the
// ledger. Logs go to logOut.
func openApp(logOut io.Writer, opts ...ledger.Option) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newApp(cfg, logging.NewWithWriter(cfg.Log.Level, cfg.Log.Format, logOut), opts...)
}

func newApp(cfg *config.Config, log *zap.Logger, opts ...ledger.Option) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	kv, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	base := []ledger.Option{ledger.WithLogger(log), ledger.WithLocation(loc)}
	if cfg.Store.Key != "" {
		base = append(base, ledger.WithKey(cfg.Store.Key))
	}
	return &app{
		cfg:    cfg,
		log:    log,
		kv:     kv,
		ledger: ledger.New(kv, append(base, opts...)...),
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// withApp adapts a ledger-consuming function into a cobra Run body.
func withApp(fn func(a *app) error) {
	a, err := openApp(output.Stderr)
	if err != nil {
		output.PrintError(err)
		return
	}

	// PrintError exits, so close before reporting.
	err = fn(a)
	a.Close()
	if err != nil {
		output.PrintError(err)
	}
}
