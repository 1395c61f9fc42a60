// Package snapshot writes periodic JSON exports of the usage ledger.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Exporter produces the JSON document to write.
type Exporter interface {
	ExportJSON() ([]byte, error)
}

// Scheduler runs exports on a cron schedule.
type Scheduler struct {
	exporter Exporter
	dir      string
	spec     string
	log      *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a scheduler writing into dir on the given cron spec.
func New(exporter Exporter, spec, dir string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		exporter: exporter,
		dir:      dir,
		spec:     spec,
		log:      log.Named("snapshot"),
		now:      time.Now,
	}
}

// Start validates the schedule and begins dispatching.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.spec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("snapshot scheduler started", zap.String("schedule", s.spec), zap.String("dir", s.dir))
	return nil
}

// Stop shuts down the cron runner, waiting for a running export to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.cron = nil
		s.log.Info("snapshot scheduler stopped")
	}
}

func (s *Scheduler) run() {
	if _, err := s.WriteNow(); err != nil {
		s.log.Warn("snapshot failed", zap.Error(err))
	}
}

// WriteNow writes one snapshot immediately and returns its path.
func (s *Scheduler) WriteNow() (string, error) {
	data, err := s.exporter.ExportJSON()
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("usage-%s.json", s.now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	s.log.Debug("snapshot written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
