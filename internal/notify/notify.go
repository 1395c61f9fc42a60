// Package notify forwards ledger activity to external hook scripts and
// webhooks.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tokenledger/internal/ledger"
)

// Payload kinds.
const (
	KindRecorded      = "recorded"
	KindCleared       = "cleared"
	KindPersistFailed = "persist_failed"
)

const queueSize = 256

// Payload is the JSON document handed to hooks and webhooks.
type Payload struct {
	Kind      string             `json:"kind"`
	Event     *ledger.UsageEvent `json:"event,omitempty"`
	LogLength int                `json:"logLength"`
	Op        string             `json:"op,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp string             `json:"timestamp"`
}

type sender func(ctx context.Context, p Payload) error

// Notifier implements ledger.Observer. Deliveries happen on a background
// goroutine in order; when the queue is full new payloads are dropped.
type Notifier struct {
	log     *zap.Logger
	senders map[string]sender
	queue   chan Payload
	now     func() time.Time

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// New returns a notifier for the given hook script and webhook URL, or nil
// when both are empty.
func New(script, webhookURL string, log *zap.Logger) *Notifier {
	senders := make(map[string]sender)
	if script != "" {
		senders["hook"] = NewHookRunner(script).Execute
	}
	if webhookURL != "" {
		senders["webhook"] = NewWebhookNotifier(webhookURL).Send
	}
	if len(senders) == 0 {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	n := &Notifier{
		log:     log.Named("notify"),
		senders: senders,
		queue:   make(chan Payload, queueSize),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) EventRecorded(ev ledger.UsageEvent, logLen int) {
	n.enqueue(Payload{Kind: KindRecorded, Event: &ev, LogLength: logLen})
}

func (n *Notifier) LedgerCleared() {
	n.enqueue(Payload{Kind: KindCleared})
}

func (n *Notifier) PersistFailed(op string, err error) {
	n.enqueue(Payload{Kind: KindPersistFailed, Op: op, Error: err.Error()})
}

func (n *Notifier) enqueue(p Payload) {
	p.Timestamp = n.now().UTC().Format(time.RFC3339)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- p:
	default:
		n.log.Warn("notification queue full, dropping", zap.String("kind", p.Kind))
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for p := range n.queue {
		for name, send := range n.senders {
			if err := send(context.Background(), p); err != nil {
				n.log.Warn("notification failed",
					zap.String("target", name),
					zap.String("kind", p.Kind),
					zap.Error(err))
			}
		}
	}
}

// Close stops accepting payloads and waits for queued ones to be delivered.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}
