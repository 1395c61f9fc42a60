package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	data      map[string]string
	getErr    error
	setErr    error
	deleteErr error
	sets      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.data, key)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingObserver struct {
	mu       sync.Mutex
	recorded []UsageEvent
	cleared  int
	failures []string
}

func (o *recordingObserver) EventRecorded(ev UsageEvent, _ int) {
	o.mu.Lock()
	o.recorded = append(o.recorded, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) LedgerCleared() {
	o.mu.Lock()
	o.cleared++
	o.mu.Unlock()
}

func (o *recordingObserver) PersistFailed(op string, _ error) {
	o.mu.Lock()
	o.failures = append(o.failures, op)
	o.mu.Unlock()
}

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, st Store, opts ...Option) (*Ledger, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: base}
	opts = append([]Option{WithClock(clock), WithLocation(time.UTC)}, opts...)
	return New(st, opts...), clock
}

func TestRecord_DerivesTotalAndTimestamp(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())

	ev := l.Record("c1", "m1", 10, 20)

	assert.Equal(t, int64(30), ev.TotalTokens)
	assert.True(t, ev.Timestamp.Equal(base))
	require.Equal(t, 1, l.Len())
	assert.Equal(t, ev, l.Events()[0])
}

func TestRecord_ClampsNegativeCounts(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())

	ev := l.Record("c1", "m1", -5, 7)

	assert.Equal(t, int64(0), ev.InputTokens)
	assert.Equal(t, int64(7), ev.OutputTokens)
	assert.Equal(t, int64(7), ev.TotalTokens)
	assert.Equal(t, int64(7), l.Overall().TotalTokens)
}

func TestRecord_PersistsFullLog(t *testing.T) {
	st := newFakeStore()
	l, _ := newTestLedger(t, st)

	l.Record("c1", "m1", 1, 2)
	l.Record("c2", "m2", 3, 4)

	var doc persistedLog
	require.NoError(t, json.Unmarshal([]byte(st.data[DefaultKey]), &doc))
	require.Len(t, doc.TokenUsageLog, 2)
	assert.Equal(t, "c2", doc.TokenUsageLog[1].ConversationID)
	assert.Equal(t, 2, st.sets)
}

func TestRecord_PersistFailureKeepsEventInMemory(t *testing.T) {
	st := newFakeStore()
	st.setErr = errors.New("quota exceeded")
	obs := &recordingObserver{}
	l, _ := newTestLedger(t, st, WithObserver(obs))

	l.Record("c1", "m1", 10, 10)

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, []string{"set"}, obs.failures)
	assert.Len(t, obs.recorded, 1)
	_, persisted := st.data[DefaultKey]
	assert.False(t, persisted)
}

func TestPersistence_RoundTrip(t *testing.T) {
	st := newFakeStore()
	first, clock := newTestLedger(t, st)
	first.Record("c1", "m1", 10, 20)
	clock.Set(base.Add(time.Minute))
	first.Record("c1", "m2", 5, 5)
	clock.Set(base.Add(2 * time.Minute))
	first.Record("c2", "m1", 100, 1)

	second, _ := newTestLedger(t, st)

	assert.Equal(t, first.Overall(), second.Overall())
	require.Equal(t, first.Len(), second.Len())
	for i, ev := range second.Events() {
		assert.Equal(t, ev.InputTokens+ev.OutputTokens, ev.TotalTokens)
		assert.True(t, ev.Timestamp.Equal(first.Events()[i].Timestamp))
	}
}

func TestLoad_CorruptDataStartsEmpty(t *testing.T) {
	st := newFakeStore()
	st.data[DefaultKey] = "{not json"

	l, _ := newTestLedger(t, st)

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, OverallAnalytics{}, l.Overall())
}

func TestLoad_StoreErrorStartsEmpty(t *testing.T) {
	st := newFakeStore()
	st.getErr = errors.New("disk unavailable")

	l, _ := newTestLedger(t, st)

	assert.Equal(t, 0, l.Len())
}

func TestLoad_RederivesInconsistentTotals(t *testing.T) {
	st := newFakeStore()
	st.data[DefaultKey] = `{"tokenUsageLog":[{"conversationId":"c1","modelId":"m1","inputTokens":4,"outputTokens":6,"totalTokens":999,"timestamp":"2026-03-10T12:00:00Z"}]}`

	l, _ := newTestLedger(t, st)

	require.Equal(t, 1, l.Len())
	assert.Equal(t, int64(10), l.Events()[0].TotalTokens)
}

func TestLoad_NilStore(t *testing.T) {
	l := New(nil)
	l.Record("c1", "m1", 1, 1)
	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func TestClear_IsTotal(t *testing.T) {
	st := newFakeStore()
	obs := &recordingObserver{}
	l, _ := newTestLedger(t, st, WithObserver(obs))
	l.Record("c1", "m1", 10, 20)
	l.Record("c2", "m2", 1, 2)

	l.Clear()

	assert.Equal(t, OverallAnalytics{}, l.Overall())
	assert.Equal(t, 1, obs.cleared)

	fresh, _ := newTestLedger(t, st)
	assert.Equal(t, 0, fresh.Len())
	assert.Equal(t, OverallAnalytics{}, fresh.Overall())
}

func TestClear_DeleteFailureStillClearsMemory(t *testing.T) {
	st := newFakeStore()
	obs := &recordingObserver{}
	l, _ := newTestLedger(t, st, WithObserver(obs))
	l.Record("c1", "m1", 10, 20)
	st.deleteErr = errors.New("locked")

	l.Clear()

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, []string{"delete"}, obs.failures)
}

func TestReload_PicksUpOtherWriters(t *testing.T) {
	st := newFakeStore()
	reader, _ := newTestLedger(t, st)
	writer, _ := newTestLedger(t, st)

	writer.Record("c1", "m1", 2, 3)
	writer.Record("c2", "m1", 1, 1)
	assert.Equal(t, 0, reader.Len())

	assert.Equal(t, 2, reader.Reload())
	assert.Equal(t, int64(7), reader.Overall().TotalTokens)

	writer.Clear()
	assert.Equal(t, 0, reader.Reload())
}

func TestReload_CorruptDataKeepsLog(t *testing.T) {
	st := newFakeStore()
	l, _ := newTestLedger(t, st)
	l.Record("c1", "m1", 1, 1)

	st.data[DefaultKey] = "{not json"
	assert.Equal(t, 1, l.Reload())
	assert.Equal(t, 1, l.Len())
}

func TestReload_StoreErrorKeepsHistory(t *testing.T) {
	st := newFakeStore()
	l, _ := newTestLedger(t, st)
	l.Record("c1", "m1", 2, 3)

	st.getErr = errors.New("connection reset")
	assert.Equal(t, 1, l.Reload())
	assert.Equal(t, int64(5), l.Overall().TotalTokens)

	st.getErr = nil
	l.Record("c2", "m1", 1, 1)

	fresh, _ := newTestLedger(t, st)
	require.Equal(t, 2, fresh.Len())
	_, ok := fresh.Conversation("c1")
	assert.True(t, ok)
}

func TestWithKey_IsolatesLogs(t *testing.T) {
	st := newFakeStore()
	a, _ := newTestLedger(t, st, WithKey("a"))
	a.Record("c1", "m1", 1, 1)

	b, _ := newTestLedger(t, st, WithKey("b"))
	assert.Equal(t, 0, b.Len())
	_, ok := st.data["a"]
	assert.True(t, ok)
}

func TestRecord_ConcurrentWriters(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				l.Record("c", "m", 1, 1)
				_ = l.Overall()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, l.Len())
	assert.Equal(t, int64(400), l.Overall().TotalTokens)
}
