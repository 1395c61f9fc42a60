package httpserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenledger/internal/ledger"
	"tokenledger/internal/store"
)

func TestFeedStreamsMutations(t *testing.T) {
	feed := NewFeed(nil)
	l := ledger.New(store.NewMemoryStore(), ledger.WithObserver(feed))
	server := NewHTTPServer(l, feed, Options{Tokens: []string{testToken}})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()
	defer feed.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?access_token=" + testToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	l.Record("c1", "m1", 3, 4)
	l.Clear()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg FeedMessage
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "recorded", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, int64(7), msg.Event.TotalTokens)
	assert.Equal(t, 1, msg.LogLen)

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "cleared", msg.Type)
}

func TestFeedRejectsUnauthenticated(t *testing.T) {
	feed := NewFeed(nil)
	l := ledger.New(store.NewMemoryStore(), ledger.WithObserver(feed))
	server := NewHTTPServer(l, feed, Options{Tokens: []string{testToken}})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestFeedCloseDisconnects(t *testing.T) {
	feed := NewFeed(nil)
	l := ledger.New(store.NewMemoryStore(), ledger.WithObserver(feed))
	server := NewHTTPServer(l, feed, Options{Tokens: []string{testToken}})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?access_token=" + testToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	feed.Close()
	assert.Equal(t, 0, feed.Subscribers())

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	// Recording after close must not panic on closed channels.
	l.Record("c1", "m1", 1, 1)
}
