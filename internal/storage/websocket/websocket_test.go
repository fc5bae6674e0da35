package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/pkg/core"
	"github.com/gridclash/arena/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_match/end_match.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartMatch || env.Type == streaming.TypeEndMatch {
				ack := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndMatch(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(&core.Match{ID: "m-1", HostName: "arena"}))
	winner := "alice"
	require.NoError(t, b.EndMatch(&core.MatchResult{MatchID: "m-1", WinnerID: &winner, Decided: true}))

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartMatch, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndMatch, msgs[len(msgs)-1].Type)
	assert.Contains(t, string(msgs[0].Payload), `"m-1"`)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartMatch(&core.Match{ID: "m-2"}))
	require.NoError(t, b.AddPlayer(&core.Player{ID: "alice", Health: 100}))
	require.NoError(t, b.RecordAction(&core.ActionRecord{Seq: 1, Outcome: core.OutcomeApplied}))
	require.NoError(t, b.RecordKill(&core.KillEvent{KillerID: "alice", VictimID: "bob"}))
	require.NoError(t, b.RecordEviction(&core.EvictionEvent{PlayerID: "carol"}))
	require.NoError(t, b.EndMatch(&core.MatchResult{MatchID: "m-2"}))

	// the end ack arrives after everything queued before it
	msgs := ml.all()
	types := make(map[string]int)
	for _, m := range msgs {
		types[m.Type]++
	}

	assert.Equal(t, 1, types[streaming.TypeStartMatch])
	assert.Equal(t, 1, types[streaming.TypeEndMatch])
	assert.Equal(t, 1, types[streaming.TypeAddPlayer])
	assert.Equal(t, 1, types[streaming.TypeAction])
	assert.Equal(t, 1, types[streaming.TypeKill])
	assert.Equal(t, 1, types[streaming.TypeEviction])
}

func TestStartMatch_AckTimeoutWhenServerSilent(t *testing.T) {
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	defer b.Close()

	data, err := streaming.Marshal(streaming.TypeStartMatch, nil)
	require.NoError(t, err)
	err = b.conn.sendAndWait(data, streaming.TypeStartMatch, 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout waiting for ack")
}

func TestInit_DialError(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/none"})
	assert.Error(t, b.Init())

	b = New(Config{URL: "://bad"})
	assert.Error(t, b.Init())
}

func TestClose_Idempotent(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestBackoffPolicy(t *testing.T) {
	policy := newBackoff()

	var waits []time.Duration
	for {
		d := policy.NextBackOff()
		if d == backoff.Stop {
			break
		}
		waits = append(waits, d)
	}

	require.Len(t, waits, maxReconnect)
	for _, d := range waits {
		assert.LessOrEqual(t, d, maxBackoff+maxBackoff/2)
		assert.Positive(t, d)
	}
}
