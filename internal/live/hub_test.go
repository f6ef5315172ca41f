package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gamestats/internal/leaderboard"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) Message {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestLeaderboardChanged_ReachesEveryReceiver(t *testing.T) {
	h := NewHub()
	c1 := &Client{ID: "c1", Send: make(chan []byte, 4)}
	c2 := &Client{ID: "c2", Send: make(chan []byte, 4)}
	h.Register(c1)
	h.Register(c2)
	sub := h.Subscribe()
	assert.Equal(t, 3, h.Count())

	h.LeaderboardChanged(leaderboard.Board{Leaderboard: []leaderboard.Entry{{Rank: 1, PlayerName: "ann", TotalDeaths: 2}}})

	for _, ch := range []chan []byte{c1.Send, c2.Send, sub} {
		msg := receive(t, ch)
		assert.Equal(t, MessageLeaderboard, msg.Type)
		require.NotNil(t, msg.Board)
		require.Len(t, msg.Board.Leaderboard, 1)
		assert.Equal(t, "ann", msg.Board.Leaderboard[0].PlayerName)
	}
}

func TestBroadcast_DropsForFullReceivers(t *testing.T) {
	h := NewHub()
	slow := &Client{ID: "slow", Send: make(chan []byte, 1)}
	h.Register(slow)

	h.Broadcast(Message{Type: "a"})
	h.Broadcast(Message{Type: "b"})

	assert.Equal(t, "a", receive(t, slow.Send).Type)
	select {
	case <-slow.Send:
		t.Fatal("second message should have been dropped")
	default:
	}
}

func TestUnregisterAndUnsubscribeClose(t *testing.T) {
	h := NewHub()
	c := &Client{ID: "c1", Send: make(chan []byte, 1)}
	h.Register(c)
	sub := h.Subscribe()

	h.Unregister("c1")
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	_, ok := <-c.Send
	assert.False(t, ok)
	_, ok = <-sub
	assert.False(t, ok)
	assert.Zero(t, h.Count())
}

func TestClose_SaysByeAndDisconnects(t *testing.T) {
	h := NewHub()
	c := &Client{ID: "c1", Send: make(chan []byte, 2)}
	h.Register(c)

	h.Close()

	assert.Equal(t, MessageBye, receive(t, c.Send).Type)
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Zero(t, h.Count())
}

func TestWritePump_HubCloseEndsWithGoingAway(t *testing.T) {
	h := NewHub()
	registered := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		c := NewClient("c1", conn)
		h.Register(c)
		close(registered)
		conn.Close(c.WritePump(conn.CloseRead(r.Context())), "")
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	<-registered
	h.Close()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageBye, msg.Type)

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
