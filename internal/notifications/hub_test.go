package notifications

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestBroadcastWithoutSubscribersIsSafe(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("nobody", Event{Event: "alarm.created"})
	require.Zero(t, hub.Subscribers("nobody"))
}

func TestServeDeliversBroadcastEvents(t *testing.T) {
	hub := NewHub()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("acct-1", w, r)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.Subscribers("acct-1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("acct-1", Event{Event: "alarm.created", AlarmID: "alarm-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "alarm.created", event.Event)
	require.Equal(t, "alarm-1", event.AlarmID)
}

func TestBroadcastManyReachesEachAccount(t *testing.T) {
	hub := NewHub()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(r.URL.Query().Get("account"), w, r)
	}))
	defer server.Close()

	base := "ws" + strings.TrimPrefix(server.URL, "http")
	var conns []*websocket.Conn
	for _, account := range []string{"a", "b"} {
		conn, resp, err := websocket.DefaultDialer.Dial(base+"?account="+account, nil)
		require.NoError(t, err)
		if resp != nil {
			resp.Body.Close()
		}
		conns = append(conns, conn)
	}
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	require.Eventually(t, func() bool {
		return hub.Subscribers("a") == 1 && hub.Subscribers("b") == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastMany([]string{"a", "b"}, Event{Event: "alarm.read_all"})

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var event Event
		require.NoError(t, conn.ReadJSON(&event))
		require.Equal(t, "alarm.read_all", event.Event)
	}
}
