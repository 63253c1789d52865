package realtime_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brokerage-dashboard/internal/realtime"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialClient upgrades a connection through an httptest server and hands the
// server side to the hub, returning the client side for assertions.
func dialClient(t *testing.T, hub *realtime.Hub) *websocket.Conn {
	t.Helper()

	connected := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Add(conn)
		close(connected)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("server never upgraded the connection")
	}
	return client
}

func TestHubBroadcast(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	defer hub.Close()

	client := dialClient(t, hub)
	require.Equal(t, 1, hub.ClientCount())

	hub.Broadcast("stock_update", map[string]float64{"AAPL": 187.5})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	var event realtime.Event
	require.NoError(t, client.ReadJSON(&event))

	assert.Equal(t, "stock_update", event.Event)
	data, ok := event.Data.(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 187.5, data["AAPL"], 0.0001)
}

func TestHubDropsDeadClients(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	defer hub.Close()

	client := dialClient(t, hub)
	require.Equal(t, 1, hub.ClientCount())
	require.NoError(t, client.Close())

	// The write to the closed connection fails and evicts the client.
	assert.Eventually(t, func() bool {
		hub.Broadcast("stock_update", map[string]float64{"MSFT": 410.0})
		return hub.ClientCount() == 0
	}, 2*time.Second, 50*time.Millisecond)
}

func TestHubCloseDisconnectsAll(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())

	dialClient(t, hub)
	dialClient(t, hub)
	require.Equal(t, 2, hub.ClientCount())

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	hub.Remove("unknown-id") // no-op
	assert.Equal(t, 0, hub.ClientCount())
}
