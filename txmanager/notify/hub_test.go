package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/logging"
)

func TestHubPublishesToConnectedObserver(t *testing.T) {
	hub := New(logging.New("notify-test"))
	server := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the server goroutine time to register the connection.
	time.Sleep(20 * time.Millisecond)

	hub.Publish(Event{ActionID: "a1", LinkID: "l1", Type: domain.ActionTypeUse, State: domain.StateSuccess, Timestamp: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(msg, &evt))
	require.Equal(t, "a1", evt.ActionID)
	require.Equal(t, domain.StateSuccess, evt.State)
}

func TestHubPublishWithNoObserversIsNoop(t *testing.T) {
	hub := New(logging.New("notify-test"))
	hub.Publish(Event{ActionID: "a2"})
}
