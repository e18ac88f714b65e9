package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-system/pkg/logger"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(logger.Nop(), []string{"*"})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	auth := func(token string) (uint, error) {
		if token == "good" {
			return 5, nil
		}
		return 0, errors.New("bad token")
	}
	srv := httptest.NewServer(hub.ServeWS(auth))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
}

func TestHub_NotifyUser(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "good"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections(5) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.NotifyUser(5, "attempt_completed", map[string]int{"attemptId": 9})
	hub.NotifyUser(6, "attempt_completed", map[string]int{"attemptId": 10})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "attempt_completed", msg.Type)
	assert.Equal(t, 9, msg.Data["attemptId"])
}

func TestHub_RejectsBadToken(t *testing.T) {
	_, srv := startHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "bad"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "good"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connections(5) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(5) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
