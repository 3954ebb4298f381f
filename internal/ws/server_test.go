package ws

import (
	"chatrelay/internal/relay"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *relay.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := relay.NewRegistry()
	engine := gin.New()
	engine.GET("/ws/chat/:room_id", NewWsServer(reg).Handle)
	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)
	return ts, reg
}

func dial(t *testing.T, ts *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat/" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func memberCount(reg *relay.Registry, room string) int {
	info, ok := reg.Room(room)
	if !ok {
		return -1
	}
	return info.Members
}

func TestBroadcastAndHistoryReplay(t *testing.T) {
	ts, _ := newTestServer(t)

	a := dial(t, ts, "lobby")
	require.NoError(t, a.WriteMessage(websocket.TextMessage,
		[]byte(`{"username":"alice","message":"hi"}`)))
	assert.JSONEq(t, `{"username":"alice","message":"hi"}`, readFrame(t, a))

	// A late joiner receives the history before any new traffic.
	b := dial(t, ts, "lobby")
	assert.JSONEq(t, `{"username":"alice","message":"hi"}`, readFrame(t, b))

	require.NoError(t, a.WriteMessage(websocket.TextMessage,
		[]byte(`{"username":"alice","message":"again"}`)))
	assert.JSONEq(t, `{"username":"alice","message":"again"}`, readFrame(t, a))
	assert.JSONEq(t, `{"username":"alice","message":"again"}`, readFrame(t, b))
}

func TestRoomsIsolatedOverWebsocket(t *testing.T) {
	ts, _ := newTestServer(t)

	a := dial(t, ts, "A")
	b := dial(t, ts, "B")

	require.NoError(t, a.WriteMessage(websocket.TextMessage,
		[]byte(`{"username":"u","message":"only-for-A"}`)))
	assert.JSONEq(t, `{"username":"u","message":"only-for-A"}`, readFrame(t, a))

	require.NoError(t, b.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := b.ReadMessage()
	require.Error(t, err, "room B must see nothing")
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestMalformedPayloadClosesConnection(t *testing.T) {
	ts, reg := newTestServer(t)

	x := dial(t, ts, "r")
	require.Eventually(t, func() bool { return memberCount(reg, "r") == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, x.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	require.NoError(t, x.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := x.ReadMessage()
	require.Error(t, err, "server terminated the offending connection")

	assert.Empty(t, reg.History("r"), "no broadcast occurred")
	require.Eventually(t, func() bool { return memberCount(reg, "r") == 0 },
		time.Second, 5*time.Millisecond)
}

func TestDisconnectRemovesMemberKeepsHistory(t *testing.T) {
	ts, reg := newTestServer(t)

	x := dial(t, ts, "r")
	require.NoError(t, x.WriteMessage(websocket.TextMessage,
		[]byte(`{"username":"alice","message":"hi"}`)))
	assert.JSONEq(t, `{"username":"alice","message":"hi"}`, readFrame(t, x))

	require.NoError(t, x.Close())

	require.Eventually(t, func() bool { return memberCount(reg, "r") == 0 },
		time.Second, 5*time.Millisecond)
	assert.Len(t, reg.History("r"), 1, "history survives the last member leaving")
}
