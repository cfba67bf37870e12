package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/wire"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/resp"
)

// wsEnvelope mirrors the server's outbound frame with a raw payload for
// per-type decoding.
type wsEnvelope struct {
	Type      wire.MessageType `json:"type"`
	ID        string           `json:"id"`
	Timestamp int64            `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var envelope wsEnvelope
	require.NoError(t, conn.ReadJSON(&envelope))

	return envelope
}

func writeEvent(t *testing.T, conn *websocket.Conn, msgType wire.MessageType, payload any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    msgType,
		"payload": payload,
	}))
}

func TestWebSocketRegisterBindsConnection(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	require.Nil(t, deps.Registry.Register("alice", geo.Coordinate{Latitude: 1, Longitude: 1}))

	conn := dialWS(t, srv)

	writeEvent(t, conn, wire.TypeRegister, wire.RegisterPayload{
		Username:  "alice",
		Latitude:  2,
		Longitude: 2,
	})

	envelope := readEnvelope(t, conn)
	require.Equal(t, wire.TypeResult, envelope.Type)

	var result wire.ResultPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &result))
	assert.Equal(t, "registered", result.Status)

	_, connected := deps.Registry.Counts()
	assert.Equal(t, 1, connected)
}

func TestWebSocketRegisterUnknownUserDropped(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	conn := dialWS(t, srv)

	writeEvent(t, conn, wire.TypeRegister, wire.RegisterPayload{
		Username:  "never-created",
		Latitude:  0,
		Longitude: 0,
	})

	envelope := readEnvelope(t, conn)
	require.Equal(t, wire.TypeError, envelope.Type)

	var errPayload wire.ErrorPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &errPayload))
	assert.Equal(t, errs.ErrUnknownUser, errPayload.Code)

	// the event is non-fatal: the connection stays open and unbound
	_, connected := deps.Registry.Counts()
	assert.Equal(t, 0, connected)
}

func TestSendDeliversToNearestConnectedUser(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	require.Nil(t, deps.Registry.Register("alice", geo.Coordinate{Latitude: 0, Longitude: 0}))

	conn := dialWS(t, srv)
	writeEvent(t, conn, wire.TypeRegister, wire.RegisterPayload{Username: "alice"})

	envelope := readEnvelope(t, conn)
	require.Equal(t, wire.TypeResult, envelope.Type)

	// REST send from a nearby position
	body, err := json.Marshal(SendInput{
		Message:  "hello neighbor",
		Position: geo.Coordinate{Latitude: 0.001, Longitude: 0},
	})
	require.NoError(t, err)

	httpResp, err := srv.Client().Post(srv.URL+"/api/send", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()

	var sendEnvelope resp.JSONResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&sendEnvelope))
	require.Equal(t, 0, sendEnvelope.Code)

	data, ok := sendEnvelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sent", data["status"])
	assert.Equal(t, "alice", data["recipient"])

	// the registered connection receives exactly the dispatched message
	delivered := readEnvelope(t, conn)
	require.Equal(t, wire.TypeDelivered, delivered.Type)

	var payload wire.DeliveredPayload
	require.NoError(t, json.Unmarshal(delivered.Payload, &payload))
	assert.Equal(t, "hello neighbor", payload.Message)
	assert.InDelta(t, 0.001, payload.SenderPosition.Latitude, 1e-9)
}

func TestWebSocketSendEvent(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	require.Nil(t, deps.Registry.Register("alice", geo.Coordinate{Latitude: 0, Longitude: 0}))
	require.Nil(t, deps.Registry.Register("bob", geo.Coordinate{Latitude: 10, Longitude: 10}))

	aliceConn := dialWS(t, srv)
	writeEvent(t, aliceConn, wire.TypeRegister, wire.RegisterPayload{Username: "alice"})
	require.Equal(t, wire.TypeResult, readEnvelope(t, aliceConn).Type)

	bobConn := dialWS(t, srv)
	writeEvent(t, bobConn, wire.TypeRegister, wire.RegisterPayload{Username: "bob", Latitude: 10, Longitude: 10})
	require.Equal(t, wire.TypeResult, readEnvelope(t, bobConn).Type)

	// bob asks for dispatch from his own position; alice is far, bob is
	// nearest to himself and receives his own message
	writeEvent(t, bobConn, wire.TypeSend, wire.SendPayload{
		Message:   "ping from bob",
		Latitude:  10,
		Longitude: 10,
	})

	delivered := readEnvelope(t, bobConn)
	require.Equal(t, wire.TypeDelivered, delivered.Type)

	result := readEnvelope(t, bobConn)
	require.Equal(t, wire.TypeResult, result.Type)

	var resultPayload wire.ResultPayload
	require.NoError(t, json.Unmarshal(result.Payload, &resultPayload))
	assert.Equal(t, "sent", resultPayload.Status)
	assert.Equal(t, "bob", resultPayload.Recipient)
}

func TestDisconnectMakesUserIneligible(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	require.Nil(t, deps.Registry.Register("alice", geo.Coordinate{Latitude: 0, Longitude: 0}))

	conn := dialWS(t, srv)
	writeEvent(t, conn, wire.TypeRegister, wire.RegisterPayload{Username: "alice"})
	require.Equal(t, wire.TypeResult, readEnvelope(t, conn).Type)

	conn.Close()

	// disconnect cleanup is asynchronous; wait for the unbind to land
	require.Eventually(t, func() bool {
		_, connected := deps.Registry.Counts()
		return connected == 0
	}, 3*time.Second, 10*time.Millisecond)

	body, err := json.Marshal(SendInput{
		Message:  "anyone?",
		Position: geo.Coordinate{Latitude: 0, Longitude: 0},
	})
	require.NoError(t, err)

	httpResp, err := srv.Client().Post(srv.URL+"/api/send", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer httpResp.Body.Close()

	var envelope resp.JSONResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&envelope))
	assert.Equal(t, errs.ErrNoRecipient, envelope.Code)

	registered, _ := deps.Registry.Counts()
	assert.Equal(t, 1, registered, "disconnect clears the handle but keeps the registration")
}
