/*
Package session manages the lifecycle of a single websocket connection.

This file defines the Client struct, representing an active transport session.
A Client is the connection handle the presence registry routes outbound
messages through: it implements presence.Handle with a buffered, non-blocking
send queue drained by WritePump.
*/
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"geodispatch/internal/app/dispatch"
	"geodispatch/internal/app/geo"
	"geodispatch/internal/app/presence"
	"geodispatch/internal/app/wire"
	"geodispatch/internal/pkg/errs"
	"geodispatch/internal/pkg/logx"
)

const (
	// timeout duration for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// MaxContentBytes is the maximum allowed size (in bytes) for message content.
	MaxContentBytes = 4096

	// sendQueueSize is the capacity of the per-client outbound queue.
	sendQueueSize = 256
)

// PositionRefreshHook is invoked after a REGISTER event refreshes a user's
// position in the registry, so the durable store can follow. May be nil.
type PositionRefreshHook func(username string, pos geo.Coordinate)

// Client represents an active websocket connection.
// A connection carries no identity until the client sends a REGISTER event;
// the upgrade alone never mutates the registry.
type Client struct {
	// id uniquely identifies this transport session.
	id string

	// underlying websocket connection object.
	conn *websocket.Conn

	// registry holds user identities and connection handles.
	registry *presence.Registry

	// dispatcher routes SEND events to the nearest connected user.
	dispatcher *dispatch.Dispatcher

	// refreshPosition mirrors registry position refreshes to the durable
	// store; nil when the store is disabled.
	refreshPosition PositionRefreshHook

	// send is a buffered channel queuing outbound frames for WritePump.
	send chan []byte

	// sendMu guards closed; Send and closeSend may race with a dispatch
	// that copied this handle out of the registry before the unbind.
	sendMu sync.Mutex
	closed bool

	// structured logger with session context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded websocket connection.
func NewClient(conn *websocket.Conn, registry *presence.Registry, dispatcher *dispatch.Dispatcher, refreshPosition PositionRefreshHook) *Client {
	id := uuid.NewString()

	clientLogger := logx.Logger().With().
		Str("component", "session").
		Str("session_id", id).
		Logger()

	return &Client{
		id:              id,
		conn:            conn,
		registry:        registry,
		dispatcher:      dispatcher,
		refreshPosition: refreshPosition,
		send:            make(chan []byte, sendQueueSize),
		logger:          clientLogger,
	}
}

// ID implements presence.Handle.
func (c *Client) ID() string {
	return c.id
}

// Send implements presence.Handle. It marshals the payload and enqueues it
// without blocking; a full queue means the client is not draining and the
// message is dropped with an error. A send after disconnect cleanup fails
// the same way a stale handle does.
func (c *Client) Send(v any) error {
	messageBytes, err := json.Marshal(v)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling outbound message")
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return fmt.Errorf("session closed")
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping message")
		return fmt.Errorf("client send queue full")
	}
}

// closeSend marks the session closed and closes the send channel so WritePump
// drains the remaining frames and terminates. Idempotent.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump handles reading events from the websocket connection.
// It handles heartbeats (Pong), event parsing, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
// UnbindConnection is idempotent and safe even if this session was never bound.
// Closing the send channel lets WritePump flush and exit promptly instead of
// waiting for the next ping to fail.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.registry.UnbindConnection(c)

	c.closeSend()

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundMessage handles raw byte events received from the client.
func (c *Client) processInboundMessage(messageBytes []byte) {
	var inboundMsg struct {
		Type    wire.MessageType `json:"type"`
		Payload json.RawMessage  `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inboundMsg); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch inboundMsg.Type {
	case wire.TypeRegister:
		c.handleRegister(inboundMsg.Payload)

	case wire.TypeSend:
		c.handleSend(inboundMsg.Payload)

	default:
		c.logger.Warn().Str("msg_type", string(inboundMsg.Type)).Msg("Client sent unsupported message type")
	}
}

// handleRegister binds this session to a registered username and refreshes its position.
// A REGISTER for a username that was never created is dropped with a warning;
// the connection stays open so the client can retry after registering.
func (c *Client) handleRegister(payloadBytes json.RawMessage) {
	var payload wire.RegisterPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid REGISTER payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if payload.Username == "" {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	pos := geo.Coordinate{Latitude: payload.Latitude, Longitude: payload.Longitude}
	if customErr := pos.Validate(); customErr != nil {
		c.SendError(customErr)
		return
	}

	if customErr := c.registry.BindConnection(payload.Username, c); customErr != nil {
		c.logger.Warn().
			Str("username", payload.Username).
			Msg("REGISTER event for unknown username dropped.")
		c.SendError(customErr)
		return
	}

	if customErr := c.registry.UpdatePosition(payload.Username, pos); customErr != nil {
		c.SendError(customErr)
		return
	}

	if c.refreshPosition != nil {
		c.refreshPosition(payload.Username, pos)
	}

	c.logger.Info().Str("username", payload.Username).Msg("Session bound to username.")

	c.sendResult(wire.ResultPayload{Status: "registered"})
}

// handleSend dispatches a message to the nearest connected user.
func (c *Client) handleSend(payloadBytes json.RawMessage) {
	var payload wire.SendPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid SEND payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if len(payload.Message) > MaxContentBytes {
		c.SendError(errs.NewError(errs.ErrMessageTooLong))
		return
	}

	pos := geo.Coordinate{Latitude: payload.Latitude, Longitude: payload.Longitude}
	if customErr := pos.Validate(); customErr != nil {
		c.SendError(customErr)
		return
	}

	delivery, customErr := c.dispatcher.Dispatch(pos, payload.Message)
	if customErr != nil {
		c.SendError(customErr)
		return
	}

	c.sendResult(wire.ResultPayload{
		Status:     "sent",
		Recipient:  delivery.Recipient,
		DistanceKm: delivery.DistanceKm,
	})
}

// sendResult queues a RESULT message acknowledging a client event.
func (c *Client) sendResult(payload wire.ResultPayload) {
	resultMsg := wire.NewMessage(wire.TypeResult, payload)

	if err := c.Send(resultMsg); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue RESULT message")
	}
}

// SendError queues an ERROR message describing a failed client event.
func (c *Client) SendError(customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	errorMsg := wire.NewMessage(wire.TypeError, wire.ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})

	if err := c.Send(errorMsg); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue ERROR message")
	}
}

// WritePump handles writing frames from the Client.send channel to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles frames pulled from the send channel, writing them to the websocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic websocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
