package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"school-test-bot/internal/flow"
)

// EventHandler receives chat events from connected users. Implemented by
// flow.Coordinator; bound after construction because the coordinator itself
// needs the gateway as its transport.
type EventHandler interface {
	HandleCommand(ctx context.Context, userID int64, command string, messageID int64)
	HandleText(ctx context.Context, userID int64, text string, messageID int64)
	HandleAnswer(ctx context.Context, userID int64, optionIndex int)
}

// Gateway is the websocket stand-in for the chat platform: one connection per
// user, server-assigned outbound message ids, delete directives as frames.
// It implements flow.Transport and quiz.MessageDeleter.
type Gateway struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	handler EventHandler

	nextID atomic.Int64

	mu    sync.RWMutex
	conns map[int64]*client
}

type client struct {
	conn      *websocket.Conn
	send      chan outboundFrame
	done      chan struct{}
	closeOnce sync.Once
}

func NewGateway(log zerolog.Logger) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:   log.With().Str("component", "gateway").Logger(),
		conns: make(map[int64]*client),
	}
}

// Bind attaches the event handler. Must be called before ServeWS.
func (g *Gateway) Bind(handler EventHandler) {
	g.handler = handler
}

type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type textPayload struct {
	Text      string `json:"text"`
	MessageID int64  `json:"messageId"`
}

type commandPayload struct {
	Command   string `json:"command"`
	MessageID int64  `json:"messageId"`
}

type answerPayload struct {
	Index int `json:"index"`
}

type outboundFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type messageFrame struct {
	ID int64 `json:"id"`
	flow.Message
}

type deleteFrame struct {
	ID int64 `json:"id"`
}

// SendMessage assigns a message id and pushes the message to the user's
// connection.
func (g *Gateway) SendMessage(_ context.Context, userID int64, msg flow.Message) (int64, error) {
	cl, ok := g.client(userID)
	if !ok {
		return 0, fmt.Errorf("user %d not connected", userID)
	}
	id := g.nextID.Add(1)
	if err := cl.push(outboundFrame{Type: "message", Payload: messageFrame{ID: id, Message: msg}}); err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteMessage pushes a delete directive for a previously sent message.
func (g *Gateway) DeleteMessage(_ context.Context, userID, messageID int64) error {
	cl, ok := g.client(userID)
	if !ok {
		return fmt.Errorf("user %d not connected", userID)
	}
	return cl.push(outboundFrame{Type: "delete", Payload: deleteFrame{ID: messageID}})
}

// ServeWS upgrades the request and wires the connection into the event loop.
// Events for one user are processed sequentially by the read loop, so session
// mutations are never interleaved for that user.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error().Err(err).Msg("ws upgrade failed")
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan outboundFrame, 32),
		done: make(chan struct{}),
	}
	g.register(userID, cl)
	defer g.unregister(userID, cl)

	go func() {
		for {
			select {
			case frame, ok := <-cl.send:
				if !ok {
					return
				}
				if err := conn.WriteJSON(frame); err != nil {
					g.log.Debug().Err(err).Int64("user_id", userID).Msg("ws write error")
					// Unblock pushes waiting on this connection.
					cl.close()
					return
				}
			case <-cl.done:
				return
			}
		}
	}()

	g.log.Info().Int64("user_id", userID).Msg("user connected")

	for {
		var inbound inboundFrame
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		g.dispatch(r.Context(), userID, inbound)
	}

	g.log.Info().Int64("user_id", userID).Msg("user disconnected")
}

func (g *Gateway) dispatch(ctx context.Context, userID int64, inbound inboundFrame) {
	if g.handler == nil {
		return
	}
	switch inbound.Type {
	case "command":
		var p commandPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return
		}
		g.handler.HandleCommand(ctx, userID, p.Command, p.MessageID)
	case "text":
		var p textPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return
		}
		g.handler.HandleText(ctx, userID, p.Text, p.MessageID)
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return
		}
		g.handler.HandleAnswer(ctx, userID, p.Index)
	}
}

func (g *Gateway) register(userID int64, cl *client) {
	g.mu.Lock()
	prev := g.conns[userID]
	g.conns[userID] = cl
	g.mu.Unlock()

	// A reconnect replaces the old connection.
	if prev != nil {
		prev.close()
	}
}

func (g *Gateway) unregister(userID int64, cl *client) {
	g.mu.Lock()
	if g.conns[userID] == cl {
		delete(g.conns, userID)
	}
	g.mu.Unlock()
	cl.close()
}

func (g *Gateway) client(userID int64) (*client, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cl, ok := g.conns[userID]
	return cl, ok
}

func (cl *client) push(frame outboundFrame) error {
	select {
	case cl.send <- frame:
		return nil
	case <-cl.done:
		return fmt.Errorf("connection closed")
	}
}

func (cl *client) close() {
	cl.closeOnce.Do(func() {
		close(cl.done)
		cl.conn.Close()
	})
}
