package chatws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

type chatService interface {
	Authorize(ctx context.Context, orderID string, userID int64) (*models.Order, error)
	RecentMessages(ctx context.Context, orderID string) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, orderID string, userID int64, userType string, content string, imageURL *string) (*models.ChatMessage, error)
	ReportMessage(ctx context.Context, messageID string) error
}

// Client is one live connection plus its session state. The session fields
// are zero until a join succeeds and are only ever touched from the read
// pump, so no event can observe a half-populated session.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// mu guards closed. The client owns its send channel's lifecycle:
	// only shutdown closes it, and every send goes through trySend, so a
	// hub eviction can never race a dispatch into a closed channel.
	mu     sync.Mutex
	closed bool

	userID   int64
	userType string
	orderID  string
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *Client) joined() bool {
	return c.userID > 0 && c.orderID != ""
}

// trySend queues a payload for the write pump. It reports false, without
// blocking, when the client was shut down or its buffer is full.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once and tears down the
// connection. Safe to call from any goroutine and repeatedly.
func (c *Client) shutdown() {
	c.mu.Lock()
	alreadyClosed := c.closed
	if !alreadyClosed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()

	if !alreadyClosed && c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) evicted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ReadPump consumes events from the connection in order and dispatches
// them. It owns room membership cleanup on disconnect.
func (c *Client) ReadPump(service chatService) {
	defer func() {
		c.hub.Leave(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read: %v", err)
			}
			return
		}

		c.dispatch(context.Background(), service, payload)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(ctx context.Context, service chatService, payload []byte) {
	var event envelope
	if err := json.Unmarshal(payload, &event); err != nil {
		c.writeError("Invalid event payload")
		return
	}

	switch event.Event {
	case EventJoinRoom:
		c.handleJoin(ctx, service, event.Data)
	case EventSendMessage:
		c.handleSend(ctx, service, event.Data)
	case EventReportMessage:
		c.handleReport(ctx, service, event.Data)
	default:
		c.writeError("Unsupported event")
	}
}

func (c *Client) handleJoin(ctx context.Context, service chatService, data json.RawMessage) {
	var req joinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.writeError("Invalid event payload")
		return
	}

	order, err := service.Authorize(ctx, req.OrderID, req.UserID)
	if err != nil {
		c.writeError(err.Error())
		return
	}

	// Re-joining another order overwrites the session and moves the
	// membership; former room peers are not notified.
	c.userID = req.UserID
	c.userType = req.UserType
	c.orderID = order.ID
	c.hub.Join(c, order.ID)

	recent, err := service.RecentMessages(ctx, order.ID)
	if err != nil {
		log.Printf("ws history replay for order %s: %v", order.ID, err)
		c.writeError("Failed to load recent messages")
		return
	}

	c.writeEvent(EventRecentMessages, recent)
}

func (c *Client) handleSend(ctx context.Context, service chatService, data json.RawMessage) {
	if !c.joined() {
		c.writeError("Not authenticated")
		return
	}

	var req sendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.writeError("Invalid event payload")
		return
	}

	message, err := service.SendMessage(ctx, c.orderID, c.userID, c.userType, req.Message, req.ImageURL)
	if err != nil {
		log.Printf("ws send message in order %s: %v", c.orderID, err)
		c.writeError("Failed to send message")
		return
	}

	payload, err := encodeEvent(EventNewMessage, message)
	if err != nil {
		log.Printf("ws encode new message: %v", err)
		c.writeError("Failed to send message")
		return
	}

	c.hub.Broadcast(message.OrderID, payload)
}

func (c *Client) handleReport(ctx context.Context, service chatService, data json.RawMessage) {
	var req reportMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.writeError("Invalid event payload")
		return
	}

	if err := service.ReportMessage(ctx, req.MessageID); err != nil {
		log.Printf("ws report message %s: %v", req.MessageID, err)
		c.writeError("Failed to report message")
		return
	}

	c.writeEvent(EventMessageReported, reportAck{Success: true})
}

// writeEvent queues an event for this connection only. Delivery is
// best-effort: a full buffer or an evicted client drops the payload
// rather than stalling the read pump.
func (c *Client) writeEvent(event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("ws encode %s event: %v", event, err)
		return
	}

	c.trySend(payload)
}

func (c *Client) writeError(message string) {
	c.writeEvent(EventError, message)
}
