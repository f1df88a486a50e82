package handlers

import (
	"context"
	"errors"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/models"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/services"
	chatws "github.com/tomurashigaraki22/ripple-websocket-server/internal/websocket"
)

type chatApplicationService interface {
	Authorize(ctx context.Context, orderID string, userID int64) (*models.Order, error)
	RecentMessages(ctx context.Context, orderID string) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, orderID string, userID int64, userType string, content string, imageURL *string) (*models.ChatMessage, error)
	ReportMessage(ctx context.Context, messageID string) error
	History(ctx context.Context, orderID string, userID int64, page int, limit int) ([]models.ChatMessage, int, error)
	ReportedMessages(ctx context.Context, page int, limit int) ([]models.ChatMessage, int, error)
}

type ChatHandler struct {
	service chatApplicationService
	hub     *chatws.Hub
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub) *ChatHandler {
	return &ChatHandler{
		service: service,
		hub:     hub,
	}
}

func (h *ChatHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}
	return c.Next()
}

// HandleWebSocket runs one connection. Identity arrives later with the
// join_room event; the socket itself is anonymous until then.
func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	client := chatws.NewClient(h.hub, conn)
	go client.WritePump()
	client.ReadPump(h.service)
}

// GetOrderMessages serves paginated persisted history over REST. The
// caller must be party to the order, same rule as joining the room.
func (h *ChatHandler) GetOrderMessages(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order id"})
	}

	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.History(c.Context(), orderID, userID, page, limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

// ListReportedMessages is the moderation review feed. Like report_message
// itself it requires no session context.
func (h *ChatHandler) ListReportedMessages(c *fiber.Ctx) error {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ReportedMessages(c.Context(), page, limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotAuthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Not authorized for this order"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrOrderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	case errors.Is(err, services.ErrMessageNotFound), errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
