package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/models"
)

const RecentMessageLimit = 50

var (
	ErrNotAuthorized    = errors.New("not authorized for this order")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidInput     = errors.New("invalid input")
	ErrOrderNotFound    = errors.New("order not found")
	ErrMessageNotFound  = errors.New("message not found")
)

type orderReader interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
}

type userReader interface {
	GetUsername(ctx context.Context, id int64) (string, error)
}

type messageStore interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	ListRecentByOrder(ctx context.Context, orderID string, limit int) ([]models.ChatMessage, error)
	ListByOrder(ctx context.Context, orderID string, limit int, offset int) ([]models.ChatMessage, int, error)
	MarkReported(ctx context.Context, messageID string) (bool, error)
	ListReported(ctx context.Context, limit int, offset int) ([]models.ChatMessage, int, error)
}

type ChatService struct {
	orderRepo   orderReader
	userRepo    userReader
	messageRepo messageStore
}

func NewChatService(orderRepo orderReader, userRepo userReader, messageRepo messageStore) *ChatService {
	return &ChatService{
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
	}
}

// Authorize decides whether a user may join an order's room. It fails
// closed: a missing order, a store error, or a user who is not party to
// the order all map to ErrNotAuthorized.
func (s *ChatService) Authorize(ctx context.Context, orderID string, userID int64) (*models.Order, error) {
	if orderID == "" || userID <= 0 {
		return nil, ErrNotAuthorized
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, ErrNotAuthorized
	}

	if userID != order.BuyerID && userID != order.SellerID {
		return nil, ErrNotAuthorized
	}

	return order, nil
}

// RecentMessages returns the replay delivered to a freshly joined
// connection: at most RecentMessageLimit messages, oldest first.
func (s *ChatService) RecentMessages(ctx context.Context, orderID string) ([]models.ChatMessage, error) {
	return s.messageRepo.ListRecentByOrder(ctx, orderID, RecentMessageLimit)
}

// SendMessage persists an inbound message and returns the enriched record
// to broadcast. The order is re-fetched so buyer/seller ids are never taken
// from stale session state.
func (s *ChatService) SendMessage(
	ctx context.Context,
	orderID string,
	userID int64,
	userType string,
	content string,
	imageURL *string,
) (*models.ChatMessage, error) {
	if userType != "buyer" && userType != "seller" {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" && imageURL == nil {
		return nil, ErrInvalidInput
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	message := &models.ChatMessage{
		ID:       uuid.NewString(),
		RoomID:   order.ID,
		OrderID:  order.ID,
		BuyerID:  order.BuyerID,
		SellerID: order.SellerID,
		Message:  trimmed,
		ImageURL: imageURL,
		SentBy:   userType,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	username, err := s.userRepo.GetUsername(ctx, userID)
	if err != nil {
		return nil, err
	}
	message.Username = username

	return message, nil
}

// ReportMessage flags a stored message for moderation. Flagging an already
// reported message succeeds; an unknown id is ErrMessageNotFound.
func (s *ChatService) ReportMessage(ctx context.Context, messageID string) error {
	if messageID == "" {
		return ErrInvalidInput
	}

	found, err := s.messageRepo.MarkReported(ctx, messageID)
	if err != nil {
		return err
	}
	if !found {
		return ErrMessageNotFound
	}

	return nil
}

// History pages through an order's persisted messages for the REST surface,
// applying the same party-to-the-order check as join.
func (s *ChatService) History(
	ctx context.Context,
	orderID string,
	userID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.Authorize(ctx, orderID, userID); err != nil {
		return nil, 0, err
	}

	return s.messageRepo.ListByOrder(ctx, orderID, limit, (page-1)*limit)
}

func (s *ChatService) ReportedMessages(
	ctx context.Context,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	return s.messageRepo.ListReported(ctx, limit, (page-1)*limit)
}
