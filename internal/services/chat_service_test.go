package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tomurashigaraki22/ripple-websocket-server/internal/models"
)

type stubOrderRepo struct {
	orders map[string]*models.Order
	err    error
	calls  int
}

func (s *stubOrderRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	order, ok := s.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return order, nil
}

type stubUserRepo struct {
	usernames map[int64]string
	calls     int
}

func (s *stubUserRepo) GetUsername(_ context.Context, id int64) (string, error) {
	s.calls++
	username, ok := s.usernames[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return username, nil
}

type stubMessageRepo struct {
	created      []models.ChatMessage
	createErr    error
	recent       []models.ChatMessage
	recentErr    error
	lastLimit    int
	lastOffset   int
	listCalls    int
	reportedIDs  map[string]bool
	reportErr    error
	reportCalls  int
	historyTotal int
}

func (s *stubMessageRepo) Create(_ context.Context, message *models.ChatMessage) error {
	if s.createErr != nil {
		return s.createErr
	}
	message.CreatedAt = time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	s.created = append(s.created, *message)
	return nil
}

func (s *stubMessageRepo) ListRecentByOrder(_ context.Context, _ string, limit int) ([]models.ChatMessage, error) {
	s.lastLimit = limit
	return s.recent, s.recentErr
}

func (s *stubMessageRepo) ListByOrder(_ context.Context, _ string, limit int, offset int) ([]models.ChatMessage, int, error) {
	s.listCalls++
	s.lastLimit = limit
	s.lastOffset = offset
	return s.recent, s.historyTotal, nil
}

func (s *stubMessageRepo) MarkReported(_ context.Context, messageID string) (bool, error) {
	s.reportCalls++
	if s.reportErr != nil {
		return false, s.reportErr
	}
	if !s.reportedIDs[messageID] {
		return false, nil
	}
	return true, nil
}

func (s *stubMessageRepo) ListReported(_ context.Context, limit int, offset int) ([]models.ChatMessage, int, error) {
	s.lastLimit = limit
	s.lastOffset = offset
	return s.recent, s.historyTotal, nil
}

func newTestService(orders *stubOrderRepo, users *stubUserRepo, messages *stubMessageRepo) *ChatService {
	if orders == nil {
		orders = &stubOrderRepo{}
	}
	if users == nil {
		users = &stubUserRepo{}
	}
	if messages == nil {
		messages = &stubMessageRepo{}
	}
	return NewChatService(orders, users, messages)
}

func orderO1() *models.Order {
	return &models.Order{ID: "O1", BuyerID: 1, SellerID: 2}
}

func TestAuthorizeAllowsOnlyOrderParties(t *testing.T) {
	orders := &stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}
	service := newTestService(orders, nil, nil)

	for _, userID := range []int64{1, 2} {
		order, err := service.Authorize(context.Background(), "O1", userID)
		if err != nil {
			t.Fatalf("expected user %d to be authorized, got %v", userID, err)
		}
		if order.ID != "O1" {
			t.Fatalf("expected order O1, got %s", order.ID)
		}
	}

	if _, err := service.Authorize(context.Background(), "O1", 3); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for a third party, got %v", err)
	}
}

func TestAuthorizeFailsClosed(t *testing.T) {
	service := newTestService(&stubOrderRepo{orders: map[string]*models.Order{}}, nil, nil)
	if _, err := service.Authorize(context.Background(), "missing", 1); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for missing order, got %v", err)
	}

	service = newTestService(&stubOrderRepo{err: errors.New("connection refused")}, nil, nil)
	if _, err := service.Authorize(context.Background(), "O1", 1); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized on store error, got %v", err)
	}

	service = newTestService(&stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}, nil, nil)
	if _, err := service.Authorize(context.Background(), "", 1); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for empty order id, got %v", err)
	}
}

func TestSendMessagePersistsDenormalizedOrderFields(t *testing.T) {
	orders := &stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}
	users := &stubUserRepo{usernames: map[int64]string{1: "alice"}}
	messages := &stubMessageRepo{}
	service := newTestService(orders, users, messages)

	sent, err := service.SendMessage(context.Background(), "O1", 1, "buyer", "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if got := len(messages.created); got != 1 {
		t.Fatalf("expected exactly one persisted message, got %d", got)
	}
	stored := messages.created[0]
	if stored.OrderID != "O1" || stored.RoomID != "O1" {
		t.Fatalf("expected room and order id O1, got %s / %s", stored.RoomID, stored.OrderID)
	}
	if stored.BuyerID != 1 || stored.SellerID != 2 {
		t.Fatalf("expected denormalized buyer/seller 1/2, got %d/%d", stored.BuyerID, stored.SellerID)
	}
	if stored.SentBy != "buyer" || stored.Message != "hello" {
		t.Fatalf("unexpected stored message %+v", stored)
	}
	if stored.ID == "" {
		t.Fatal("expected a generated message id")
	}

	if sent.ID != stored.ID || sent.Message != stored.Message || sent.SentBy != stored.SentBy {
		t.Fatalf("broadcast record diverges from stored row: %+v vs %+v", sent, stored)
	}
	if sent.Username != "alice" {
		t.Fatalf("expected resolved username alice, got %q", sent.Username)
	}
	if sent.CreatedAt.IsZero() {
		t.Fatal("expected server-assigned timestamp")
	}
}

func TestSendMessageGeneratesUniqueIDs(t *testing.T) {
	orders := &stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}
	users := &stubUserRepo{usernames: map[int64]string{1: "alice"}}
	messages := &stubMessageRepo{}
	service := newTestService(orders, users, messages)

	first, err := service.SendMessage(context.Background(), "O1", 1, "buyer", "one", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	second, err := service.SendMessage(context.Background(), "O1", 1, "buyer", "two", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected unique message ids, both were %s", first.ID)
	}
}

func TestSendMessageUnknownOrderNeverPersists(t *testing.T) {
	messages := &stubMessageRepo{}
	service := newTestService(&stubOrderRepo{orders: map[string]*models.Order{}}, nil, messages)

	if _, err := service.SendMessage(context.Background(), "missing", 1, "buyer", "hello", nil); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if len(messages.created) != 0 {
		t.Fatalf("expected no persisted messages, got %d", len(messages.created))
	}
}

func TestSendMessageRejectsInvalidInput(t *testing.T) {
	orders := &stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}
	messages := &stubMessageRepo{}
	service := newTestService(orders, nil, messages)

	if _, err := service.SendMessage(context.Background(), "O1", 1, "admin", "hello", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad role, got %v", err)
	}
	if _, err := service.SendMessage(context.Background(), "O1", 1, "buyer", "   ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank message, got %v", err)
	}
	if len(messages.created) != 0 {
		t.Fatalf("expected no persisted messages, got %d", len(messages.created))
	}
}

func TestSendMessageAllowsImageOnly(t *testing.T) {
	orders := &stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}
	users := &stubUserRepo{usernames: map[int64]string{2: "bob"}}
	messages := &stubMessageRepo{}
	service := newTestService(orders, users, messages)

	image := "https://cdn.example.com/receipt.png"
	sent, err := service.SendMessage(context.Background(), "O1", 2, "seller", "", &image)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if sent.ImageURL == nil || *sent.ImageURL != image {
		t.Fatalf("expected image url to round-trip, got %v", sent.ImageURL)
	}
}

func TestSendMessageCreateFailureSkipsEnrichment(t *testing.T) {
	orders := &stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}
	users := &stubUserRepo{usernames: map[int64]string{1: "alice"}}
	messages := &stubMessageRepo{createErr: errors.New("insert failed")}
	service := newTestService(orders, users, messages)

	if _, err := service.SendMessage(context.Background(), "O1", 1, "buyer", "hello", nil); err == nil {
		t.Fatal("expected error from failed insert")
	}
	if users.calls != 0 {
		t.Fatalf("expected no username lookup after failed insert, got %d", users.calls)
	}
}

func TestRecentMessagesUsesReplayLimit(t *testing.T) {
	messages := &stubMessageRepo{recent: []models.ChatMessage{{ID: "m1"}, {ID: "m2"}}}
	service := newTestService(nil, nil, messages)

	replay, err := service.RecentMessages(context.Background(), "O1")
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(replay) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(replay))
	}
	if messages.lastLimit != RecentMessageLimit {
		t.Fatalf("expected replay limit %d, got %d", RecentMessageLimit, messages.lastLimit)
	}
}

func TestReportMessageIsIdempotent(t *testing.T) {
	messages := &stubMessageRepo{reportedIDs: map[string]bool{"m1": true}}
	service := newTestService(nil, nil, messages)

	if err := service.ReportMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("first report: %v", err)
	}
	if err := service.ReportMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("second report: %v", err)
	}
	if messages.reportCalls != 2 {
		t.Fatalf("expected 2 update calls, got %d", messages.reportCalls)
	}
}

func TestReportMessageUnknownIDFails(t *testing.T) {
	messages := &stubMessageRepo{reportedIDs: map[string]bool{}}
	service := newTestService(nil, nil, messages)

	if err := service.ReportMessage(context.Background(), "ghost"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	if err := service.ReportMessage(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestHistoryRequiresOrderParty(t *testing.T) {
	orders := &stubOrderRepo{orders: map[string]*models.Order{"O1": orderO1()}}
	messages := &stubMessageRepo{historyTotal: 7}
	service := newTestService(orders, nil, messages)

	if _, _, err := service.History(context.Background(), "O1", 99, 1, 20); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if messages.listCalls != 0 {
		t.Fatalf("expected no history query for unauthorized user, got %d", messages.listCalls)
	}

	_, total, err := service.History(context.Background(), "O1", 1, 2, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 7 {
		t.Fatalf("expected total 7, got %d", total)
	}
	if messages.lastLimit != 10 || messages.lastOffset != 10 {
		t.Fatalf("expected limit 10 offset 10, got %d/%d", messages.lastLimit, messages.lastOffset)
	}
}

func TestHistoryValidatesPaging(t *testing.T) {
	service := newTestService(nil, nil, nil)
	if _, _, err := service.History(context.Background(), "O1", 1, 0, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for page 0, got %v", err)
	}
	if _, _, err := service.ReportedMessages(context.Background(), 1, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for limit 0, got %v", err)
	}
}
