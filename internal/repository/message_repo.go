package repository

import (
	"context"

	"github.com/tomurashigaraki22/ripple-websocket-server/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists the message with a server-assigned timestamp. Broadcast
// must happen strictly after this returns.
func (r *MessageRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	query := `
		INSERT INTO messages (id, room_id, order_id, buyer_id, seller_id, message, image_url, sent_by, created_at, reported)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), FALSE)
		RETURNING created_at
	`

	return r.db.QueryRow(
		ctx,
		query,
		message.ID,
		message.RoomID,
		message.OrderID,
		message.BuyerID,
		message.SellerID,
		message.Message,
		message.ImageURL,
		message.SentBy,
	).Scan(&message.CreatedAt)
}

// ListRecentByOrder returns up to limit of the newest messages for an order
// in created_at ascending order, each with the sender's username resolved
// by role (buyer's username when sent_by = 'buyer', else seller's).
func (r *MessageRepository) ListRecentByOrder(
	ctx context.Context,
	orderID string,
	limit int,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, room_id, order_id, buyer_id, seller_id, message, image_url, sent_by, created_at, reported, username
		FROM (
			SELECT m.id, m.room_id, m.order_id, m.buyer_id, m.seller_id, m.message, m.image_url, m.sent_by, m.created_at, m.reported,
			       CASE
			         WHEN m.sent_by = 'buyer' THEN bu.username
			         ELSE su.username
			       END AS username
			FROM messages m
			JOIN users bu ON m.buyer_id = bu.id
			JOIN users su ON m.seller_id = su.id
			WHERE m.order_id = $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, orderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListByOrder pages through the full persisted history for an order, newest
// first, with the same role-resolved username annotation.
func (r *MessageRepository) ListByOrder(
	ctx context.Context,
	orderID string,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE order_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, orderID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.room_id, m.order_id, m.buyer_id, m.seller_id, m.message, m.image_url, m.sent_by, m.created_at, m.reported,
		       CASE
		         WHEN m.sent_by = 'buyer' THEN bu.username
		         ELSE su.username
		       END AS username
		FROM messages m
		JOIN users bu ON m.buyer_id = bu.id
		JOIN users su ON m.seller_id = su.id
		WHERE m.order_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, orderID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkReported flags a message for moderation. Repeated calls are
// idempotent; the returned bool reports whether the row existed.
func (r *MessageRepository) MarkReported(ctx context.Context, messageID string) (bool, error) {
	query := `
		UPDATE messages
		SET reported = TRUE
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, messageID)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepository) ListReported(
	ctx context.Context,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE reported = TRUE
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.room_id, m.order_id, m.buyer_id, m.seller_id, m.message, m.image_url, m.sent_by, m.created_at, m.reported,
		       CASE
		         WHEN m.sent_by = 'buyer' THEN bu.username
		         ELSE su.username
		       END AS username
		FROM messages m
		JOIN users bu ON m.buyer_id = bu.id
		JOIN users su ON m.seller_id = su.id
		WHERE m.reported = TRUE
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

type messageRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows messageRows) ([]models.ChatMessage, error) {
	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.RoomID,
			&message.OrderID,
			&message.BuyerID,
			&message.SellerID,
			&message.Message,
			&message.ImageURL,
			&message.SentBy,
			&message.CreatedAt,
			&message.Reported,
			&message.Username,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
