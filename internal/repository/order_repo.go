package repository

import (
	"context"

	"github.com/tomurashigaraki22/ripple-websocket-server/internal/models"
)

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT id, buyer_id, seller_id
		FROM orders
		WHERE id = $1
	`

	var order models.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.BuyerID,
		&order.SellerID,
	)
	if err != nil {
		return nil, err
	}

	return &order, nil
}
