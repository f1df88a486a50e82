package models

import "time"

// Order is owned by the external order system; read-only here.
type Order struct {
	ID       string `json:"id"`
	BuyerID  int64  `json:"buyer_id"`
	SellerID int64  `json:"seller_id"`
}

// ChatMessage is the persisted message row. Username is resolved at read
// time from the sender's role and is never stored.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	OrderID   string    `json:"order_id"`
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	Message   string    `json:"message"`
	ImageURL  *string   `json:"image_url"`
	SentBy    string    `json:"sent_by"`
	CreatedAt time.Time `json:"created_at"`
	Reported  bool      `json:"reported"`
	Username  string    `json:"username,omitempty"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
