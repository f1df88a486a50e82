package chatws

import "encoding/json"

// Event names mirror the socket.io contract the frontend already speaks,
// multiplexed over one connection as {"event": ..., "data": ...}.
const (
	EventJoinRoom        = "join_room"
	EventSendMessage     = "send_message"
	EventReportMessage   = "report_message"
	EventRecentMessages  = "recent_messages"
	EventNewMessage      = "new_message"
	EventMessageReported = "message_reported"
	EventError           = "error"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinRoomRequest struct {
	OrderID  string `json:"order_id"`
	UserID   int64  `json:"user_id"`
	UserType string `json:"user_type"`
}

type sendMessageRequest struct {
	Message  string  `json:"message"`
	ImageURL *string `json:"image_url"`
}

type reportMessageRequest struct {
	MessageID string `json:"message_id"`
}

type reportAck struct {
	Success bool `json:"success"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}
