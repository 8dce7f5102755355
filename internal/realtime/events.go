package realtime

import (
	"encoding/json"
	"time"
)

// Outbound event names. These are the wire contract with dashboard clients;
// renaming one is a breaking change.
const (
	EventBalanceUpdated          = "balance.updated"
	EventTransferInternalCreated = "transfer.internal.created"
	EventTransferCityCreated     = "transfer.city.created"
	EventTransferCityCompleted   = "transfer.city.completed"
	EventTransferIntlCreated     = "transfer.international.created"
	EventTransferIntlCompleted   = "transfer.international.completed"
	EventMarketOrderCreated      = "market.order.created"
	EventMarketTradeExecuted     = "market.trade.executed"
	EventMarketOrderCanceled     = "market.order.canceled"
	EventMarketOrderbookUpdated  = "market.orderbook.updated"
	EventNotificationCreated     = "notification.created"
	EventSettingsUpdated         = "settings.updated"
	EventRequestStatusUpdated    = "request.status.updated"
	EventTopupCreated            = "topup.created"
	EventWithdrawCreated         = "withdraw.created"
	EventGroupMemberJoined       = "group.member.joined"
	EventGroupMemberLeft         = "group.member.left"
	EventGroupPresence           = "group.presence"
	EventTyping                  = "chat.typing"
	EventAuthOK                  = "auth.ok"
	EventAuthError               = "auth.error"
)

// Inbound frame names consumed by the hub.
const (
	FrameAuthenticate = "authenticate"
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameGroupJoin    = "group.join"
	FrameGroupLeave   = "group.leave"
	FrameTyping       = "typing"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// BalancePayload announces one account balance change.
type BalancePayload struct {
	AccountID string    `json:"accountId"`
	Currency  string    `json:"currency"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// TransferPayload covers all transfer lifecycle events. Direction is "sent"
// or "received" on copies delivered to the counterparties' own rooms and
// empty on the admin/office copies.
type TransferPayload struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	TargetOfficeID string    `json:"targetOfficeId,omitempty"`
	Country        string    `json:"country,omitempty"`
	Code           string    `json:"code,omitempty"`
	Status         string    `json:"status"`
	Direction      string    `json:"type,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// OrderPayload announces a market order created or canceled.
type OrderPayload struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	Side          string    `json:"side,omitempty"`
	BaseCurrency  string    `json:"baseCurrency"`
	QuoteCurrency string    `json:"quoteCurrency"`
	Amount        string    `json:"amount,omitempty"`
	Price         string    `json:"price,omitempty"`
	Total         string    `json:"total,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// TradePayload announces an executed trade. Direction is "buy" on the buyer's
// copy, "sell" on the seller's, empty on the market topic copy.
type TradePayload struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyerId"`
	SellerID      string    `json:"sellerId"`
	BaseCurrency  string    `json:"baseCurrency"`
	QuoteCurrency string    `json:"quoteCurrency"`
	Amount        string    `json:"amount"`
	Price         string    `json:"price"`
	Total         string    `json:"total"`
	Direction     string    `json:"type,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OrderbookPayload tells market subscribers to refetch the book.
type OrderbookPayload struct {
	BaseCurrency  string    `json:"baseCurrency"`
	QuoteCurrency string    `json:"quoteCurrency"`
	Timestamp     time.Time `json:"timestamp"`
}

// NotificationPayload announces a dashboard notification.
type NotificationPayload struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// SettingsPayload announces an admin configuration change.
type SettingsPayload struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// RequestPayload announces a topup/withdraw request or its status change.
type RequestPayload struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// GroupMemberPayload announces a member joining or leaving a group room.
type GroupMemberPayload struct {
	GroupID     string    `json:"groupId"`
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName"`
	Timestamp   time.Time `json:"timestamp"`
}

// PresenceMember is one entry of a presence snapshot.
type PresenceMember struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// PresencePayload is the deduplicated list of accounts currently connected to
// a group room.
type PresencePayload struct {
	GroupID   string           `json:"groupId"`
	Members   []PresenceMember `json:"members"`
	Timestamp time.Time        `json:"timestamp"`
}

// TypingPayload relays a typing indicator to the other group members.
type TypingPayload struct {
	GroupID     string    `json:"groupId"`
	AccountID   string    `json:"accountId"`
	DisplayName string    `json:"displayName"`
	Timestamp   time.Time `json:"timestamp"`
}
