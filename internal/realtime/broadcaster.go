package realtime

import (
	"fmt"
	"time"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	"github.com/cambio-network/exchange_layer/internal/domain/balance"
	"github.com/cambio-network/exchange_layer/internal/domain/market"
	"github.com/cambio-network/exchange_layer/internal/domain/notification"
	"github.com/cambio-network/exchange_layer/internal/domain/request"
	"github.com/cambio-network/exchange_layer/internal/domain/settings"
	"github.com/cambio-network/exchange_layer/internal/domain/transfer"
	"github.com/cambio-network/exchange_layer/internal/logging"
	"github.com/cambio-network/exchange_layer/internal/metrics"
)

// Broadcaster is the single point through which business code announces state
// changes to connected clients. Each method builds a payload, picks target
// rooms and publishes; none of them mutate business state. Methods panic when
// required identity fields are missing: a silently dropped financial event is
// a correctness risk, so malformed input is a programming error, not a
// runtime condition.
type Broadcaster struct {
	registry *Registry
	log      *logging.Logger
	metrics  *metrics.Metrics
}

// NewBroadcaster creates a broadcaster reading room membership from the
// registry.
func NewBroadcaster(registry *Registry, log *logging.Logger, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{registry: registry, log: log, metrics: m}
}

// publish encodes the payload once and delivers it to every current member of
// the target rooms, deduplicated by connection. An empty target room is a
// no-op, not an error.
func (b *Broadcaster) publish(event string, payload interface{}, rooms ...string) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		// Payload structs are all marshalable; reaching this is a bug.
		panic(fmt.Sprintf("realtime: encode %s: %v", event, err))
	}

	delivered := make(map[string]bool)
	for _, room := range rooms {
		for _, c := range b.registry.MembersOf(room) {
			if delivered[c.ID()] {
				continue
			}
			delivered[c.ID()] = true
			if err := c.transport.Send(frame); err != nil {
				b.log.WithError(err).WithFields(map[string]interface{}{
					"event": event,
					"room":  room,
				}).Warn("dropping frame for slow client")
			}
		}
	}

	if b.metrics != nil {
		b.metrics.EventPublished(event)
	}
}

// publishAll delivers the payload to every connection regardless of rooms.
func (b *Broadcaster) publishAll(event string, payload interface{}) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		panic(fmt.Sprintf("realtime: encode %s: %v", event, err))
	}
	for _, c := range b.registry.Connections() {
		if err := c.transport.Send(frame); err != nil {
			b.log.WithError(err).WithField("event", event).Warn("dropping frame for slow client")
		}
	}
	if b.metrics != nil {
		b.metrics.EventPublished(event)
	}
}

func mustID(field, value string) {
	if value == "" {
		panic(fmt.Sprintf("realtime: event payload missing %s", field))
	}
}

// BalanceUpdated fans a balance change out to the owner's account room and
// the per-currency balance room.
func (b *Broadcaster) BalanceUpdated(bal balance.Balance) {
	mustID("account id", bal.AccountID)
	mustID("currency", bal.Currency)

	payload := BalancePayload{
		AccountID: bal.AccountID,
		Currency:  bal.Currency,
		Amount:    bal.Amount,
		Timestamp: time.Now().UTC(),
	}
	b.publish(EventBalanceUpdated, payload,
		UserRoom(bal.AccountID),
		BalanceRoom(bal.AccountID, bal.Currency),
	)
}

// InternalTransferCreated notifies sender (tagged "sent"), receiver (tagged
// "received") and the admin room (untagged) in one call.
func (b *Broadcaster) InternalTransferCreated(tr transfer.Transfer) {
	mustID("transfer id", tr.ID)
	mustID("sender id", tr.SenderID)
	mustID("receiver id", tr.ReceiverID)

	base := TransferPayload{
		ID:         tr.ID,
		SenderID:   tr.SenderID,
		ReceiverID: tr.ReceiverID,
		Amount:     tr.Amount,
		Currency:   tr.Currency,
		Status:     string(tr.Status),
		Timestamp:  time.Now().UTC(),
	}

	sent := base
	sent.Direction = "sent"
	b.publish(EventTransferInternalCreated, sent, UserRoom(tr.SenderID))

	received := base
	received.Direction = "received"
	b.publish(EventTransferInternalCreated, received, UserRoom(tr.ReceiverID))

	b.publish(EventTransferInternalCreated, base, RoleRoom(account.RoleAdmin))
}

// CityTransferCreated notifies the sender, the target office, and the agent
// and admin role rooms.
func (b *Broadcaster) CityTransferCreated(tr transfer.Transfer) {
	mustID("transfer id", tr.ID)
	mustID("sender id", tr.SenderID)
	mustID("target office id", tr.TargetOfficeID)

	payload := TransferPayload{
		ID:             tr.ID,
		SenderID:       tr.SenderID,
		Amount:         tr.Amount,
		Currency:       tr.Currency,
		TargetOfficeID: tr.TargetOfficeID,
		Code:           tr.Code,
		Status:         string(transfer.StatusPending),
		Timestamp:      time.Now().UTC(),
	}
	b.publish(EventTransferCityCreated, payload,
		UserRoom(tr.SenderID),
		OfficeRoom(tr.TargetOfficeID),
		RoleRoom(account.RoleAgent),
		RoleRoom(account.RoleAdmin),
	)
}

// CityTransferCompleted notifies the sender, both offices and the admin room.
func (b *Broadcaster) CityTransferCompleted(tr transfer.Transfer) {
	mustID("transfer id", tr.ID)
	mustID("sender id", tr.SenderID)

	payload := TransferPayload{
		ID:        tr.ID,
		SenderID:  tr.SenderID,
		Code:      tr.Code,
		Status:    string(transfer.StatusCompleted),
		Timestamp: time.Now().UTC(),
	}
	rooms := []string{UserRoom(tr.SenderID)}
	if tr.SourceOfficeID != "" {
		rooms = append(rooms, OfficeRoom(tr.SourceOfficeID))
	}
	if tr.TargetOfficeID != "" {
		rooms = append(rooms, OfficeRoom(tr.TargetOfficeID))
	}
	rooms = append(rooms, RoleRoom(account.RoleAdmin))
	b.publish(EventTransferCityCompleted, payload, rooms...)
}

// InternationalTransferCreated notifies the sender and admins only; there is
// no office or agent fan-out for international transfers.
func (b *Broadcaster) InternationalTransferCreated(tr transfer.Transfer) {
	mustID("transfer id", tr.ID)
	mustID("sender id", tr.SenderID)

	payload := TransferPayload{
		ID:        tr.ID,
		SenderID:  tr.SenderID,
		Amount:    tr.Amount,
		Currency:  tr.Currency,
		Country:   tr.Country,
		Status:    string(tr.Status),
		Timestamp: time.Now().UTC(),
	}
	b.publish(EventTransferIntlCreated, payload, UserRoom(tr.SenderID), RoleRoom(account.RoleAdmin))
}

// InternationalTransferCompleted notifies the sender and admins only.
func (b *Broadcaster) InternationalTransferCompleted(tr transfer.Transfer) {
	mustID("transfer id", tr.ID)
	mustID("sender id", tr.SenderID)

	payload := TransferPayload{
		ID:        tr.ID,
		SenderID:  tr.SenderID,
		Status:    string(transfer.StatusCompleted),
		Timestamp: time.Now().UTC(),
	}
	b.publish(EventTransferIntlCompleted, payload, UserRoom(tr.SenderID), RoleRoom(account.RoleAdmin))
}

// OrderCreated notifies the owner and the market topic room, then triggers an
// orderbook refresh.
func (b *Broadcaster) OrderCreated(ord market.Order) {
	mustID("order id", ord.ID)
	mustID("account id", ord.AccountID)

	payload := OrderPayload{
		ID:            ord.ID,
		AccountID:     ord.AccountID,
		Side:          string(ord.Side),
		BaseCurrency:  ord.BaseCurrency,
		QuoteCurrency: ord.QuoteCurrency,
		Amount:        ord.Amount,
		Price:         ord.Price,
		Total:         ord.Total,
		Timestamp:     time.Now().UTC(),
	}
	b.publish(EventMarketOrderCreated, payload,
		UserRoom(ord.AccountID),
		MarketRoom(ord.BaseCurrency, ord.QuoteCurrency),
	)
	b.OrderbookUpdated(ord.BaseCurrency, ord.QuoteCurrency)
}

// TradeExecuted notifies buyer (tagged "buy"), seller (tagged "sell") and the
// market topic room, then triggers an orderbook refresh.
func (b *Broadcaster) TradeExecuted(tr market.Trade) {
	mustID("trade id", tr.ID)
	mustID("buyer id", tr.BuyerID)
	mustID("seller id", tr.SellerID)

	base := TradePayload{
		ID:            tr.ID,
		BuyerID:       tr.BuyerID,
		SellerID:      tr.SellerID,
		BaseCurrency:  tr.BaseCurrency,
		QuoteCurrency: tr.QuoteCurrency,
		Amount:        tr.Amount,
		Price:         tr.Price,
		Total:         tr.Total,
		Timestamp:     time.Now().UTC(),
	}

	buy := base
	buy.Direction = "buy"
	b.publish(EventMarketTradeExecuted, buy, UserRoom(tr.BuyerID))

	sell := base
	sell.Direction = "sell"
	b.publish(EventMarketTradeExecuted, sell, UserRoom(tr.SellerID))

	b.publish(EventMarketTradeExecuted, base, MarketRoom(tr.BaseCurrency, tr.QuoteCurrency))
	b.OrderbookUpdated(tr.BaseCurrency, tr.QuoteCurrency)
}

// OrderCanceled notifies the owner and the market topic room, then triggers
// an orderbook refresh.
func (b *Broadcaster) OrderCanceled(ord market.Order) {
	mustID("order id", ord.ID)
	mustID("account id", ord.AccountID)

	payload := OrderPayload{
		ID:            ord.ID,
		AccountID:     ord.AccountID,
		BaseCurrency:  ord.BaseCurrency,
		QuoteCurrency: ord.QuoteCurrency,
		Timestamp:     time.Now().UTC(),
	}
	b.publish(EventMarketOrderCanceled, payload,
		UserRoom(ord.AccountID),
		MarketRoom(ord.BaseCurrency, ord.QuoteCurrency),
	)
	b.OrderbookUpdated(ord.BaseCurrency, ord.QuoteCurrency)
}

// OrderbookUpdated tells market topic subscribers to refetch the book.
func (b *Broadcaster) OrderbookUpdated(baseCurrency, quoteCurrency string) {
	payload := OrderbookPayload{
		BaseCurrency:  baseCurrency,
		QuoteCurrency: quoteCurrency,
		Timestamp:     time.Now().UTC(),
	}
	b.publish(EventMarketOrderbookUpdated, payload, MarketRoom(baseCurrency, quoteCurrency))
}

// NotificationCreated notifies the owner's account room only.
func (b *Broadcaster) NotificationCreated(n notification.Notification) {
	mustID("notification id", n.ID)
	mustID("account id", n.AccountID)

	payload := NotificationPayload{
		ID:        n.ID,
		AccountID: n.AccountID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Timestamp: time.Now().UTC(),
	}
	b.publish(EventNotificationCreated, payload, UserRoom(n.AccountID))
}

// SettingsUpdated broadcasts to every connection. Settings such as commission
// rates affect all clients, so this event intentionally skips room scoping.
func (b *Broadcaster) SettingsUpdated(entry settings.Entry) {
	mustID("settings type", entry.Type)

	payload := SettingsPayload{
		Type:      entry.Type,
		Data:      entry.Data,
		Timestamp: time.Now().UTC(),
	}
	b.publishAll(EventSettingsUpdated, payload)
}

// RequestStatusUpdated notifies the owner and the admin room.
func (b *Broadcaster) RequestStatusUpdated(req request.Request) {
	mustID("request id", req.ID)
	mustID("account id", req.AccountID)

	payload := RequestPayload{
		ID:        req.ID,
		AccountID: req.AccountID,
		Type:      string(req.Type),
		Status:    string(req.Status),
		Timestamp: time.Now().UTC(),
	}
	b.publish(EventRequestStatusUpdated, payload, UserRoom(req.AccountID), RoleRoom(account.RoleAdmin))
}

// TopupCreated notifies the owner and the admin room.
func (b *Broadcaster) TopupCreated(req request.Request) {
	b.requestCreated(EventTopupCreated, req)
}

// WithdrawCreated notifies the owner and the admin room.
func (b *Broadcaster) WithdrawCreated(req request.Request) {
	b.requestCreated(EventWithdrawCreated, req)
}

func (b *Broadcaster) requestCreated(event string, req request.Request) {
	mustID("request id", req.ID)
	mustID("account id", req.AccountID)

	payload := RequestPayload{
		ID:        req.ID,
		AccountID: req.AccountID,
		Type:      string(req.Type),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    string(req.Status),
		Timestamp: time.Now().UTC(),
	}
	b.publish(event, payload, UserRoom(req.AccountID), RoleRoom(account.RoleAdmin))
}
