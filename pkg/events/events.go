package events

import (
	"context"
	"time"
)

const (
	TypePaymentRequestCreated = "payment_request.created"
	TypePaymentRequestUpdated = "payment_request.updated"
)

// PaymentRequestEvent 收款请求状态变化事件
type PaymentRequestEvent struct {
	Type       string    `json:"type"`
	RequestID  uint      `json:"requestId"`
	PayerID    uint      `json:"payerId"`
	PayeeID    uint      `json:"payeeId"`
	ActorID    uint      `json:"actorId"`
	Status     string    `json:"status"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	BillID     *uint     `json:"billId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishPaymentRequest(ctx context.Context, evt PaymentRequestEvent) error
	Close() error
}

// NopPublisher Kafka 未启用时使用
type NopPublisher struct{}

func (NopPublisher) PublishPaymentRequest(context.Context, PaymentRequestEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
