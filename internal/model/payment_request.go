package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending                 PaymentStatus = "pending"
	PaymentSent                    PaymentStatus = "sent"
	PaymentAccepted                PaymentStatus = "accepted"
	PaymentPaidPendingConfirmation PaymentStatus = "paid_pending_confirmation"
	PaymentCompleted               PaymentStatus = "completed"
	PaymentRejected                PaymentStatus = "rejected"
	PaymentCancelled               PaymentStatus = "cancelled"
	PaymentDisputed                PaymentStatus = "disputed"
)

var ErrInvalidPaymentStatus = errors.New("invalid payment request status")

// PaymentStatuses 与数据库 CHECK 约束保持一致
var PaymentStatuses = []PaymentStatus{
	PaymentPending,
	PaymentSent,
	PaymentAccepted,
	PaymentPaidPendingConfirmation,
	PaymentCompleted,
	PaymentRejected,
	PaymentCancelled,
	PaymentDisputed,
}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentCompleted, PaymentRejected, PaymentCancelled, PaymentDisputed:
		return true
	}
	return false
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if !status.Valid() {
		return "", ErrInvalidPaymentStatus
	}
	return status, nil
}

// PaymentRequest 收款请求：Payee 发起，Payer 付款。金额以最小货币单位存储。
// swagger:model PaymentRequest
type PaymentRequest struct {
	ID          uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	PayerID     uint          `gorm:"index;not null" json:"payerId"`
	Payer       *User         `gorm:"foreignKey:PayerID;references:ID;constraint:false" json:"payer,omitempty"`
	PayeeID     uint          `gorm:"index;not null" json:"payeeId"`
	Payee       *User         `gorm:"foreignKey:PayeeID;references:ID;constraint:false" json:"payee,omitempty"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Currency    string        `gorm:"size:3;not null" json:"currency"`
	Description string        `gorm:"size:255" json:"description"`
	GroupID     *uint         `gorm:"index" json:"groupId,omitempty"`
	BillID      *uint         `gorm:"index" json:"billId,omitempty"`
	Status      PaymentStatus `gorm:"size:32;not null;default:'sent';check:chk_payment_requests_status,status IN ('pending','sent','accepted','paid_pending_confirmation','completed','rejected','cancelled','disputed')" json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

func (PaymentRequest) TableName() string {
	return "payment_requests"
}

func (p *PaymentRequest) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = PaymentSent
	}
	if !p.Status.Valid() {
		return ErrInvalidPaymentStatus
	}
	return nil
}
