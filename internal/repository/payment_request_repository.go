package repository

import (
	"context"
	"time"

	"splitbill_backend/internal/model"

	"gorm.io/gorm"
)

type PaymentRequestFilter struct {
	UserID    uint
	Direction string // incoming | outgoing | all
	Status    model.PaymentStatus
	Limit     int
	Offset    int
}

type PaymentRequestRepository struct {
	DB *gorm.DB
}

func NewPaymentRequestRepository(db *gorm.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{DB: db}
}

func (r *PaymentRequestRepository) Create(ctx context.Context, pr *model.PaymentRequest) error {
	return r.DB.WithContext(ctx).Create(pr).Error
}

func (r *PaymentRequestRepository) FindByID(ctx context.Context, id uint) (*model.PaymentRequest, error) {
	var pr model.PaymentRequest
	err := r.DB.WithContext(ctx).
		Preload("Payer").Preload("Payee").
		First(&pr, id).Error
	return &pr, err
}

func (r *PaymentRequestRepository) List(ctx context.Context, f PaymentRequestFilter) ([]model.PaymentRequest, int64, error) {
	var list []model.PaymentRequest
	var total int64

	db := r.DB.WithContext(ctx).Model(&model.PaymentRequest{})
	switch f.Direction {
	case "incoming":
		db = db.Where("payer_id = ?", f.UserID)
	case "outgoing":
		db = db.Where("payee_id = ?", f.UserID)
	default:
		db = db.Where("payer_id = ? OR payee_id = ?", f.UserID, f.UserID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Payer").Preload("Payee").
		Order("created_at DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&list).Error
	return list, total, err
}

// ListForUser 查询用户作为付款方或收款方的全部请求，用于汇总
func (r *PaymentRequestRepository) ListForUser(ctx context.Context, userID uint) ([]model.PaymentRequest, error) {
	var list []model.PaymentRequest
	err := r.DB.WithContext(ctx).
		Where("payer_id = ? OR payee_id = ?", userID, userID).
		Find(&list).Error
	return list, err
}

// Transition 仅当当前状态属于 from 时更新为 to，返回是否命中
func (r *PaymentRequestRepository) Transition(ctx context.Context, id uint, from []model.PaymentStatus, to model.PaymentStatus, at time.Time) (bool, error) {
	fields := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to == model.PaymentCompleted {
		fields["completed_at"] = at
	}

	res := r.DB.WithContext(ctx).Model(&model.PaymentRequest{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumns(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
