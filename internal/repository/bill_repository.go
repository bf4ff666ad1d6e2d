package repository

import (
	"context"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"

	"gorm.io/gorm"
)

type BillRepository struct {
	DB *gorm.DB
}

func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{DB: db}
}

// Create 连同明细一起写入
func (r *BillRepository) Create(ctx context.Context, bill *model.Bill) error {
	return r.DB.WithContext(ctx).Create(bill).Error
}

func (r *BillRepository) FindByID(ctx context.Context, id uint) (*model.Bill, error) {
	var bill model.Bill
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Items.Assignees").
		First(&bill, id).Error
	return &bill, err
}

// ListForUser 我创建的或被分配了明细的账单
func (r *BillRepository) ListForUser(ctx context.Context, userID uint) ([]model.Bill, error) {
	var bills []model.Bill
	assigned := r.DB.Table("bill_item_assignees AS a").
		Select("i.bill_id").
		Joins("JOIN bill_items i ON i.id = a.item_id").
		Where("a.user_id = ?", userID)

	err := r.DB.WithContext(ctx).
		Where("creator_id = ? OR id IN (?)", userID, assigned).
		Order("created_at DESC").
		Find(&bills).Error
	return bills, err
}

// SetAssignees 覆盖明细的分摊人
func (r *BillRepository) SetAssignees(ctx context.Context, itemID uint, userIDs []uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&model.BillItemAssignee{}).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}
		rows := make([]model.BillItemAssignee, 0, len(userIDs))
		for _, id := range userIDs {
			rows = append(rows, model.BillItemAssignee{ItemID: itemID, UserID: id})
		}
		return tx.Create(&rows).Error
	})
}

func (r *BillRepository) UpdateReceipt(ctx context.Context, billID uint, url string) error {
	return r.DB.WithContext(ctx).Model(&model.Bill{}).
		Where("id = ?", billID).
		Update("receipt_url", url).Error
}

// CreateRequests 将账单标记为 requested 并写入收款请求，全部在同一事务内
func (r *BillRepository) CreateRequests(ctx context.Context, billID uint, requests []model.PaymentRequest) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Bill{}).
			Where("id = ? AND status = ?", billID, model.BillDraft).
			Update("status", model.BillRequested)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrBillAlreadyRequested
		}
		if len(requests) == 0 {
			return nil
		}
		return tx.Create(&requests).Error
	})
}
