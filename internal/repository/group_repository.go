package repository

import (
	"context"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"

	"gorm.io/gorm"
)

type GroupRepository struct {
	DB *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{DB: db}
}

// Create 创建群组并写入初始成员
func (r *GroupRepository) Create(ctx context.Context, group *model.Group, members []model.GroupMember) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members").Create(group).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].GroupID = group.ID
		}
		if len(members) == 0 {
			return nil
		}
		return tx.Create(&members).Error
	})
}

func (r *GroupRepository) FindByID(ctx context.Context, id uint) (*model.Group, error) {
	var group model.Group
	err := r.DB.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		Preload("Members.User").
		First(&group, id).Error
	return &group, err
}

func (r *GroupRepository) ListForUser(ctx context.Context, userID uint) ([]model.GroupSummary, error) {
	var out []model.GroupSummary
	err := r.DB.WithContext(ctx).
		Table("expense_groups AS g").
		Select("g.*, gm.role AS role, (SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id) AS member_count").
		Joins("JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = ?", userID).
		Where("g.deleted_at IS NULL").
		Order("g.created_at DESC").
		Scan(&out).Error
	return out, err
}

func (r *GroupRepository) Member(ctx context.Context, groupID, userID uint) (*model.GroupMember, error) {
	var m model.GroupMember
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	return &m, err
}

// CountMembers 返回 userIDs 中属于该群组的人数
func (r *GroupRepository) CountMembers(ctx context.Context, groupID uint, userIDs []uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id IN ?", groupID, userIDs).
		Count(&count).Error
	return count, err
}

func (r *GroupRepository) CountByRole(ctx context.Context, groupID uint) (admins, total int64, err error) {
	err = r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&total).Error
	if err != nil {
		return 0, 0, err
	}
	err = r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND role = ?", groupID, model.RoleAdmin).
		Count(&admins).Error
	return admins, total, err
}

func (r *GroupRepository) Update(ctx context.Context, groupID uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Group{}).
		Where("id = ?", groupID).
		Updates(fields).Error
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	return r.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{}).Error
}

func (r *GroupRepository) UpdateRole(ctx context.Context, groupID, userID uint, role model.GroupRole) error {
	return r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("role", role).Error
}

// Delete 删除群组及其成员、邀请，并解除账单和收款请求的群组关联
func (r *GroupRepository) Delete(ctx context.Context, groupID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&model.GroupInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.PaymentRequest{}).Where("group_id = ?", groupID).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Bill{}).Where("group_id = ?", groupID).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Group{}, groupID).Error
	})
}

func (r *GroupRepository) CreateInvitation(ctx context.Context, inv *model.GroupInvitation) error {
	return r.DB.WithContext(ctx).Create(inv).Error
}

func (r *GroupRepository) FindInvitation(ctx context.Context, token string) (*model.GroupInvitation, error) {
	var inv model.GroupInvitation
	err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	return &inv, err
}

// AcceptInvitation 单次使用：条件更新 accepted 标志后再加入成员
func (r *GroupRepository) AcceptInvitation(ctx context.Context, token string, userID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv model.GroupInvitation
		if err := tx.Where("token = ?", token).First(&inv).Error; err != nil {
			return err
		}

		res := tx.Model(&model.GroupInvitation{}).
			Where("token = ? AND accepted = ?", token, false).
			Updates(map[string]interface{}{
				"accepted":    true,
				"accepted_by": userID,
				"accepted_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrInvitationUsed
		}

		return tx.Create(&model.GroupMember{
			GroupID: inv.GroupID,
			UserID:  userID,
			Role:    model.RoleMember,
		}).Error
	})
}
