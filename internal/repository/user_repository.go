package repository

import (
	"context"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

// Search 按昵称或邮箱模糊搜索，排除自己和已禁用用户
func (r *UserRepository) Search(ctx context.Context, query string, excludeID uint, limit int) ([]model.User, error) {
	var users []model.User
	searchTerm := util.ContainsPattern(query)
	err := r.DB.WithContext(ctx).
		Select("id, name, email, avatar").
		Where("disabled = ?", false).
		Where("id <> ?", excludeID).
		Where("(name LIKE ? OR email LIKE ?)", searchTerm, searchTerm).
		Order("name ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}

// IsActive 用户存在且未被禁用
func (r *UserRepository) IsActive(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND disabled = ?", userID, false).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).Error
}

// UpdateFields 按列名更新用户资料
func (r *UserRepository) UpdateFields(ctx context.Context, userID uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(fields).Error
}
