package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UpdateProfileInput 为 nil 的字段保持不变
// swagger:model UpdateProfileInput
type UpdateProfileInput struct {
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Currency *string `json:"currency"`
}

// UserService 处理个人资料相关的业务逻辑
type UserService struct {
	UserRepo UserStore
}

// NewUserService 创建一个新的用户服务实例
func NewUserService(userRepo UserStore) *UserService {
	return &UserService{
		UserRepo: userRepo,
	}
}

func (s *UserService) find(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile 更新昵称、头像和默认币种
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*model.User, error) {
	fields := map[string]interface{}{}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Avatar != nil {
		fields["avatar"] = strings.TrimSpace(*in.Avatar)
	}
	if in.Currency != nil {
		currency := util.NormalizeCurrency(*in.Currency)
		if currency == "" {
			return nil, util.ErrInvalidCurrency
		}
		fields["currency"] = currency
	}

	if len(fields) > 0 {
		if err := s.UserRepo.UpdateFields(ctx, userID, fields); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.find(ctx, userID)
}

// ChangePassword 校验旧密码后更新为新密码
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return util.ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.UserRepo.UpdateFields(ctx, userID, map[string]interface{}{"password": string(hashedPassword)})
}
