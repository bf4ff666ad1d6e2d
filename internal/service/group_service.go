package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"

	"gorm.io/gorm"
)

type GroupService struct {
	GroupRepo GroupStore
	Friends   FriendChecker
	now       func() time.Time
}

func NewGroupService(groupRepo GroupStore, friends FriendChecker) *GroupService {
	return &GroupService{
		GroupRepo: groupRepo,
		Friends:   friends,
		now:       time.Now,
	}
}

type CreateGroupInput struct {
	Name        string
	Description string
	Currency    string
	MemberIDs   []uint
}

// UpdateGroupInput 为 nil 的字段保持不变
type UpdateGroupInput struct {
	Name        *string
	Description *string
	Currency    *string
}

// InvitationPreview 邀请链接的公开预览
type InvitationPreview struct {
	Token         string    `json:"token"`
	GroupID       uint      `json:"groupId"`
	GroupName     string    `json:"groupName"`
	Description   string    `json:"description"`
	MemberCount   int       `json:"memberCount"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Valid         bool      `json:"valid"`
	Reason        string    `json:"reason,omitempty"`
	AlreadyMember bool      `json:"alreadyMember"`
}

// Create 创建者自动成为管理员，初始成员必须是创建者的好友
func (s *GroupService) Create(ctx context.Context, creatorID uint, in CreateGroupInput) (*model.Group, error) {
	currency := "USD"
	if in.Currency != "" {
		if currency = util.NormalizeCurrency(in.Currency); currency == "" {
			return nil, util.ErrInvalidCurrency
		}
	}

	members := []model.GroupMember{{UserID: creatorID, Role: model.RoleAdmin}}
	for _, id := range uniqueIDs(in.MemberIDs) {
		if id == creatorID {
			continue
		}
		ok, err := s.Friends.AreFriends(ctx, creatorID, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("user %d: %w", id, util.ErrNotFriends)
		}
		members = append(members, model.GroupMember{UserID: id, Role: model.RoleMember})
	}

	group := &model.Group{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Currency:    currency,
		CreatedBy:   creatorID,
	}
	if err := s.GroupRepo.Create(ctx, group, members); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	group.Members = members
	return group, nil
}

func (s *GroupService) List(ctx context.Context, userID uint) ([]model.GroupSummary, error) {
	groups, err := s.GroupRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []model.GroupSummary{}
	}
	return groups, nil
}

// Get 仅群组成员可查看
func (s *GroupService) Get(ctx context.Context, groupID, userID uint) (*model.Group, error) {
	group, err := s.GroupRepo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrGroupNotFound
		}
		return nil, err
	}
	for _, m := range group.Members {
		if m.UserID == userID {
			return group, nil
		}
	}
	return nil, util.ErrNotGroupMember
}

// membership 返回用户在群组中的成员行，区分群组不存在与非成员
func (s *GroupService) membership(ctx context.Context, groupID, userID uint) (*model.GroupMember, error) {
	m, err := s.GroupRepo.Member(ctx, groupID, userID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.GroupRepo.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrGroupNotFound
		}
		return nil, err
	}
	return nil, util.ErrNotGroupMember
}

func (s *GroupService) requireAdmin(ctx context.Context, groupID, userID uint) error {
	m, err := s.membership(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m.Role != model.RoleAdmin {
		return util.ErrNotGroupAdmin
	}
	return nil
}

func (s *GroupService) UpdateSettings(ctx context.Context, groupID, userID uint, in UpdateGroupInput) (*model.Group, error) {
	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Currency != nil {
		currency := util.NormalizeCurrency(*in.Currency)
		if currency == "" {
			return nil, util.ErrInvalidCurrency
		}
		fields["currency"] = currency
	}

	if len(fields) > 0 {
		if err := s.GroupRepo.Update(ctx, groupID, fields); err != nil {
			return nil, fmt.Errorf("update group: %w", err)
		}
	}
	return s.Get(ctx, groupID, userID)
}

func (s *GroupService) Delete(ctx context.Context, groupID, userID uint) error {
	if err := s.requireAdmin(ctx, groupID, userID); err != nil {
		return err
	}
	return s.GroupRepo.Delete(ctx, groupID)
}

// CreateInvitation 生成 7 天有效的一次性邀请令牌
func (s *GroupService) CreateInvitation(ctx context.Context, groupID, inviterID uint, email string) (*model.GroupInvitation, error) {
	if err := s.requireAdmin(ctx, groupID, inviterID); err != nil {
		return nil, err
	}

	now := s.now()
	inv := &model.GroupInvitation{
		Token:     model.GenerateUUID(),
		GroupID:   groupID,
		InviterID: inviterID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		ExpiresAt: now.Add(model.InvitationTTL),
		CreatedAt: now,
	}
	if err := s.GroupRepo.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

func (s *GroupService) findInvitation(ctx context.Context, token string) (*model.GroupInvitation, error) {
	inv, err := s.GroupRepo.FindInvitation(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

// PreviewInvitation 无需登录即可查看邀请对应的群组信息，viewerID 为 0 表示游客
func (s *GroupService) PreviewInvitation(ctx context.Context, token string, viewerID uint) (*InvitationPreview, error) {
	inv, err := s.findInvitation(ctx, token)
	if err != nil {
		return nil, err
	}
	group, err := s.GroupRepo.FindByID(ctx, inv.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvitationNotFound
		}
		return nil, err
	}

	preview := &InvitationPreview{
		Token:       inv.Token,
		GroupID:     group.ID,
		GroupName:   group.Name,
		Description: group.Description,
		MemberCount: len(group.Members),
		ExpiresAt:   inv.ExpiresAt,
		Valid:       true,
	}
	if viewerID != 0 {
		for _, m := range group.Members {
			if m.UserID == viewerID {
				preview.AlreadyMember = true
				break
			}
		}
	}

	switch {
	case inv.Accepted:
		preview.Valid = false
		preview.Reason = util.ErrInvitationUsed.Error()
	case inv.Expired(s.now()):
		preview.Valid = false
		preview.Reason = util.ErrInvitationExpired.Error()
	}
	return preview, nil
}

// AcceptInvitation 以普通成员身份加入，邀请随即失效
func (s *GroupService) AcceptInvitation(ctx context.Context, token string, userID uint) (uint, error) {
	inv, err := s.findInvitation(ctx, token)
	if err != nil {
		return 0, err
	}
	if inv.Accepted {
		return 0, util.ErrInvitationUsed
	}
	now := s.now()
	if inv.Expired(now) {
		return 0, util.ErrInvitationExpired
	}

	if _, err := s.GroupRepo.Member(ctx, inv.GroupID, userID); err == nil {
		return 0, util.ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if err := s.GroupRepo.AcceptInvitation(ctx, token, userID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, util.ErrInvitationNotFound
		}
		return 0, err
	}
	return inv.GroupID, nil
}

// RemoveMember 管理员可移除任何成员，普通成员只能退出自己。
// 仍有其他成员时，最后一名管理员不能离开；最后一名成员离开时群组随之删除。
func (s *GroupService) RemoveMember(ctx context.Context, groupID, actorID, targetID uint) error {
	actor, err := s.membership(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if actorID != targetID && actor.Role != model.RoleAdmin {
		return util.ErrNotGroupAdmin
	}

	target := actor
	if actorID != targetID {
		if target, err = s.GroupRepo.Member(ctx, groupID, targetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNotGroupMember
			}
			return err
		}
	}

	admins, total, err := s.GroupRepo.CountByRole(ctx, groupID)
	if err != nil {
		return err
	}
	if total == 1 {
		return s.GroupRepo.Delete(ctx, groupID)
	}
	if target.Role == model.RoleAdmin && admins == 1 {
		return util.ErrLastAdmin
	}
	return s.GroupRepo.RemoveMember(ctx, groupID, targetID)
}

func (s *GroupService) UpdateMemberRole(ctx context.Context, groupID, actorID, targetID uint, role model.GroupRole) error {
	if !role.Valid() {
		return util.ErrInvalidRole
	}
	if err := s.requireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}

	target, err := s.GroupRepo.Member(ctx, groupID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotGroupMember
		}
		return err
	}
	if target.Role == role {
		return nil
	}

	if target.Role == model.RoleAdmin && role == model.RoleMember {
		admins, _, err := s.GroupRepo.CountByRole(ctx, groupID)
		if err != nil {
			return err
		}
		if admins == 1 {
			return util.ErrLastAdmin
		}
	}
	return s.GroupRepo.UpdateRole(ctx, groupID, targetID, role)
}
