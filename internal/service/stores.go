package service

import (
	"context"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/repository"
)

// 以下接口由 repository 包中的实现满足，测试中可替换为内存实现

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Search(ctx context.Context, query string, excludeID uint, limit int) ([]model.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
	UpdateFields(ctx context.Context, userID uint, fields map[string]interface{}) error
}

type FriendStore interface {
	Get(ctx context.Context, userID, friendID uint) (*model.Friendship, error)
	CreateRequest(ctx context.Context, f *model.Friendship) error
	Accept(ctx context.Context, requesterID, receiverID uint) error
	Block(ctx context.Context, requesterID, receiverID uint) error
	DeleteRequest(ctx context.Context, requesterID, receiverID uint) error
	DeletePair(ctx context.Context, userID, friendID uint) error
	ListFriends(ctx context.Context, userID uint, query string) ([]model.User, error)
	ListIncoming(ctx context.Context, userID uint) ([]model.Friendship, error)
	ListBetween(ctx context.Context, userID uint, otherIDs []uint) ([]model.Friendship, error)
	AreFriends(ctx context.Context, userID, otherID uint) (bool, error)
}

// FriendChecker 只需要判断好友关系的服务使用
type FriendChecker interface {
	AreFriends(ctx context.Context, userID, otherID uint) (bool, error)
}

type GroupStore interface {
	Create(ctx context.Context, group *model.Group, members []model.GroupMember) error
	FindByID(ctx context.Context, id uint) (*model.Group, error)
	ListForUser(ctx context.Context, userID uint) ([]model.GroupSummary, error)
	Member(ctx context.Context, groupID, userID uint) (*model.GroupMember, error)
	CountMembers(ctx context.Context, groupID uint, userIDs []uint) (int64, error)
	CountByRole(ctx context.Context, groupID uint) (admins, total int64, err error)
	Update(ctx context.Context, groupID uint, fields map[string]interface{}) error
	RemoveMember(ctx context.Context, groupID, userID uint) error
	UpdateRole(ctx context.Context, groupID, userID uint, role model.GroupRole) error
	Delete(ctx context.Context, groupID uint) error
	CreateInvitation(ctx context.Context, inv *model.GroupInvitation) error
	FindInvitation(ctx context.Context, token string) (*model.GroupInvitation, error)
	AcceptInvitation(ctx context.Context, token string, userID uint, at time.Time) error
}

// MembershipChecker 判断一组用户是否都在群组内
type MembershipChecker interface {
	CountMembers(ctx context.Context, groupID uint, userIDs []uint) (int64, error)
}

type PaymentRequestStore interface {
	Create(ctx context.Context, pr *model.PaymentRequest) error
	FindByID(ctx context.Context, id uint) (*model.PaymentRequest, error)
	List(ctx context.Context, f repository.PaymentRequestFilter) ([]model.PaymentRequest, int64, error)
	ListForUser(ctx context.Context, userID uint) ([]model.PaymentRequest, error)
	Transition(ctx context.Context, id uint, from []model.PaymentStatus, to model.PaymentStatus, at time.Time) (bool, error)
}

type BillStore interface {
	Create(ctx context.Context, bill *model.Bill) error
	FindByID(ctx context.Context, id uint) (*model.Bill, error)
	ListForUser(ctx context.Context, userID uint) ([]model.Bill, error)
	SetAssignees(ctx context.Context, itemID uint, userIDs []uint) error
	UpdateReceipt(ctx context.Context, billID uint, url string) error
	CreateRequests(ctx context.Context, billID uint, requests []model.PaymentRequest) error
}

var (
	_ UserStore           = (*repository.UserRepository)(nil)
	_ FriendStore         = (*repository.FriendshipRepository)(nil)
	_ GroupStore          = (*repository.GroupRepository)(nil)
	_ PaymentRequestStore = (*repository.PaymentRequestRepository)(nil)
	_ BillStore           = (*repository.BillRepository)(nil)
)

// allInGroup 判断 userIDs（去重后）是否全部属于 groupID
func allInGroup(ctx context.Context, groups MembershipChecker, groupID uint, userIDs []uint) (bool, error) {
	uniq := uniqueIDs(userIDs)
	if len(uniq) == 0 {
		return true, nil
	}
	count, err := groups.CountMembers(ctx, groupID, uniq)
	if err != nil {
		return false, err
	}
	return count == int64(len(uniq)), nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
