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

const friendSearchLimit = 20

// 好友申请处理动作
const (
	FriendActionAccept = "accept"
	FriendActionReject = "reject"
	FriendActionBlock  = "block"
)

type FriendshipService struct {
	FriendRepo FriendStore
	UserRepo   UserStore
}

func NewFriendshipService(friendRepo FriendStore, userRepo UserStore) *FriendshipService {
	return &FriendshipService{
		FriendRepo: friendRepo,
		UserRepo:   userRepo,
	}
}

// FriendRequestView 收到的好友申请
type FriendRequestView struct {
	From      model.UserBrief `json:"from"`
	CreatedAt time.Time       `json:"createdAt"`
}

// UserSearchResult 搜索结果附带查看者视角的好友关系
type UserSearchResult struct {
	model.UserBrief
	Relation model.Relation `json:"relation"`
}

func (s *FriendshipService) findUser(ctx context.Context, email string, userID uint) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if userID != 0 {
		user, err = s.UserRepo.FindByID(ctx, userID)
	} else {
		user, err = s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// getRow 读取单向关系行，不存在时返回 nil
func (s *FriendshipService) getRow(ctx context.Context, userID, friendID uint) (*model.Friendship, error) {
	f, err := s.FriendRepo.Get(ctx, userID, friendID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get friendship: %w", err)
	}
	return f, nil
}

// AddFriend 按邮箱或用户 ID 发送好友申请。
// 若对方已向自己发出待处理申请，则直接互相成为好友。
func (s *FriendshipService) AddFriend(ctx context.Context, senderID uint, email string, receiverID uint) (model.Relation, error) {
	if receiverID == 0 && strings.TrimSpace(email) == "" {
		return "", util.ErrUserNotFound
	}
	receiver, err := s.findUser(ctx, email, receiverID)
	if err != nil {
		return "", err
	}
	if receiver.ID == senderID {
		return "", util.ErrCannotFriendSelf
	}

	outgoing, err := s.getRow(ctx, senderID, receiver.ID)
	if err != nil {
		return "", err
	}
	if outgoing != nil {
		switch outgoing.Status {
		case model.FriendshipAccepted:
			return "", util.ErrAlreadyFriends
		case model.FriendshipBlocked:
			return "", util.ErrUserBlocked
		default:
			return "", util.ErrFriendRequestExists
		}
	}

	incoming, err := s.getRow(ctx, receiver.ID, senderID)
	if err != nil {
		return "", err
	}
	if incoming != nil {
		switch incoming.Status {
		case model.FriendshipBlocked:
			return "", util.ErrUserBlocked
		case model.FriendshipAccepted:
			return "", util.ErrAlreadyFriends
		case model.FriendshipPending:
			if err := s.FriendRepo.Accept(ctx, receiver.ID, senderID); err != nil {
				return "", fmt.Errorf("accept reciprocal request: %w", err)
			}
			return model.RelationFriends, nil
		}
	}

	req := &model.Friendship{
		UserID:   senderID,
		FriendID: receiver.ID,
		Status:   model.FriendshipPending,
	}
	if err := s.FriendRepo.CreateRequest(ctx, req); err != nil {
		return "", fmt.Errorf("create friend request: %w", err)
	}
	return model.RelationOutgoing, nil
}

// RespondToRequest 处理 requesterID 发给 receiverID 的待处理申请
func (s *FriendshipService) RespondToRequest(ctx context.Context, receiverID, requesterID uint, action string) error {
	switch action {
	case FriendActionAccept, FriendActionReject, FriendActionBlock:
	default:
		return util.ErrUnknownAction
	}

	req, err := s.getRow(ctx, requesterID, receiverID)
	if err != nil {
		return err
	}
	if req == nil || req.Status != model.FriendshipPending {
		return util.ErrFriendRequestNotFound
	}

	switch action {
	case FriendActionAccept:
		err = s.FriendRepo.Accept(ctx, requesterID, receiverID)
	case FriendActionReject:
		err = s.FriendRepo.DeleteRequest(ctx, requesterID, receiverID)
	case FriendActionBlock:
		err = s.FriendRepo.Block(ctx, requesterID, receiverID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// 并发处理时申请可能已被改变
		return util.ErrFriendRequestNotFound
	}
	return err
}

func (s *FriendshipService) ListFriends(ctx context.Context, userID uint, query string) ([]model.UserBrief, error) {
	friends, err := s.FriendRepo.ListFriends(ctx, userID, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	out := make([]model.UserBrief, 0, len(friends))
	for i := range friends {
		out = append(out, friends[i].Brief())
	}
	return out, nil
}

func (s *FriendshipService) ListIncoming(ctx context.Context, userID uint) ([]FriendRequestView, error) {
	reqs, err := s.FriendRepo.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]FriendRequestView, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, FriendRequestView{From: r.User.Brief(), CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// Search 模糊搜索用户，并标注与当前用户的关系
func (s *FriendshipService) Search(ctx context.Context, viewerID uint, query string) ([]UserSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []UserSearchResult{}, nil
	}

	users, err := s.UserRepo.Search(ctx, query, viewerID, friendSearchLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	rows, err := s.FriendRepo.ListBetween(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]UserSearchResult, 0, len(users))
	for i := range users {
		results = append(results, UserSearchResult{
			UserBrief: users[i].Brief(),
			Relation:  RelationBetween(viewerID, users[i].ID, rows),
		})
	}
	return results, nil
}

// RelationBetween 根据关系行计算 viewerID 看到的与 otherID 的关系
func RelationBetween(viewerID, otherID uint, rows []model.Friendship) model.Relation {
	var out, in *model.Friendship
	for i := range rows {
		switch {
		case rows[i].UserID == viewerID && rows[i].FriendID == otherID:
			out = &rows[i]
		case rows[i].UserID == otherID && rows[i].FriendID == viewerID:
			in = &rows[i]
		}
	}

	switch {
	case (out != nil && out.Status == model.FriendshipBlocked) || (in != nil && in.Status == model.FriendshipBlocked):
		return model.RelationBlocked
	case out != nil && out.Status == model.FriendshipAccepted:
		return model.RelationFriends
	case out != nil && out.Status == model.FriendshipPending:
		return model.RelationOutgoing
	case in != nil && in.Status == model.FriendshipPending:
		return model.RelationIncoming
	}
	return model.RelationNone
}

func (s *FriendshipService) RemoveFriend(ctx context.Context, userID, friendID uint) error {
	ok, err := s.FriendRepo.AreFriends(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrNotFriends
	}
	return s.FriendRepo.DeletePair(ctx, userID, friendID)
}

func (s *FriendshipService) AreFriends(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.FriendRepo.AreFriends(ctx, userID, otherID)
}
