package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"splitbill_backend/internal/model"
	"splitbill_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendshipRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewFriendshipRepository(db *gorm.DB, rdb *redis.Client) *FriendshipRepository {
	return &FriendshipRepository{
		DB:    db,
		Redis: rdb,
	}
}

func friendCacheKey(userID uint) string {
	return fmt.Sprintf("splitbill:friends:%d", userID)
}

func (r *FriendshipRepository) invalidate(ctx context.Context, userIDs ...uint) {
	if r.Redis == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, friendCacheKey(id))
	}
	r.Redis.Del(ctx, keys...)
}

// Get 读取 userID -> friendID 方向的关系行
func (r *FriendshipRepository) Get(ctx context.Context, userID, friendID uint) (*model.Friendship, error) {
	var f model.Friendship
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		First(&f).Error
	return &f, err
}

func (r *FriendshipRepository) CreateRequest(ctx context.Context, f *model.Friendship) error {
	return r.DB.WithContext(ctx).Create(f).Error
}

// Accept 同意 requesterID 发给 receiverID 的申请，并写入反向行
func (r *FriendshipRepository) Accept(ctx context.Context, requesterID, receiverID uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Friendship{}).
			Where("user_id = ? AND friend_id = ? AND status = ?", requesterID, receiverID, model.FriendshipPending).
			Update("status", model.FriendshipAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		reverse := &model.Friendship{
			UserID:   receiverID,
			FriendID: requesterID,
			Status:   model.FriendshipAccepted,
		}
		// 对方也可能发过申请，直接覆盖为 accepted
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"status": model.FriendshipAccepted}),
		}).Create(reverse).Error
	})

	if err == nil {
		r.invalidate(ctx, requesterID, receiverID)
	}
	return err
}

// Block 将 requesterID -> receiverID 的申请标记为 blocked，阻止再次申请
func (r *FriendshipRepository) Block(ctx context.Context, requesterID, receiverID uint) error {
	res := r.DB.WithContext(ctx).Model(&model.Friendship{}).
		Where("user_id = ? AND friend_id = ?", requesterID, receiverID).
		Update("status", model.FriendshipBlocked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidate(ctx, requesterID, receiverID)
	return nil
}

func (r *FriendshipRepository) DeleteRequest(ctx context.Context, requesterID, receiverID uint) error {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND friend_id = ? AND status = ?", requesterID, receiverID, model.FriendshipPending).
		Delete(&model.Friendship{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePair 删除双向好友关系
func (r *FriendshipRepository) DeletePair(ctx context.Context, userID, friendID uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND friend_id = ? AND status = ?", userID, friendID, model.FriendshipAccepted).
			Delete(&model.Friendship{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND friend_id = ? AND status = ?", friendID, userID, model.FriendshipAccepted).
			Delete(&model.Friendship{}).Error
	})

	if err == nil {
		r.invalidate(ctx, userID, friendID)
	}
	return err
}

func (r *FriendshipRepository) ListFriends(ctx context.Context, userID uint, query string) ([]model.User, error) {
	var friends []model.User
	db := r.DB.WithContext(ctx).
		Joins("JOIN friendships ON friendships.friend_id = users.id").
		Where("friendships.user_id = ? AND friendships.status = ?", userID, model.FriendshipAccepted)

	if query != "" {
		searchTerm := util.ContainsPattern(query)
		db = db.Where("(users.name LIKE ? OR users.email LIKE ?)", searchTerm, searchTerm)
	}

	err := db.Order("users.name ASC").Find(&friends).Error
	return friends, err
}

// ListIncoming 发给 userID 的待处理申请
func (r *FriendshipRepository) ListIncoming(ctx context.Context, userID uint) ([]model.Friendship, error) {
	var reqs []model.Friendship
	err := r.DB.WithContext(ctx).
		Preload("User").
		Where("friend_id = ? AND status = ?", userID, model.FriendshipPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListBetween 返回 userID 与 otherIDs 之间两个方向的全部关系行
func (r *FriendshipRepository) ListBetween(ctx context.Context, userID uint, otherIDs []uint) ([]model.Friendship, error) {
	var rows []model.Friendship
	if len(otherIDs) == 0 {
		return rows, nil
	}
	err := r.DB.WithContext(ctx).
		Where("(user_id = ? AND friend_id IN ?) OR (friend_id = ? AND user_id IN ?)", userID, otherIDs, userID, otherIDs).
		Find(&rows).Error
	return rows, err
}

// FriendIDs 只获取已接受好友的 ID 列表
func (r *FriendshipRepository) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Table("friendships").
		Where("user_id = ? AND status = ?", userID, model.FriendshipAccepted).
		Pluck("friend_id", &ids).Error
	return ids, err
}

// FriendIDsCached 获取好友 ID 列表 (带缓存)
func (r *FriendshipRepository) FriendIDsCached(ctx context.Context, userID uint) ([]uint, error) {
	if r.Redis == nil {
		return r.FriendIDs(ctx, userID)
	}

	key := friendCacheKey(userID)
	cached, err := r.Redis.SMembers(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		ids := make([]uint, 0, len(cached))
		for _, s := range cached {
			id, _ := strconv.ParseUint(s, 10, 64)
			if id > 0 {
				ids = append(ids, uint(id))
			}
		}
		return ids, nil
	}

	// 缓存失效，回源数据库
	ids, err := r.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	pipe := r.Redis.Pipeline()
	if len(ids) > 0 {
		for _, id := range ids {
			pipe.SAdd(ctx, key, id)
		}
		pipe.Expire(ctx, key, 24*time.Hour)
	} else {
		// 防止缓存穿透：存一个占位值并设置短过期时间
		pipe.SAdd(ctx, key, 0)
		pipe.Expire(ctx, key, 5*time.Minute)
	}
	pipe.Exec(ctx)
	return ids, nil
}

func (r *FriendshipRepository) AreFriends(ctx context.Context, userID, otherID uint) (bool, error) {
	ids, err := r.FriendIDsCached(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == otherID {
			return true, nil
		}
	}
	return false, nil
}
