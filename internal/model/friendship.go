package model

import "time"

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipBlocked  FriendshipStatus = "blocked"
)

// Friendship 单向好友关系行：UserID 发起，FriendID 接收。
// 同意后会写入一条反向的 accepted 行。
type Friendship struct {
	UserID    uint             `gorm:"primaryKey" json:"userId"`
	FriendID  uint             `gorm:"primaryKey;index" json:"friendId"`
	Status    FriendshipStatus `gorm:"size:16;not null;default:'pending';check:chk_friendships_status,status IN ('pending','accepted','blocked')" json:"status"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
	User      *User            `gorm:"foreignKey:UserID;references:ID;constraint:false" json:"user,omitempty"`
	Friend    *User            `gorm:"foreignKey:FriendID;references:ID;constraint:false" json:"friend,omitempty"`
}

func (Friendship) TableName() string {
	return "friendships"
}

// Relation 从查看者角度描述与另一用户的关系
type Relation string

const (
	RelationNone     Relation = "none"
	RelationFriends  Relation = "friends"
	RelationOutgoing Relation = "outgoing"
	RelationIncoming Relation = "incoming"
	RelationBlocked  Relation = "blocked"
)
