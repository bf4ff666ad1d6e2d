package model

import "time"

type GroupRole string

const (
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

func (r GroupRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// InvitationTTL 邀请链接有效期
const InvitationTTL = 7 * 24 * time.Hour

type Group struct {
	BaseModel
	Name        string        `gorm:"size:100;not null" json:"name"`
	Description string        `gorm:"size:500" json:"description"`
	Currency    string        `gorm:"size:3;default:'USD'" json:"currency"`
	CreatedBy   uint          `gorm:"index;not null" json:"createdBy"`
	Members     []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

func (Group) TableName() string {
	return "expense_groups"
}

// GroupMember 群组成员行
type GroupMember struct {
	GroupID  uint      `gorm:"primaryKey" json:"groupId"`
	UserID   uint      `gorm:"primaryKey;index" json:"userId"`
	Role     GroupRole `gorm:"size:16;not null;default:'member';check:chk_group_members_role,role IN ('admin','member')" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
	User     *User     `gorm:"foreignKey:UserID;references:ID;constraint:false" json:"user,omitempty"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

type GroupInvitation struct {
	Token      string     `gorm:"primaryKey;size:36" json:"token"`
	GroupID    uint       `gorm:"index;not null" json:"groupId"`
	InviterID  uint       `gorm:"not null" json:"inviterId"`
	Email      string     `gorm:"size:100" json:"email,omitempty"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expiresAt"`
	Accepted   bool       `gorm:"default:false" json:"accepted"`
	AcceptedBy *uint      `json:"acceptedBy,omitempty"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (GroupInvitation) TableName() string {
	return "group_invitations"
}

func (i *GroupInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// GroupSummary 我的群组列表项
type GroupSummary struct {
	Group
	Role        GroupRole `json:"role"`
	MemberCount int64     `json:"memberCount"`
}
