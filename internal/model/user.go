package model

import (
	"time"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Avatar    string     `gorm:"size:255" json:"avatar"`
	Currency  string     `gorm:"size:3;default:'USD'" json:"currency"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserBrief 对外展示的用户摘要，不含敏感字段
type UserBrief struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

func (u *User) Brief() UserBrief {
	if u == nil {
		return UserBrief{}
	}
	return UserBrief{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}
