package model

import (
	"time"
)

// XrayClient is a credential discovered in the Xray config.
// Rows are never removed by a sync: a UUID may disappear from the config while
// still bound to a user.
type XrayClient struct {
	UUID       string    `gorm:"column:uuid;primaryKey"`
	Email      string    `gorm:"column:email"`
	Discovered time.Time `gorm:"column:discovered;autoCreateTime"`
}

func (XrayClient) TableName() string { return "xray_client" }

type TelegramUser struct {
	TelegramID int64     `gorm:"column:telegram_id;primaryKey;autoIncrement:false"`
	Username   string    `gorm:"column:username"`
	FirstName  string    `gorm:"column:first_name"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (TelegramUser) TableName() string { return "telegram_user" }

// UserUUID binds one credential to one Telegram user.
// The primary key on UUID keeps a credential bound to at most one user.
type UserUUID struct {
	UUID       string    `gorm:"column:uuid;primaryKey"`
	TelegramID int64     `gorm:"column:telegram_id;index;not null"`
	BoundAt    time.Time `gorm:"column:bound_at;autoCreateTime"`
}

func (UserUUID) TableName() string { return "user_uuid" }

// Binding is a credential bound to a user, as the bot shows it.
type Binding struct {
	UUID  string `gorm:"column:uuid"`
	Email string `gorm:"column:email"`
}

// ClientOwner is one row of the operator listing: every known credential and
// its owner, if any.
type ClientOwner struct {
	UUID       string  `gorm:"column:uuid"`
	Email      string  `gorm:"column:email"`
	TelegramID *int64  `gorm:"column:telegram_id"`
	Username   *string `gorm:"column:username"`
	FirstName  *string `gorm:"column:first_name"`
}
