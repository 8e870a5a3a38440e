package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name         string `gorm:"column:name;size:255;not null" json:"name"`
	Username     string `gorm:"column:username;size:100;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	Address      string `gorm:"column:address;size:255" json:"address"`
	Phone        string `gorm:"column:phone;size:20" json:"phone"`
	DOB          string `gorm:"column:dob;size:20" json:"dob"`
	Role         string `gorm:"column:role;size:50;not null;default:user" json:"role"`

	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

	// A user holds at most one active membership reference. Adding a
	// membership overwrites it, removing the membership clears it.
	MembershipID *uuid.UUID  `gorm:"column:membership_id;type:uuid" json:"membership_id,omitempty"`
	Membership   *Membership `gorm:"foreignKey:MembershipID" json:"membership,omitempty"`
}

func (User) TableName() string {
	return "users"
}
