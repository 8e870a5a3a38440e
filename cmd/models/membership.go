package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MembershipType string

const (
	MonthlyMember MembershipType = "MonthlyMember"
	AnnualMember  MembershipType = "AnnualMember"
	Creator       MembershipType = "Creator"
)

// Valid reports whether the type is one of the known membership plans.
func (t MembershipType) Valid() bool {
	switch t {
	case MonthlyMember, AnnualMember, Creator:
		return true
	}
	return false
}

type Membership struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type           MembershipType `gorm:"column:type;size:50;not null" json:"type"`
	CreatedAt      time.Time      `gorm:"column:created_at;index" json:"created_at"`
	PaymentDate    time.Time      `gorm:"column:payment_date" json:"payment_date"`
	Price          float64        `gorm:"column:price" json:"price"`
	ExpirationDate time.Time      `gorm:"column:expiration_date;index" json:"expiration_date"`
	IsDeleted      bool           `gorm:"column:is_deleted;default:false" json:"isDeleted"`
	UserID         uint           `gorm:"column:user_id;index;not null" json:"user_id"`

	// Only the owner's id is ever serialized with a membership;
	// credential, address and contact fields stay in the users table.
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (Membership) TableName() string {
	return "memberships"
}
