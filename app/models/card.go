package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Card is one shareable business card profile owned by a user.
type Card struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Slug        string         `gorm:"type:varchar(100);uniqueIndex" json:"slug" validate:"required,min=3,max=100,alphanumunicode|contains=-"`
	DisplayName string         `gorm:"type:varchar(150);not null" json:"display_name" validate:"required,min=1,max=150"`
	JobTitle    string         `gorm:"type:varchar(150)" json:"job_title" validate:"max=150"`
	Company     string         `gorm:"type:varchar(150)" json:"company" validate:"max=150"`
	Email       string         `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Phone       string         `gorm:"type:varchar(50)" json:"phone" validate:"max=50"`
	Website     string         `gorm:"type:varchar(255)" json:"website" validate:"omitempty,url,max=255"`
	Bio         string         `gorm:"type:text" json:"bio" validate:"max=1000"`
	LinksJSON   string         `gorm:"type:longtext" json:"links_json"`
	Published   bool           `gorm:"default:false;index" json:"published"`
	ViewCount   int64          `gorm:"default:0" json:"view_count"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Card) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// BeforeCreate assigns a public identifier
func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == "" {
		c.UUID = uuid.New().String()
	}
	return nil
}
