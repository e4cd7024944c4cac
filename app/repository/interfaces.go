package repository

import (
	"gorm.io/gorm"

	"github.com/FelixDorner/LinkCard/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// CardRepository defines the interface for card-related database operations
type CardRepository interface {
	Create(card *models.Card) error
	GetByID(id uint) (*models.Card, error)
	GetByUUID(uuid string) (*models.Card, error)
	GetBySlug(slug string) (*models.Card, error)
	GetByUserID(userID uint) ([]models.Card, error)
	CountByUserID(userID uint) (int64, error)
	Update(card *models.Card) error
	Delete(id uint) error
	GetDailyViews(cardID uint, days int) ([]models.CardView, error)
}

// Repositories bundles all repository implementations
type Repositories struct {
	User UserRepository
	Card CardRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
		Card: NewCardRepository(db),
	}
}
