package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/FelixDorner/LinkCard/app/models"
)

type cardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a card repository backed by GORM
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(card *models.Card) error {
	return r.db.Create(card).Error
}

func (r *cardRepository) GetByID(id uint) (*models.Card, error) {
	var card models.Card
	if err := r.db.First(&card, id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) GetByUUID(uuid string) (*models.Card, error) {
	var card models.Card
	if err := r.db.Where("uuid = ?", uuid).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) GetBySlug(slug string) (*models.Card, error) {
	var card models.Card
	err := r.db.Where("slug = ?", slug).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) GetByUserID(userID uint) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&cards).Error
	return cards, err
}

func (r *cardRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Card{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *cardRepository) Update(card *models.Card) error {
	return r.db.Save(card).Error
}

func (r *cardRepository) Delete(id uint) error {
	return r.db.Delete(&models.Card{}, id).Error
}

func (r *cardRepository) GetDailyViews(cardID uint, days int) ([]models.CardView, error) {
	var views []models.CardView
	since := time.Now().UTC().AddDate(0, 0, -days)
	err := r.db.Where("card_id = ? AND day >= ?", cardID, since).Order("day ASC").Find(&views).Error
	return views, err
}
