package billing

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/FelixDorner/LinkCard/app/models"
)

// Repository provides DB operations used by the webhook reconciler and the
// subscription read path.
type Repository interface {
	GetLatestByUser(userID uint) (*models.Subscription, error)
	GetByStripeSubscriptionID(id string) (*models.Subscription, error)
	UpsertCheckout(sub *models.Subscription) error
	UpdateByStripeSubscriptionID(id string, fields map[string]interface{}) (int64, error)
	GetUserEmail(userID uint) (string, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a subscription repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// GetLatestByUser returns the newest subscription row for a user, or nil when
// the user never checked out. Multiple rows per user are not guarded against
// at the schema level; the newest row wins on read.
func (r *gormRepository) GetLatestByUser(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetByStripeSubscriptionID(id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_subscription_id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpsertCheckout writes the row produced by a completed checkout. The stripe
// subscription id is the stable correlation key for all later mutations, so
// redelivered checkout events collapse onto the same row.
func (r *gormRepository) UpsertCheckout(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"plan",
			"status",
			"stripe_customer_id",
			"current_period_end",
			"quantity",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	if sub.StripeSubscriptionID == nil {
		return nil
	}
	// Ensure ID is populated after upsert.
	return r.db.Where("stripe_subscription_id = ?", *sub.StripeSubscriptionID).First(sub).Error
}

// UpdateByStripeSubscriptionID applies a full-field overwrite to the row
// matched by external reference and reports how many rows were touched. Zero
// rows is a valid outcome for events about subscriptions we never recorded.
func (r *gormRepository) UpdateByStripeSubscriptionID(id string, fields map[string]interface{}) (int64, error) {
	tx := r.db.Model(&models.Subscription{}).Where("stripe_subscription_id = ?", id).Updates(fields)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) GetUserEmail(userID uint) (string, error) {
	var user models.User
	if err := r.db.Select("email").First(&user, userID).Error; err != nil {
		return "", err
	}
	return user.Email, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
