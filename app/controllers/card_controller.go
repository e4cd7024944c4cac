package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/app/repository"
	"github.com/FelixDorner/LinkCard/internal/pkg/entitlements"
	"github.com/FelixDorner/LinkCard/internal/pkg/logging"
	"github.com/FelixDorner/LinkCard/internal/pkg/metrics/counter"
	"github.com/FelixDorner/LinkCard/internal/pkg/shortener"
	"github.com/FelixDorner/LinkCard/internal/pkg/usercontext"
)

type cardRequest struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	JobTitle    string `json:"job_title"`
	Company     string `json:"company"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Bio         string `json:"bio"`
	LinksJSON   string `json:"links_json"`
	Published   bool   `json:"published"`
}

// HandleListCards returns the authenticated user's cards.
func HandleListCards(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	cards, err := repository.GetGlobalFactory().GetCardRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query_failed"})
	}
	return c.JSON(fiber.Map{"cards": cards})
}

// HandleCreateCard creates a card, gated by the plan's card allowance.
func HandleCreateCard(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	var req cardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}

	cardRepo := repository.GetGlobalFactory().GetCardRepository()
	count, err := cardRepo.CountByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query_failed"})
	}
	limit := entitlements.MaxCards(entitlements.NormalizePlan(userCtx.Plan))
	if count >= int64(limit) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "plan_limit_reached",
			"message": "your plan does not allow more cards",
			"limit":   limit,
		})
	}

	if req.Slug == "" {
		slug, err := shortener.GenerateSecureSlug(8)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
		}
		req.Slug = slug
	}

	card := &models.Card{
		UserID:      userCtx.UserID,
		Slug:        req.Slug,
		DisplayName: req.DisplayName,
		JobTitle:    req.JobTitle,
		Company:     req.Company,
		Email:       req.Email,
		Phone:       req.Phone,
		Website:     req.Website,
		Bio:         req.Bio,
		LinksJSON:   req.LinksJSON,
		Published:   req.Published,
	}
	if err := card.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := cardRepo.Create(card); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

// HandleUpdateCard updates one of the user's cards by UUID.
func HandleUpdateCard(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	cardRepo := repository.GetGlobalFactory().GetCardRepository()

	card, err := cardRepo.GetByUUID(c.Params("uuid"))
	if err != nil || card == nil || card.UserID != userCtx.UserID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	var req cardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}
	card.Slug = req.Slug
	card.DisplayName = req.DisplayName
	card.JobTitle = req.JobTitle
	card.Company = req.Company
	card.Email = req.Email
	card.Phone = req.Phone
	card.Website = req.Website
	card.Bio = req.Bio
	card.LinksJSON = req.LinksJSON
	card.Published = req.Published

	if err := card.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := cardRepo.Update(card); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}
	return c.JSON(card)
}

// HandleDeleteCard soft-deletes one of the user's cards.
func HandleDeleteCard(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	cardRepo := repository.GetGlobalFactory().GetCardRepository()

	card, err := cardRepo.GetByUUID(c.Params("uuid"))
	if err != nil || card == nil || card.UserID != userCtx.UserID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if err := cardRepo.Delete(card.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleCardStats returns the daily view rollups for one of the user's cards.
func HandleCardStats(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	cardRepo := repository.GetGlobalFactory().GetCardRepository()

	card, err := cardRepo.GetByUUID(c.Params("uuid"))
	if err != nil || card == nil || card.UserID != userCtx.UserID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	views, err := cardRepo.GetDailyViews(card.ID, 30)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query_failed"})
	}
	return c.JSON(fiber.Map{"total": card.ViewCount, "daily": views})
}

// HandlePublicCard serves a published card by slug and counts the view.
func HandlePublicCard(c *fiber.Ctx) error {
	card, err := repository.GetGlobalFactory().GetCardRepository().GetBySlug(c.Params("slug"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query_failed"})
	}
	if card == nil || !card.Published {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	if err := counter.AddCardView(card.ID); err != nil {
		// View counting is best effort
		logging.Warn("", "card view count failed", map[string]interface{}{
			"card_id": card.ID,
			"error":   err.Error(),
		})
	}
	return c.JSON(card)
}
