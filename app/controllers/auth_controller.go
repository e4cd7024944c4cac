package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/app/repository"
	"github.com/FelixDorner/LinkCard/internal/pkg/hcaptcha"
	"github.com/FelixDorner/LinkCard/internal/pkg/logging"
	"github.com/FelixDorner/LinkCard/internal/pkg/session"
	"github.com/FelixDorner/LinkCard/internal/pkg/usercontext"
)

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates a new user account.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}

	if hcaptcha.Enabled() {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok {
			logging.Warn("", "signup captcha rejected", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "captcha_failed"})
		}
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	if existing, err := userRepo.GetByEmail(req.Email); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "registration_failed"})
	} else if existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken"})
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := userRepo.Create(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "registration_failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": user.ID, "email": user.Email})
}

// HandleAuthLogin verifies credentials and establishes a session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}

	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByEmail(req.Email)
	if err != nil || user == nil || !user.CheckPassword(req.Password) {
		// One message for every credential failure
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_credentials"})
	}
	if !user.IsActive() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account_disabled"})
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session_failed"})
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session_failed"})
	}

	now := time.Now()
	user.LastLoginAt = &now
	_ = userRepo.Update(user)

	logging.Info(sess.ID(), "user logged in", map[string]interface{}{"user_id": user.ID})
	return c.JSON(fiber.Map{"id": user.ID, "name": user.Name})
}

// HandleAuthLogout destroys the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	return c.JSON(fiber.Map{"ok": true})
}
