package controllers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/FelixDorner/LinkCard/internal/pkg/billing"
	"github.com/FelixDorner/LinkCard/internal/pkg/constants"
	"github.com/FelixDorner/LinkCard/internal/pkg/entitlements"
	"github.com/FelixDorner/LinkCard/internal/pkg/env"
	"github.com/FelixDorner/LinkCard/internal/pkg/logging"
	"github.com/FelixDorner/LinkCard/internal/pkg/session"
	"github.com/FelixDorner/LinkCard/internal/pkg/subscription"
	"github.com/FelixDorner/LinkCard/internal/pkg/usercontext"
)

var (
	billingRepo     billing.Repository
	stripeClient    *billing.Client
	reconciler      *billing.Reconciler
	subscriptionSvc *subscription.Service
)

// InitializeBillingController wires the billing subsystem. Called once from
// the router during startup; tests call it with fakes.
func InitializeBillingController(repo billing.Repository, client *billing.Client, fetcher billing.SubscriptionFetcher, svc *subscription.Service) {
	billingRepo = repo
	stripeClient = client
	rec := billing.NewReconciler(repo, fetcher).WithNotifier(billing.NewMailNotifier(repo))
	if svc != nil {
		rec = rec.WithInvalidator(svc)
	}
	reconciler = rec
	subscriptionSvc = svc
}

// HandleStripeWebhook receives billing provider events. Verification failures
// are the only client errors; everything after a verified signature is
// acknowledged with 2xx so the provider never retries into a local problem it
// cannot fix. Degraded processing is flagged in the response body and in the
// logs, not in the HTTP status.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	sigHeader := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if secret == "" {
		logging.Error("", "webhook rejected: no verification secret configured", map[string]interface{}{
			"signature_present": sigHeader != "",
		})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Webhook Error: webhook secret not configured",
		})
	}

	event, err := stripeClient.ConstructWebhookEvent(rawBody, sigHeader)
	if err != nil {
		logging.Error("", "webhook signature verification failed", map[string]interface{}{
			"signature_present": sigHeader != "",
			"error":             err.Error(),
		})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Webhook Error: %v", err),
		})
	}

	created, stored, err := billing.RecordWebhookEvent(billingRepo, billing.WebhookEventInput{
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		// Dedup bookkeeping is best effort; the event itself still gets
		// processed.
		logging.Error(event.ID, "webhook event persistence failed", map[string]interface{}{
			"error": err.Error(),
		})
		stored = nil
	} else if !created {
		logging.Info(event.ID, "duplicate webhook delivery acknowledged", map[string]interface{}{
			"event_type": string(event.Type),
		})
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	// Outer guard: even a panic inside the dispatch must end in an
	// acknowledgment, with the failure recorded for operators.
	var procErr error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				procErr = fmt.Errorf("panic during webhook processing: %v", rec)
				logging.Error(event.ID, "webhook processing panicked", map[string]interface{}{
					"event_type": string(event.Type),
					"panic":      fmt.Sprint(rec),
				})
			}
		}()
		procErr = reconciler.HandleEvent(event)
	}()

	if stored != nil {
		msg := ""
		if procErr != nil {
			msg = procErr.Error()
		}
		if err := billingRepo.MarkWebhookProcessed(stored.ID, msg); err != nil {
			logging.Error(event.ID, "could not mark webhook processed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if procErr != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"received":        true,
			"processingError": true,
			"message":         procErr.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandleBillingCheckout redirects the user into the hosted checkout for the
// requested plan.
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	plan := strings.TrimSpace(c.Query("plan", c.FormValue("plan")))
	if plan != "premium" && plan != "team" {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Unknown plan"}).Redirect(constants.AccountRoute)
	}
	quantity := int64(1)
	if q, err := strconv.ParseInt(c.Query("seats", "1"), 10, 64); err == nil && q > 0 {
		quantity = q
	}

	url, err := stripeClient.CreateCheckoutSession(userCtx.UserID, plan, quantity)
	if err != nil {
		typed := subscription.NewError(subscription.CodeCheckoutFailed, "could not start checkout", err)
		logging.Error(session.SessionID(c), "checkout session creation failed", map[string]interface{}{
			"user_id": userCtx.UserID,
			"code":    string(subscription.CodeOf(typed)),
			"error":   err.Error(),
		})
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout could not be started"}).Redirect(constants.AccountRoute)
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandleBillingPortal redirects into the hosted customer portal, where
// payment methods are updated. The cached plan may change afterwards, so it
// is dropped up front.
func HandleBillingPortal(c *fiber.Ctx) error {
	return redirectToPortal(c, subscription.CodePaymentUpdateFailed, "Billing portal could not be opened")
}

// HandleBillingCancel routes cancellation through the hosted portal and
// invalidates the cached subscription so the next read sees the new state.
func HandleBillingCancel(c *fiber.Ctx) error {
	return redirectToPortal(c, subscription.CodeCancelFailed, "Cancellation could not be started")
}

func redirectToPortal(c *fiber.Ctx, failureCode subscription.Code, failureMessage string) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	sub, err := subscriptionSvc.Resolve(userCtx.UserID)
	if err != nil || sub == nil || sub.StripeCustomerID == nil {
		logging.Warn(session.SessionID(c), "no billing customer for portal redirect", map[string]interface{}{
			"user_id": userCtx.UserID,
		})
		return flash.WithError(c, fiber.Map{"type": "error", "message": "No billing account on file"}).Redirect(constants.AccountRoute)
	}

	url, err := stripeClient.CreateBillingPortalSession(*sub.StripeCustomerID)
	if err != nil {
		typed := subscription.NewError(failureCode, failureMessage, err)
		logging.Error(session.SessionID(c), "portal session creation failed", map[string]interface{}{
			"user_id": userCtx.UserID,
			"code":    string(subscription.CodeOf(typed)),
			"error":   err.Error(),
		})
		return flash.WithError(c, fiber.Map{"type": "error", "message": failureMessage}).Redirect(constants.AccountRoute)
	}

	// State will change out of band in the hosted flow.
	subscriptionSvc.Invalidate(userCtx.UserID)

	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandleBillingResync drops the cache and re-resolves the subscription from
// the store.
func HandleBillingResync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	subscriptionSvc.Invalidate(userCtx.UserID)
	sub, err := subscriptionSvc.Resolve(userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Plan re-sync failed"}).Redirect(constants.AccountRoute)
	}

	plan := string(entitlements.NormalizePlan(sub.Plan))
	msg := fmt.Sprintf("Plan refreshed. Active plan: %s", plan)
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": msg}).Redirect(constants.AccountRoute)
}
