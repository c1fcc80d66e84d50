package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/localstore"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/services"
)

const (
	authCookieName   = "easypeasy_auth"
	guestCookieName  = "easypeasy_guest"
	deviceCookieName = "easypeasy_device"
	csrfCookieName   = "easypeasy_csrf"

	contextUserKey     = "current_user"
	contextIdentityKey = "current_identity"
	contextDeviceKey   = "current_device"
	contextStoreKey    = "current_store"
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok
}

func currentIdentity(c *fiber.Ctx) services.Identity {
	identity, ok := c.Locals(contextIdentityKey).(services.Identity)
	if !ok {
		return services.Unauthenticated()
	}
	return identity
}

func currentDevice(c *fiber.Ctx) (string, localstore.Store) {
	deviceID, _ := c.Locals(contextDeviceKey).(string)
	store, _ := c.Locals(contextStoreKey).(localstore.Store)
	return deviceID, store
}

func (handler *Handler) DeviceMiddleware(c *fiber.Ctx) error {
	deviceID := strings.TrimSpace(c.Cookies(deviceCookieName))
	store, err := handler.devices.Device(deviceID)
	if err != nil {
		deviceID = uuid.NewString()
		store, err = handler.devices.Device(deviceID)
		if err != nil {
			handler.log.Error("open device store failed", "error", err)
			return apiError(c, fiber.StatusInternalServerError, "device storage unavailable")
		}
		c.Cookie(&fiber.Cookie{
			Name:     deviceCookieName,
			Value:    deviceID,
			Path:     "/",
			HTTPOnly: true,
			Secure:   handler.cookieSecure,
			SameSite: "Lax",
			Expires:  time.Now().Add(deviceCookieTTL),
		})
	}
	c.Locals(contextDeviceKey, deviceID)
	c.Locals(contextStoreKey, store)
	return c.Next()
}

func (handler *Handler) IdentityMiddleware(c *fiber.Ctx) error {
	if user, err := handler.authenticateRequest(c); err == nil {
		c.Locals(contextUserKey, user)
		c.Locals(contextIdentityKey, services.Authenticated(user.ID))
		return c.Next()
	}
	if c.Cookies(guestCookieName) == "1" {
		c.Locals(contextIdentityKey, services.Guest())
		return c.Next()
	}
	c.Locals(contextIdentityKey, services.Unauthenticated())
	return c.Next()
}

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok || user == nil {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if user.MustChangePassword && !passwordChangeAllowedPath(c.Path()) {
		return apiError(c, fiber.StatusForbidden, "password change required")
	}
	return c.Next()
}

func (handler *Handler) IdentityRequired(c *fiber.Ctx) error {
	identity := currentIdentity(c)
	if !identity.IsAuthenticated() && !identity.IsGuest() {
		return apiError(c, fiber.StatusUnauthorized, "sign in or continue as guest")
	}
	if user, ok := currentUser(c); ok && user.MustChangePassword && !passwordChangeAllowedPath(c.Path()) {
		return apiError(c, fiber.StatusForbidden, "password change required")
	}
	return c.Next()
}

func passwordChangeAllowedPath(path string) bool {
	switch path {
	case "/api/settings/change-password", "/api/auth/session", "/api/auth/logout":
		return true
	default:
		return false
	}
}
