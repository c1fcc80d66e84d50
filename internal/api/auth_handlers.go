package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/services"
)

type registerRequest struct {
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	DisplayName     string `json:"display_name" form:"display_name"`
}

type loginRequest struct {
	Email              string `json:"email" form:"email"`
	Password           string `json:"password" form:"password"`
	RememberMe         bool   `json:"remember_me" form:"remember_me"`
	MergeGuestProgress bool   `json:"merge_guest_progress" form:"merge_guest_progress"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" form:"token"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type sessionResponse struct {
	Kind               services.IdentityKind `json:"kind"`
	User               *models.User          `json:"user,omitempty"`
	MustChangePassword bool                  `json:"must_change_password"`
	CSRFToken          string                `json:"csrf_token,omitempty"`
}

func (handler *Handler) Register(c *fiber.Ctx) error {
	request := registerRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	user, err := handler.authService.Register(c.UserContext(), request.Email, request.Password, request.ConfirmPassword, request.DisplayName)
	if errors.Is(err, services.ErrAuthCredentialsInvalid) {
		return apiError(c, fiber.StatusBadRequest, "valid email and password are required")
	}
	if err != nil {
		return handler.authError(c, err)
	}

	handler.signIn(c, &user, false)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	request := loginRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	key := limiterKey(c, request.Email)
	now := handler.now()
	if handler.loginLimiter.blocked(key, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many login attempts")
	}

	user, err := handler.authService.Authenticate(c.UserContext(), request.Email, request.Password)
	if err != nil {
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			handler.loginLimiter.record(key, now)
		}
		return handler.authError(c, err)
	}
	handler.loginLimiter.clear(key)

	merged := 0
	if request.MergeGuestProgress {
		_, store := currentDevice(c)
		if store != nil {
			merged, err = handler.progressEngine.MergeLocalProgress(c.UserContext(), user.ID, store)
			if err != nil {
				handler.log.Warn("guest progress merge failed", "user_id", user.ID, "error", err)
			}
		}
	}

	if err := handler.setAuthCookie(c, &user, request.RememberMe); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	handler.signIn(c, &user, true)
	return c.JSON(fiber.Map{
		"user":                 user,
		"must_change_password": user.MustChangePassword,
		"merged_chapters":      merged,
	})
}

func (handler *Handler) signIn(c *fiber.Ctx, user *models.User, cookieSet bool) {
	if !cookieSet {
		if err := handler.setAuthCookie(c, user, false); err != nil {
			handler.log.Error("issue auth cookie failed", "user_id", user.ID, "error", err)
		}
	}
	handler.clearGuestCookie(c)
	deviceID, _ := currentDevice(c)
	handler.sessions.Invalidate(deviceID)
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	handler.clearGuestCookie(c)
	deviceID, _ := currentDevice(c)
	handler.sessions.Invalidate(deviceID)
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) ContinueAsGuest(c *fiber.Ctx) error {
	handler.clearAuthCookie(c)
	handler.setGuestCookie(c)
	deviceID, _ := currentDevice(c)
	handler.sessions.Invalidate(deviceID)
	return c.JSON(sessionResponse{Kind: services.IdentityGuest, CSRFToken: csrfToken(c)})
}

func (handler *Handler) ForgotPassword(c *fiber.Ctx) error {
	request := forgotPasswordRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	key := limiterKey(c)
	now := handler.now()
	if handler.forgotLimiter.blocked(key, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many reset requests")
	}
	handler.forgotLimiter.record(key, now)

	if err := handler.authService.RequestPasswordReset(c.UserContext(), request.Email); err != nil {
		if errors.Is(err, services.ErrAuthCredentialsInvalid) {
			return apiError(c, fiber.StatusBadRequest, "invalid email")
		}
		handler.log.Error("password reset request failed", "error", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) ResetPassword(c *fiber.Ctx) error {
	request := resetPasswordRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	user, err := handler.authService.ResetPassword(c.UserContext(), request.Token, request.Password, request.ConfirmPassword)
	if err != nil {
		return handler.authError(c, err)
	}

	handler.sessions.InvalidateUser(user.ID)
	handler.signIn(c, &user, false)
	return c.JSON(fiber.Map{"user": user})
}

func (handler *Handler) Session(c *fiber.Ctx) error {
	response := sessionResponse{Kind: currentIdentity(c).Kind, CSRFToken: csrfToken(c)}
	if user, ok := currentUser(c); ok {
		response.User = user
		response.MustChangePassword = user.MustChangePassword
	}
	return c.JSON(response)
}

func (handler *Handler) authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAuthCredentialsInvalid):
		return apiError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrAuthPasswordMismatch):
		return apiError(c, fiber.StatusBadRequest, "passwords do not match")
	case errors.Is(err, services.ErrWeakPassword):
		return apiError(c, fiber.StatusBadRequest, "weak password")
	case errors.Is(err, services.ErrSettingsDisplayNameTooLong):
		return apiError(c, fiber.StatusBadRequest, "display name too long")
	case errors.Is(err, services.ErrAuthEmailTaken):
		return apiError(c, fiber.StatusConflict, "email already registered")
	case errors.Is(err, services.ErrPasswordResetTokenExpired):
		return apiError(c, fiber.StatusBadRequest, "reset link expired")
	case errors.Is(err, services.ErrPasswordResetTokenMissing),
		errors.Is(err, services.ErrPasswordResetTokenInvalid),
		errors.Is(err, services.ErrPasswordResetTokenInvalidPurpose),
		errors.Is(err, services.ErrPasswordResetTokenInvalidUserID),
		errors.Is(err, services.ErrPasswordResetTokenInvalidPasswordState):
		return apiError(c, fiber.StatusBadRequest, "invalid reset link")
	default:
		handler.log.Error("auth request failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, "request failed")
	}
}
