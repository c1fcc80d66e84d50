package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/easypeasy/internal/services"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type profileRequest struct {
	DisplayName string `json:"display_name" form:"display_name"`
}

type deleteAccountRequest struct {
	Password string `json:"password" form:"password"`
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	request := changePasswordRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	err := handler.settingsService.ChangePassword(c.UserContext(), *user, services.PasswordChange{
		Current: request.CurrentPassword,
		New:     request.NewPassword,
		Confirm: request.ConfirmPassword,
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrSettingsPasswordChangeInvalidInput):
		return apiError(c, fiber.StatusBadRequest, "all password fields are required")
	case errors.Is(err, services.ErrSettingsPasswordMismatch):
		return apiError(c, fiber.StatusBadRequest, "passwords do not match")
	case errors.Is(err, services.ErrSettingsInvalidCurrentPassword):
		return apiError(c, fiber.StatusUnauthorized, "current password is incorrect")
	case errors.Is(err, services.ErrSettingsNewPasswordMustDiffer):
		return apiError(c, fiber.StatusBadRequest, "new password must differ")
	case errors.Is(err, services.ErrSettingsWeakPassword):
		return apiError(c, fiber.StatusBadRequest, "weak password")
	default:
		handler.log.Error("password change failed", "user_id", user.ID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to update password")
	}

	user.MustChangePassword = false
	if err := handler.setAuthCookie(c, user, false); err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	request := profileRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	displayName, err := handler.settingsService.UpdateDisplayName(c.UserContext(), user.ID, request.DisplayName)
	if err != nil {
		if errors.Is(err, services.ErrSettingsDisplayNameTooLong) {
			return apiError(c, fiber.StatusBadRequest, "display name too long")
		}
		handler.log.Error("profile update failed", "user_id", user.ID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to update profile")
	}
	return c.JSON(fiber.Map{"display_name": displayName})
}

func (handler *Handler) ExportAccount(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	export, err := handler.exportService.BuildAccountExport(c.UserContext(), user.ID)
	if err != nil {
		handler.log.Error("account export failed", "user_id", user.ID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to export data")
	}

	filename := fmt.Sprintf("easypeasy-export-%s.json", export.ExportedAt.In(handler.location).Format("2006-01-02"))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.JSON(export)
}

func (handler *Handler) DeleteAccount(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	request := deleteAccountRequest{}
	if err := parseBody(c, &request); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	err := handler.settingsService.DeleteAccount(c.UserContext(), *user, request.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrSettingsPasswordMissing):
		return apiError(c, fiber.StatusBadRequest, "password is required")
	case errors.Is(err, services.ErrSettingsPasswordInvalid):
		return apiError(c, fiber.StatusUnauthorized, "password is incorrect")
	default:
		handler.log.Error("account delete failed", "user_id", user.ID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, "failed to delete account")
	}

	handler.clearAuthCookie(c)
	handler.clearGuestCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}
