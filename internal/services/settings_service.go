package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrSettingsPasswordMissing      = errors.New("settings password missing")
	ErrSettingsPasswordInvalid      = errors.New("settings password invalid")
	ErrSettingsPasswordUpdateFailed = errors.New("settings password update failed")
	ErrSettingsDeleteAccountFailed  = errors.New("settings delete account failed")
)

type SettingsUserRepository interface {
	UpdateDisplayName(ctx context.Context, userID string, displayName string) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string, mustChangePassword bool) error
	DeleteAccountAndRelatedData(ctx context.Context, userID string) error
}

type AccountDeletionHook func(userID string)

type SettingsService struct {
	users     SettingsUserRepository
	log       *logger.Logger
	onDeleted []AccountDeletionHook
}

func NewSettingsService(users SettingsUserRepository, log *logger.Logger, onDeleted ...AccountDeletionHook) *SettingsService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SettingsService{users: users, log: log.With("service", "SettingsService"), onDeleted: onDeleted}
}

func (service *SettingsService) UpdateDisplayName(ctx context.Context, userID string, rawDisplayName string) (string, error) {
	displayName, err := NormalizeDisplayName(rawDisplayName)
	if err != nil {
		return "", err
	}
	if err := service.users.UpdateDisplayName(ctx, userID, displayName); err != nil {
		return "", fmt.Errorf("update display name: %w", err)
	}
	return displayName, nil
}

func (service *SettingsService) ChangePassword(ctx context.Context, user models.User, change PasswordChange) error {
	if err := change.Validate(user.PasswordHash); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(change.trimmed().New), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsPasswordUpdateFailed, err)
	}
	if err := service.users.UpdatePassword(ctx, user.ID, string(hash), false); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsPasswordUpdateFailed, err)
	}
	service.log.Info("password changed", "user_id", user.ID)
	return nil
}

func (service *SettingsService) DeleteAccount(ctx context.Context, user models.User, rawPassword string) error {
	password := strings.TrimSpace(rawPassword)
	if password == "" {
		return ErrSettingsPasswordMissing
	}
	if !passwordMatches(user.PasswordHash, password) {
		return ErrSettingsPasswordInvalid
	}

	if err := service.users.DeleteAccountAndRelatedData(ctx, user.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsDeleteAccountFailed, err)
	}
	service.log.Info("account deleted", "user_id", user.ID)
	for _, hook := range service.onDeleted {
		hook(user.ID)
	}
	return nil
}
