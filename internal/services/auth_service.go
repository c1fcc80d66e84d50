package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/easypeasy/internal/logger"
	"github.com/terraincognita07/easypeasy/internal/models"
	"github.com/terraincognita07/easypeasy/internal/notify"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrAuthEmailTaken          = errors.New("auth email already registered")
	ErrAuthPasswordResetFailed = errors.New("auth password reset failed")
)

type AuthUserRepository interface {
	ExistsByNormalizedEmail(ctx context.Context, email string) (bool, error)
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, userID string) (models.User, error)
	CreateWithProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string, mustChangePassword bool) error
}

type AuthServiceOptions struct {
	SecretKey     []byte
	PublicBaseURL string
	ResetTTL      time.Duration
}

type AuthService struct {
	users       AuthUserRepository
	notifier    notify.Notifier
	options     AuthServiceOptions
	resetTokens ResetTokens
	log         *logger.Logger
	now         func() time.Time

	// Compared against when the email is unknown so both paths cost a bcrypt check.
	dummyHash []byte
}

func NewAuthService(users AuthUserRepository, notifier notify.Notifier, options AuthServiceOptions, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.NewNop()
	}
	options.PublicBaseURL = strings.TrimRight(options.PublicBaseURL, "/")
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("easypeasy-dummy-password"), bcrypt.DefaultCost)
	return &AuthService{
		users:       users,
		notifier:    notifier,
		options:     options,
		resetTokens: NewResetTokens(options.SecretKey, options.ResetTTL),
		log:         log.With("service", "AuthService"),
		now:         time.Now,
		dummyHash:   dummyHash,
	}
}

func (service *AuthService) Register(ctx context.Context, emailRaw string, passwordRaw string, confirmRaw string, displayNameRaw string) (models.User, error) {
	credentials, err := ParseRegistration(emailRaw, passwordRaw, confirmRaw)
	if err != nil {
		return models.User{}, err
	}
	displayName, err := NormalizeDisplayName(displayNameRaw)
	if err != nil {
		return models.User{}, err
	}

	exists, err := service.users.ExistsByNormalizedEmail(ctx, credentials.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return models.User{}, ErrAuthEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credentials.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        credentials.Email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    service.now().UTC(),
	}
	if err := service.users.CreateWithProfile(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueConstraintError(err) {
			return models.User{}, ErrAuthEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	service.sendWelcome(ctx, user)
	return user, nil
}

func (service *AuthService) Authenticate(ctx context.Context, emailRaw string, passwordRaw string) (models.User, error) {
	credentials, err := ParseCredentials(emailRaw, passwordRaw)
	if err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByNormalizedEmail(ctx, credentials.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(service.dummyHash, []byte(credentials.Password))
		return models.User{}, ErrAuthCredentialsInvalid
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !passwordMatches(user.PasswordHash, credentials.Password) {
		return models.User{}, ErrAuthCredentialsInvalid
	}
	return user, nil
}

func (service *AuthService) FindByID(ctx context.Context, userID string) (models.User, error) {
	return service.users.FindByID(ctx, userID)
}

func (service *AuthService) RequestPasswordReset(ctx context.Context, emailRaw string) error {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return ErrAuthCredentialsInvalid
	}

	user, err := service.users.FindByNormalizedEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		service.log.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	token, err := service.resetTokens.Issue(user, service.now())
	if err != nil {
		return fmt.Errorf("build reset token: %w", err)
	}
	if service.notifier == nil {
		return nil
	}

	message, err := notify.PasswordResetEmail(user.Email, service.options.PublicBaseURL+"/reset-password?token="+token)
	if err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}
	if err := service.notifier.Send(ctx, message); err != nil {
		service.log.Warn("password reset email failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token. Tokens are bound to the password hash
// they were issued for, so each one works at most once.
func (service *AuthService) ResetPassword(ctx context.Context, rawToken string, passwordRaw string, confirmRaw string) (models.User, error) {
	claims, err := service.resetTokens.Verify(rawToken, service.now())
	if err != nil {
		return models.User{}, err
	}

	password := strings.TrimSpace(passwordRaw)
	if password != strings.TrimSpace(confirmRaw) {
		return models.User{}, ErrAuthPasswordMismatch
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrPasswordResetTokenInvalid
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !claims.Matches(user.PasswordHash) {
		return models.User{}, ErrPasswordResetTokenInvalidPasswordState
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := service.users.UpdatePassword(ctx, user.ID, string(hash), false); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrAuthPasswordResetFailed, err)
	}
	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	return user, nil
}

func (service *AuthService) sendWelcome(ctx context.Context, user models.User) {
	if service.notifier == nil {
		return
	}
	message, err := notify.WelcomeEmail(user.Email, user.DisplayName, service.options.PublicBaseURL+"/chapters/1")
	if err != nil {
		service.log.Warn("welcome email skipped", "user_id", user.ID, "error", err)
		return
	}
	if err := service.notifier.Send(ctx, message); err != nil {
		service.log.Warn("welcome email failed", "user_id", user.ID, "error", err)
	}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
