package services

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordRunes = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes    = 72
	maxDisplayNameRunes = 64
)

var (
	ErrWeakPassword               = errors.New("weak password")
	ErrSettingsDisplayNameTooLong = errors.New("settings display name too long")

	ErrSettingsPasswordChangeInvalidInput = errors.New("settings password change invalid input")
	ErrSettingsPasswordMismatch           = errors.New("settings password mismatch")
	ErrSettingsInvalidCurrentPassword     = errors.New("settings invalid current password")
	ErrSettingsNewPasswordMustDiffer      = errors.New("settings new password must differ")
	ErrSettingsWeakPassword               = errors.New("settings weak password")
)

func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < minPasswordRunes || len(password) > maxPasswordBytes {
		return ErrWeakPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		digit = digit || unicode.IsDigit(r)
	}
	if !upper || !lower || !digit {
		return ErrWeakPassword
	}
	return nil
}

func NormalizeDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > maxDisplayNameRunes {
		return "", ErrSettingsDisplayNameTooLong
	}
	return name, nil
}

type PasswordChange struct {
	Current string
	New     string
	Confirm string
}

func (change PasswordChange) trimmed() PasswordChange {
	return PasswordChange{
		Current: strings.TrimSpace(change.Current),
		New:     strings.TrimSpace(change.New),
		Confirm: strings.TrimSpace(change.Confirm),
	}
}

func (change PasswordChange) Validate(passwordHash string) error {
	change = change.trimmed()
	switch {
	case change.Current == "" || change.New == "" || change.Confirm == "":
		return ErrSettingsPasswordChangeInvalidInput
	case change.New != change.Confirm:
		return ErrSettingsPasswordMismatch
	case !passwordMatches(passwordHash, change.Current):
		return ErrSettingsInvalidCurrentPassword
	case change.Current == change.New:
		return ErrSettingsNewPasswordMustDiffer
	case ValidatePasswordStrength(change.New) != nil:
		return ErrSettingsWeakPassword
	}
	return nil
}

func passwordMatches(passwordHash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}
