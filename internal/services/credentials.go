package services

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrAuthCredentialsInvalid = errors.New("auth credentials invalid")
	ErrAuthPasswordMismatch   = errors.New("auth password mismatch")
)

type Credentials struct {
	Email    string
	Password string
}

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if address, err := mail.ParseAddress(email); err != nil || address.Address != email {
		return ""
	}
	return email
}

func ParseCredentials(emailRaw string, passwordRaw string) (Credentials, error) {
	credentials := Credentials{
		Email:    NormalizeAuthEmail(emailRaw),
		Password: strings.TrimSpace(passwordRaw),
	}
	if credentials.Email == "" || credentials.Password == "" {
		return Credentials{}, ErrAuthCredentialsInvalid
	}
	return credentials, nil
}

func ParseRegistration(emailRaw string, passwordRaw string, confirmRaw string) (Credentials, error) {
	credentials, err := ParseCredentials(emailRaw, passwordRaw)
	if err != nil {
		return Credentials{}, err
	}
	if credentials.Password != strings.TrimSpace(confirmRaw) {
		return Credentials{}, ErrAuthPasswordMismatch
	}
	if err := ValidatePasswordStrength(credentials.Password); err != nil {
		return Credentials{}, err
	}
	return credentials, nil
}
