package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/terraincognita07/easypeasy/internal/models"
)

const (
	resetTokenPurpose       = "password_reset"
	DefaultPasswordResetTTL = 30 * time.Minute
)

var (
	ErrPasswordResetTokenMissing              = errors.New("missing reset token")
	ErrPasswordResetTokenInvalid              = errors.New("invalid reset token")
	ErrPasswordResetTokenInvalidPurpose       = errors.New("invalid reset token purpose")
	ErrPasswordResetTokenExpired              = errors.New("expired reset token")
	ErrPasswordResetTokenInvalidUserID        = errors.New("invalid reset token user id")
	ErrPasswordResetTokenInvalidPasswordState = errors.New("invalid reset token password state")
)

type ResetClaims struct {
	UserID        string `json:"uid"`
	Purpose       string `json:"purpose"`
	PasswordState string `json:"password_state"`
	jwt.RegisteredClaims
}

func (claims ResetClaims) Matches(passwordHash string) bool {
	actual := passwordFingerprint(passwordHash)
	if claims.PasswordState == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(claims.PasswordState), []byte(actual)) == 1
}

type ResetTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokens(secret []byte, ttl time.Duration) ResetTokens {
	if ttl <= 0 {
		ttl = DefaultPasswordResetTTL
	}
	return ResetTokens{secret: secret, ttl: ttl}
}

func (tokens ResetTokens) Issue(user models.User, now time.Time) (string, error) {
	if _, err := uuid.Parse(user.ID); err != nil || user.ID == GuestUserID {
		return "", ErrPasswordResetTokenInvalidUserID
	}
	state := passwordFingerprint(user.PasswordHash)
	if state == "" {
		return "", ErrPasswordResetTokenInvalidPasswordState
	}

	claims := ResetClaims{
		UserID:        user.ID,
		Purpose:       resetTokenPurpose,
		PasswordState: state,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokens.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokens.secret)
}

func (tokens ResetTokens) Verify(raw string, now time.Time) (ResetClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ResetClaims{}, ErrPasswordResetTokenMissing
	}

	claims := ResetClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return tokens.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ResetClaims{}, ErrPasswordResetTokenExpired
	case err != nil || !token.Valid:
		return ResetClaims{}, ErrPasswordResetTokenInvalid
	case claims.Purpose != resetTokenPurpose:
		return ResetClaims{}, ErrPasswordResetTokenInvalidPurpose
	case claims.ExpiresAt == nil:
		return ResetClaims{}, ErrPasswordResetTokenExpired
	case claims.UserID == GuestUserID:
		return ResetClaims{}, ErrPasswordResetTokenInvalidUserID
	case claims.PasswordState == "":
		return ResetClaims{}, ErrPasswordResetTokenInvalidPasswordState
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return ResetClaims{}, ErrPasswordResetTokenInvalidUserID
	}
	return claims, nil
}

func passwordFingerprint(passwordHash string) string {
	passwordHash = strings.TrimSpace(passwordHash)
	if passwordHash == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("easypeasy.reset.password-state.v1:" + passwordHash))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
