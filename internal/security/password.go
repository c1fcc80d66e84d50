package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	upperAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerAlphabet = "abcdefghijkmnopqrstuvwxyz"
	digitAlphabet = "23456789"

	PasswordAlphabet = upperAlphabet + lowerAlphabet + digitAlphabet

	minTemporaryPasswordLength = 8
)

var errEmptyAlphabet = errors.New("alphabet must not be empty")

func TemporaryPassword(length int) (string, error) {
	if length < minTemporaryPasswordLength {
		length = minTemporaryPasswordLength
	}

	value := make([]byte, 0, length)
	for _, alphabet := range []string{upperAlphabet, lowerAlphabet, digitAlphabet} {
		char, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		value = append(value, char)
	}
	for len(value) < length {
		char, err := randomChar(PasswordAlphabet)
		if err != nil {
			return "", err
		}
		value = append(value, char)
	}

	// Fisher-Yates, so the guaranteed classes are not always in front.
	for i := len(value) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		value[i], value[j] = value[j], value[i]
	}
	return string(value), nil
}

func randomChar(alphabet string) (byte, error) {
	if len(alphabet) == 0 {
		return 0, errEmptyAlphabet
	}
	index, err := randomIndex(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[index], nil
}

func randomIndex(n int) (int, error) {
	position, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(position.Int64()), nil
}
