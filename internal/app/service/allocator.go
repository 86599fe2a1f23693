package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 3
	// maxAllocAttempts caps the collision retry loop when the 36^3 code
	// space is nearly or fully taken.
	maxAllocAttempts = 100
)

// AllocateCode returns the validated custom code when one is supplied,
// otherwise a random code unique against the existing set.
func AllocateCode(custom string, existing map[string]struct{}) (string, error) {
	if custom != "" {
		return NormalizeCode(custom, existing)
	}

	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		candidate, err := randomCode(codeLength)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
	}

	return "", ErrCodeSpaceExhausted
}

func randomCode(length int) (string, error) {
	code := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))

	for i := range code {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[idx.Int64()]
	}

	return string(code), nil
}
