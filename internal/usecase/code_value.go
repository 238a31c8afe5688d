package usecase

import (
	"crypto/rand"
	"io"

	"elearn-entitlements/internal/domain/model"
)

// generateCodeValue creates a random human-presentable code value for the
// given kind. The lexical prefix ("QUIZ-", "PRO-", plain digits for master)
// is a presentation convenience fixed at issuance; validation and redemption
// decide on the kind column alone, never on the shape of the string.
func generateCodeValue(kind model.CodeKind) (string, error) {
	const digits = "0123456789"
	const suffixLength = 6

	buffer := make([]byte, suffixLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < suffixLength; i++ {
		buffer[i] = digits[int(buffer[i])%len(digits)]
	}

	switch kind {
	case model.CodeKindOneTime:
		return "QUIZ-" + string(buffer), nil
	case model.CodeKindInstructorActivation:
		return "PRO-" + string(buffer), nil
	default:
		return string(buffer), nil
	}
}
