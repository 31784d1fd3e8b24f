package cryptox

import (
	"fmt"
	"unicode"

	"github.com/vaultkeep/vaultkeep/internal/common"
)

// PasswordPolicy holds the configurable complexity thresholds applied to
// candidate passwords before hashing.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// ValidatePolicy checks plaintext against policy. Every violation is wrapped
// around common.ErrorValidation so callers can match the kind with errors.Is.
func ValidatePolicy(plaintext string, policy PasswordPolicy) error {
	runes := []rune(plaintext)

	if len(runes) < policy.MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, policy.MinLength)
	}

	var hasUpper, hasNumber, hasSpecial bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsNumber(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		return fmt.Errorf("%w: password must contain an uppercase letter", common.ErrorValidation)
	}
	if policy.RequireNumber && !hasNumber {
		return fmt.Errorf("%w: password must contain a number", common.ErrorValidation)
	}
	if policy.RequireSpecial && !hasSpecial {
		return fmt.Errorf("%w: password must contain a special character", common.ErrorValidation)
	}

	return nil
}
