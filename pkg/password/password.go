package password

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// ValidationError represents a password validation error
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return ve.Message
}

// Requirements defines password complexity requirements
type Requirements struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
}

// DefaultRequirements returns default complexity requirements
func DefaultRequirements() *Requirements {
	return &Requirements{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
	}
}

var (
	uppercaseRe = regexp.MustCompile(`[A-Z]`)
	lowercaseRe = regexp.MustCompile(`[a-z]`)
	numberRe    = regexp.MustCompile(`[0-9]`)
)

// Validate validates password against complexity requirements
func Validate(password string, requirements *Requirements) []*ValidationError {
	if requirements == nil {
		requirements = DefaultRequirements()
	}

	var validationErrors []*ValidationError

	if len(password) < requirements.MinLength {
		validationErrors = append(validationErrors, &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", requirements.MinLength),
		})
	}

	if requirements.RequireUppercase && !uppercaseRe.MatchString(password) {
		validationErrors = append(validationErrors, &ValidationError{
			Field:   "password",
			Message: "Password must contain at least one uppercase letter",
		})
	}

	if requirements.RequireLowercase && !lowercaseRe.MatchString(password) {
		validationErrors = append(validationErrors, &ValidationError{
			Field:   "password",
			Message: "Password must contain at least one lowercase letter",
		})
	}

	if requirements.RequireNumber && !numberRe.MatchString(password) {
		validationErrors = append(validationErrors, &ValidationError{
			Field:   "password",
			Message: "Password must contain at least one number",
		})
	}

	return validationErrors
}

// Hash hashes a password with bcrypt
func Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a password against its bcrypt hash
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
