package domain

import (
	"fmt"
	"strings"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	maxTitleLength = 140
	maxBodyLength  = 4000

	// MaxDurationHours bounds a single offering; an exchange longer than a
	// week of working days is a data-entry error, not a real service.
	MaxDurationHours = 40
)

// ValidatePassword enforces the baseline password policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be <= %d characters", ErrInvalidInput, maxPasswordLength)
	}
	return nil
}

// ValidateOffering checks the fields a provider controls before an offering
// enters the catalog.
func ValidateOffering(title string, durationHours float64) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title must be <= %d characters", ErrInvalidInput, maxTitleLength)
	}
	if durationHours <= 0 {
		return fmt.Errorf("%w: duration must be a positive number of hours", ErrInvalidInput)
	}
	if durationHours > MaxDurationHours {
		return fmt.Errorf("%w: duration must be <= %d hours", ErrInvalidInput, MaxDurationHours)
	}
	return nil
}

// ValidateChatBody bounds direct message payloads.
func ValidateChatBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: message body is required", ErrInvalidInput)
	}
	if len(body) > maxBodyLength {
		return fmt.Errorf("%w: message body must be <= %d characters", ErrInvalidInput, maxBodyLength)
	}
	return nil
}
