// Package domain defines registry entities and their validation rules.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// MaxAge bounds resident birthdates.
const MaxAge = 130

func required(field, value string) (string, error) {
	value = textnorm.Clean(value)
	if value == "" {
		return "", apperrors.InvalidArgument(field + " is required")
	}
	return value, nil
}

func maxLen(field, value string, limit int) error {
	if len([]rune(value)) > limit {
		return apperrors.InvalidArgument(fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	return nil
}

func oneOf[T ~string](field string, value T, allowed ...T) (T, error) {
	value = T(strings.ToLower(strings.TrimSpace(string(value))))
	for _, candidate := range allowed {
		if value == candidate {
			return value, nil
		}
	}
	names := make([]string, len(allowed))
	for i, candidate := range allowed {
		names[i] = string(candidate)
	}
	return "", apperrors.InvalidArgument(fmt.Sprintf("%s must be one of %s", field, strings.Join(names, ", ")))
}

// ParseDate parses an optional YYYY-MM-DD value.
func ParseDate(field, value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false, apperrors.InvalidArgument(field + " must be a YYYY-MM-DD date")
	}
	return parsed, true, nil
}

func nonNegative(field string, value float64) error {
	if value < 0 {
		return apperrors.InvalidArgument(field + " must not be negative")
	}
	return nil
}
