// Package config loads service configuration from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// DecodeHexKey decodes a hex-encoded key and checks its length.
// name is only used to label errors.
func DecodeHexKey(name string, value string, size int) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if size > 0 && len(key) != size {
		return nil, fmt.Errorf("%s must be %d bytes, got %d", name, size, len(key))
	}
	return key, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
