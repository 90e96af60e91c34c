package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"BARANEX_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("BARANEX_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestDecodeHexKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		size    int
		wantLen int
		wantErr string
	}{
		{name: "valid", value: "00112233445566778899aabbccddeeff", size: 16, wantLen: 16},
		{name: "any size", value: "abcd", size: 0, wantLen: 2},
		{name: "empty", value: "  ", size: 16, wantErr: "is required"},
		{name: "not hex", value: "zz", size: 1, wantErr: "decode KEY"},
		{name: "wrong size", value: "abcd", size: 32, wantErr: "must be 32 bytes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			key, err := DecodeHexKey("KEY", tc.value, tc.size)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode key: %v", err)
			}
			if len(key) != tc.wantLen {
				t.Fatalf("len = %d, want %d", len(key), tc.wantLen)
			}
		})
	}
}
