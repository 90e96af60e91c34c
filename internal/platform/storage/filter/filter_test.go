package filter

import (
	"errors"
	"reflect"
	"testing"
)

var residentSchema = Schema{
	"last_name":  {Column: "last_name", Kind: String},
	"purok":      {Column: "purok", Kind: String},
	"is_voter":   {Column: "is_voter", Kind: Bool},
	"age":        {Column: "age", Kind: Int},
	"created_at": {Column: "created_at", Kind: Timestamp},
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		clause string
		params []any
	}{
		{
			name:   "empty",
			filter: "  ",
		},
		{
			name:   "equals",
			filter: `purok = "3"`,
			clause: "purok = ?",
			params: []any{"3"},
		},
		{
			name:   "and",
			filter: `purok = "3" AND is_voter = true`,
			clause: "(purok = ? AND is_voter = ?)",
			params: []any{"3", 1},
		},
		{
			name:   "or with int",
			filter: `age > 60 OR purok != "1"`,
			clause: "(age > ? OR purok != ?)",
			params: []any{int64(60), "1"},
		},
		{
			name:   "timestamp",
			filter: `created_at >= timestamp("2026-01-01T00:00:00Z")`,
			clause: "created_at >= ?",
			params: []any{int64(1767225600000)},
		},
		{
			name:   "has",
			filter: `last_name:"Dela_"`,
			clause: `LOWER(last_name) LIKE ? ESCAPE '\'`,
			params: []any{`%dela\_%`},
		},
		{
			name:   "not",
			filter: `NOT is_voter = true`,
			clause: "NOT (is_voter = ?)",
			params: []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(residentSchema, tt.filter)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.filter, err)
			}
			if got.Clause != tt.clause {
				t.Fatalf("clause = %q, want %q", got.Clause, tt.clause)
			}
			if len(tt.params) == 0 && len(got.Params) == 0 {
				return
			}
			if !reflect.DeepEqual(got.Params, tt.params) {
				t.Fatalf("params = %#v, want %#v", got.Params, tt.params)
			}
		})
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse(residentSchema, `password_hash = "x"`)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestParseRejectsTypeMismatch(t *testing.T) {
	if _, err := Parse(residentSchema, `age = "old"`); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestConditionEmpty(t *testing.T) {
	if !(Condition{}).Empty() {
		t.Fatal("expected zero condition to be empty")
	}
	if (Condition{Clause: "a = ?"}).Empty() {
		t.Fatal("expected non-empty condition")
	}
}

func TestParseTimestampString(t *testing.T) {
	got, err := Parse(residentSchema, `created_at < "2026-01-01T00:00:00Z"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Clause != "created_at < ?" {
		t.Fatalf("clause = %q", got.Clause)
	}
	if !reflect.DeepEqual(got.Params, []any{int64(1767225600000)}) {
		t.Fatalf("params = %#v", got.Params)
	}
}
