package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "surrounding whitespace is ignored",
			email:   "  a@x.com ",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

type ruleRequest struct {
	Platform     string `json:"platform" validate:"required,max=64"`
	DailyMinutes int    `json:"daily_minutes" validate:"gt=0"`
	ChildID      string `json:"child_id" validate:"omitempty,uuid"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      ruleRequest
		field   string
		message string
	}{
		{name: "valid", in: ruleRequest{Platform: "roblox", DailyMinutes: 30}},
		{name: "missing platform", in: ruleRequest{DailyMinutes: 30}, field: "platform", message: "platform is required"},
		{name: "zero minutes", in: ruleRequest{Platform: "roblox"}, field: "daily_minutes", message: "daily_minutes must be greater than 0"},
		{name: "bad uuid", in: ruleRequest{Platform: "roblox", DailyMinutes: 1, ChildID: "nope"}, field: "child_id", message: "child_id must be a valid id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *Error
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}
}
