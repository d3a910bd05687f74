package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/theadityachoudhury/auth-service/internal/config"
)

func fullPolicy() config.PasswordPolicy {
	return config.PasswordPolicy{
		MinLength:           8,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
	}
}

func TestCheckPasswordAcceptsCompliant(t *testing.T) {
	if err := CheckPassword(fullPolicy(), "Str0ng!pass"); err != nil {
		t.Fatalf("compliant password rejected: %v", err)
	}
}

func TestCheckPasswordRejections(t *testing.T) {
	cases := []struct {
		name     string
		password string
		reason   string
	}{
		{"too short", "Ab1!", "at least 8"},
		{"no uppercase", "str0ng!pass", "uppercase"},
		{"no lowercase", "STR0NG!PASS", "lowercase"},
		{"no number", "Strong!pass", "number"},
		{"no special", "Str0ngpass", "special"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPassword(fullPolicy(), tc.password)
			var pe *PolicyError
			if !errors.As(err, &pe) {
				t.Fatalf("expected PolicyError, got %v", err)
			}
			if !strings.Contains(pe.Reason, tc.reason) {
				t.Errorf("reason %q does not mention %q", pe.Reason, tc.reason)
			}
		})
	}
}

func TestCheckPasswordRelaxedPolicy(t *testing.T) {
	p := config.PasswordPolicy{MinLength: 4}
	if err := CheckPassword(p, "abcd"); err != nil {
		t.Fatalf("relaxed policy rejected: %v", err)
	}
}
