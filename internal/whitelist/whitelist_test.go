package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker_IsTrusted(t *testing.T) {
	tests := []struct {
		name    string
		domains []string
		sender  string
		want    bool
	}{
		{
			name:    "exact domain match",
			domains: []string{"example.com"},
			sender:  "alice@example.com",
			want:    true,
		},
		{
			name:    "case insensitive on both sides",
			domains: []string{" Example.COM "},
			sender:  "Alice@EXAMPLE.com",
			want:    true,
		},
		{
			name:    "subdomain is not trusted",
			domains: []string{"example.com"},
			sender:  "alice@mail.example.com",
			want:    false,
		},
		{
			name:    "different domain",
			domains: []string{"example.com"},
			sender:  "alice@example.net",
			want:    false,
		},
		{
			name:    "sender without an address",
			domains: []string{"example.com"},
			sender:  "12345",
			want:    false,
		},
		{
			name:    "sender with multiple at signs",
			domains: []string{"example.com"},
			sender:  "alice@corp@example.com",
			want:    false,
		},
		{
			name:    "empty sender",
			domains: []string{"example.com"},
			sender:  "",
			want:    false,
		},
		{
			name:    "no trusted domains configured",
			domains: nil,
			sender:  "alice@example.com",
			want:    false,
		},
		{
			name:    "blank entries are dropped",
			domains: []string{"", "  "},
			sender:  "alice@",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(tt.domains, zap.NewNop())
			assert.Equal(t, tt.want, checker.IsTrusted(tt.sender))
		})
	}
}
