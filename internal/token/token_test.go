package token

import (
	"strings"
	"testing"
)

func TestIssueUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tok := NewOwner()
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate owner token after %d issues: %s", i, tok)
		}
		seen[tok] = struct{}{}

		tok = NewMember()
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate member token after %d issues: %s", i, tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestIssuePrefixes(t *testing.T) {
	if tok := NewOwner(); !strings.HasPrefix(tok, "c-") {
		t.Errorf("owner token %q missing c- prefix", tok)
	}
	if tok := NewMember(); !strings.HasPrefix(tok, "u-") {
		t.Errorf("member token %q missing u- prefix", tok)
	}
}

func TestClassify(t *testing.T) {
	owner := NewOwner()

	tests := []struct {
		name     string
		tok      string
		isMember bool
		want     Role
	}{
		{"owner token", owner, true, RoleOwner},
		{"member token", NewMember(), true, RoleMember},
		{"unknown token", NewMember(), false, RoleNone},
		{"empty token", "", false, RoleNone},
		{"empty token never owner", "", true, RoleMember},
		{"forged c- prefix is not owner", "c-forged", false, RoleNone},
		{"forged c- prefix but member", "c-forged", true, RoleMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.tok, owner, tt.isMember); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.tok, got, tt.want)
			}
		})
	}
}

func TestClassifyEmptyOwnerNeverMatches(t *testing.T) {
	// A room record with an empty owner field must not grant ownership to an
	// empty cookie.
	if got := Classify("", "", false); got != RoleNone {
		t.Errorf("Classify empty-vs-empty = %v, want %v", got, RoleNone)
	}
}
