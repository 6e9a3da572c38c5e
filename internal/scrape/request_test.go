package scrape_test

import (
	"errors"
	"testing"

	"scout/internal/scrape"
	"scout/internal/services"
)

func TestNewNameMode(t *testing.T) {
	req, err := scrape.New("  Ada   Lovelace ", "", "", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if req.Mode != scrape.ModeName {
		t.Fatalf("mode = %q, want name", req.Mode)
	}
	if req.Name != "Ada Lovelace" {
		t.Fatalf("name not collapsed: %q", req.Name)
	}
	if req.FastMatch() {
		t.Fatal("name mode must not be fast-match")
	}
}

func TestNewEmailMode(t *testing.T) {
	req, err := scrape.New("Ada Lovelace", "Ada@Uni.edu", "", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if req.Mode != scrape.ModeEmail {
		t.Fatalf("mode = %q, want email", req.Mode)
	}
	if req.Email != "ada@uni.edu" {
		t.Fatalf("email not lowered: %q", req.Email)
	}
	if !req.FastMatch() {
		t.Fatal("email mode must be fast-match")
	}
	if req.EmailKey() != "ada@uni.edu" {
		t.Fatalf("unexpected email key %q", req.EmailKey())
	}
}

func TestNewFieldModeWildcard(t *testing.T) {
	req, err := scrape.New("Grace Hopper", "", "Computer Science", []string{"AI", "*", "Systems"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if req.Mode != scrape.ModeField {
		t.Fatalf("mode = %q, want field", req.Mode)
	}
	if len(req.Specialties) != 1 || req.Specialties[0] != scrape.SpecialtyWildcard {
		t.Fatalf("wildcard should collapse specialties, got %v", req.Specialties)
	}
}

func TestNewRejectsInvalidCombinations(t *testing.T) {
	cases := []struct {
		name        string
		term        string
		email       string
		field       string
		specialties []string
	}{
		{"empty name", "", "", "", nil},
		{"whitespace name", "   ", "", "", nil},
		{"email and field", "A B", "a@b.edu", "CS", []string{"*"}},
		{"field without specialties", "A B", "", "CS", nil},
		{"specialties without field", "A B", "", "", []string{"AI"}},
		{"malformed email", "A B", "not-an-email", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scrape.New(tc.term, tc.email, tc.field, tc.specialties)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestMatchKeyStripsDiacritics(t *testing.T) {
	cases := map[string]string{
		"Gül@üni.edu":     "gul@uni.edu",
		"  ADA@UNI.EDU  ": "ada@uni.edu",
		"çağrı@ödtü.edu":  "cagrı@odtu.edu",
	}
	for in, want := range cases {
		if got := scrape.MatchKey(in); got != want {
			t.Fatalf("MatchKey(%q) = %q, want %q", in, got, want)
		}
	}
}
