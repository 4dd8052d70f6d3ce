package token

import "testing"

func TestNew(t *testing.T) {
	t.Run("shape", func(t *testing.T) {
		tok, err := New()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tok) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(tok))
		}
		if !IsValid(tok) {
			t.Errorf("generated token %q does not validate", tok)
		}
	})

	t.Run("unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			tok, err := New()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if seen[tok] {
				t.Fatalf("duplicate token generated: %s", tok)
			}
			seen[tok] = true
		}
	})
}

func TestIsValid(t *testing.T) {
	for _, s := range []string{"", "abc", "not-a-token", "ZZ"} {
		if IsValid(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
