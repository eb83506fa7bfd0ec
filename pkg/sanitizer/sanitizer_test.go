package sanitizer

import (
	"strings"
	"testing"
)

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Window seat please  ", "Window seat please"},
		{"multiple spaces", "Window    seat", "Window seat"},
		{"tabs and newlines", "Window\t\nseat", "Window seat"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"preserve special characters", " Café & Spa™ ", "Café & Spa™"},
		{"hebrew characters", " חדר שקט ", "חדר שקט"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFreeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"control characters removed", "Vegan\x00 meals\x07", "Vegan meals"},
		{"whitespace collapsed", "  late\n\ncheck-in ", "late check-in"},
		{"plain text unchanged", "Ground floor room", "Ground floor room"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFreeText(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeFreeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := SanitizeFreeText(got); again != got {
				t.Errorf("SanitizeFreeText is not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestSanitizeFreeText_Truncates(t *testing.T) {
	input := strings.Repeat("é", MaxFreeTextLength+20)
	got := SanitizeFreeText(input)
	if n := len([]rune(got)); n != MaxFreeTextLength {
		t.Errorf("expected %d runes, got %d", MaxFreeTextLength, n)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	if got := SanitizeIdentifier("  Pay_ABC123\n"); got != "Pay_ABC123" {
		t.Errorf("SanitizeIdentifier() = %q, want Pay_ABC123", got)
	}
}

func TestSanitizeLabel(t *testing.T) {
	if got := SanitizeLabel("  Credit   Card "); got != "credit card" {
		t.Errorf("SanitizeLabel() = %q, want %q", got, "credit card")
	}
}
