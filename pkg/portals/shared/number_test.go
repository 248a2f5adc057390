package shared

import (
	"testing"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0,158", 0.158, false},
		{"0.158", 0.158, false},
		{"1.234,56", 1234.56, false},
		{"12,50 €", 12.50, false},
		{"€ 12,50", 12.50, false},
		{"  45,30  ", 45.30, false},
		{"105", 105, false},
		{"", 0, true},
		{"n/a", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDecimal(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecimal(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimal(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecimal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormSpace(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Plan   Estable ", "Plan Estable"},
		{"a\n\tb", "a b"},
		{"", ""},
		{"single", "single"},
	}
	for _, tt := range tests {
		if got := NormSpace(tt.in); got != tt.want {
			t.Errorf("NormSpace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
