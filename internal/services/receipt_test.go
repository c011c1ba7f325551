package services_test

import (
	"testing"

	"github.com/abrezinsky/zoolo/internal/services"
)

func TestCompactLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"08:00 AM", "8am"},
		{"10:00 AM", "10am"},
		{"12:00 PM", "12pm"},
		{"01:00 PM", "1pm"},
		{"06:30 PM", "6:30pm"},
	}
	for _, tt := range tests {
		if got := services.CompactLabel(tt.label); got != tt.want {
			t.Errorf("CompactLabel(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}
