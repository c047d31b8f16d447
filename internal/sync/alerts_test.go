package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name      string
		pct       *float64
		threshold float64
		want      bool
	}{
		{"nil day change never alerts", nil, 5, false},
		{"below threshold", ptr(4.9), 5, false},
		{"exactly at threshold alerts", ptr(5.0), 5, true},
		{"above threshold", ptr(7.2), 5, true},
		{"negative move at threshold alerts", ptr(-5.0), 5, true},
		{"negative move below threshold", ptr(-4.9), 5, false},
		{"zero threshold alerts on any reported change", ptr(0.0), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAlert(tt.pct, tt.threshold))
		})
	}
}
