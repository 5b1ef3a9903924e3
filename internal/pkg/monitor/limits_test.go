package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeConcurrency(t *testing.T) {
	tests := []struct {
		name   string
		budget int
		limit  *FDLimit
		want   int
	}{
		{"nil limit", 1000, nil, 1000},
		{"unknown soft", 1000, &FDLimit{}, 1000},
		{"within limit", 500, &FDLimit{Soft: 1024}, 500},
		{"exceeds limit", 5000, &FDLimit{Soft: 1024}, 1024 - reservedDescriptors},
		{"tiny limit", 100, &FDLimit{Soft: 10}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeConcurrency(tt.budget, tt.limit))
		})
	}
}

func TestCheckConcurrencyBudget_NeverRaises(t *testing.T) {
	assert.LessOrEqual(t, CheckConcurrencyBudget(10), 10)
}
