package adminapi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageSlice(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     []int
	}{
		{"first page", 1, 2, []int{1, 2}},
		{"last partial page", 3, 2, []int{5}},
		{"past the end", 4, 2, []int{}},
		{"whole result", 1, 500, rows},
		{"zero page", 0, 2, []int{}},
		{"negative size", 1, -1, []int{}},
		{"huge page", 1 << 62, 20, []int{}},
		{"max page", math.MaxInt, 20, []int{}},
		{"max size", 1, math.MaxInt, rows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageSlice(rows, tt.page, tt.pageSize))
		})
	}
	assert.Equal(t, []int{}, pageSlice([]int{}, 1, 20))
}
