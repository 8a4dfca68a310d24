package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page, size int
		from, lim  int
	}{
		{name: "first page", page: 1, size: 20, from: 0, lim: 20},
		{name: "third page", page: 3, size: 5, from: 10, lim: 5},
		{name: "page below one", page: 0, size: 5, from: 0, lim: 5},
		{name: "size zero", page: 2, size: 0, from: 10, lim: DefaultPageSize},
		{name: "size too big", page: 1, size: 500, from: 0, lim: DefaultPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			from, lim := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.lim, lim)
		})
	}
}
