package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"qbridge/internal/domain"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{450, 450},
		{3.14159, 3.14},
		{2.675, 2.68},
		{1.005, 1.01},
		{-2.675, -2.68},
		{99.999, 100},
		{0.004, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, domain.Round2(tc.in), "Round2(%v)", tc.in)
	}
}
