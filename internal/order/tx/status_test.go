package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusStarted, StatusBasketLoaded, true},
		{StatusStarted, StatusFailed, true},
		{StatusBasketLoaded, StatusValidated, true},
		{StatusValidated, StatusCommitted, true},
		{StatusCommitted, StatusNotified, true},
		{StatusCommitted, StatusFailed, false},
		{StatusStarted, StatusCommitted, false},
		{StatusNotified, StatusFailed, false},
		{StatusFailed, StatusStarted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
