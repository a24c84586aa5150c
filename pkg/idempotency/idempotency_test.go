package idempotency

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyTrimsHeader(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set(Header, "  order-1 ")
	key, err := Key(r)
	require.NoError(t, err)
	assert.Equal(t, "order-1", key)
}

func TestKeyAbsent(t *testing.T) {
	key, err := Key(httptest.NewRequest("POST", "/", nil))
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestParseRejects(t *testing.T) {
	for name, raw := range map[string]string{
		"too long": strings.Repeat("k", MaxLen+1),
		"control":  "a\x00b",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestSetSkipsEmpty(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	Set(r.Header, "")
	assert.Empty(t, r.Header.Get(Header))
	Set(r.Header, "k")
	assert.Equal(t, "k", r.Header.Get(Header))
}
