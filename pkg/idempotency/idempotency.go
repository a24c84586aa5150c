package idempotency

import (
	"errors"
	"net/http"
	"strings"
	"unicode"
)

const (
	Header = "Idempotency-Key"
	MaxLen = 128
)

var ErrInvalidKey = errors.New("idempotency key must be at most 128 printable characters")

// Key returns the trimmed Idempotency-Key header. An absent header yields "".
func Key(r *http.Request) (string, error) {
	return Parse(r.Header.Get(Header))
}

func Parse(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if len(key) > MaxLen {
		return "", ErrInvalidKey
	}
	for _, r := range key {
		if !unicode.IsPrint(r) {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

// Set stamps key on an outgoing request; empty keys are left off.
func Set(h http.Header, key string) {
	if key != "" {
		h.Set(Header, key)
	}
}
