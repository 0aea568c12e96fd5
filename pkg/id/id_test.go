package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := New()
		assert.Len(t, s, 26)
		assert.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
	}
}

func TestNewMonotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.True(t, next > prev, "ids should sort by generation order")
		prev = next
	}
}

func TestTagged(t *testing.T) {
	s := Tagged("real")
	assert.True(t, strings.HasPrefix(s, "real-"))
	assert.Len(t, s, len("real-")+26)
}
