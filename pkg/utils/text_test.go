package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hello...", Truncate("hello world", 5))
	assert.Equal(t, "x", Truncate("x", 0))
	// "ü" is two bytes; cutting at 2 must not split it.
	assert.Equal(t, "G...", Truncate("Gültig", 2))
}

func TestRuneStart(t *testing.T) {
	s := "aüb"
	assert.Equal(t, 0, RuneStart(s, 0))
	assert.Equal(t, 1, RuneStart(s, 1))
	assert.Equal(t, 1, RuneStart(s, 2))
	assert.Equal(t, 3, RuneStart(s, 3))
	assert.Equal(t, 4, RuneStart(s, 10))
}
