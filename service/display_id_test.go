package service

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDisplayID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := NewDisplayID()
		assert.Len(t, id, DisplayIDLength)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(displayIDAlphabet, r), "unexpected rune %q", r)
		}
		seen[id] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0))
	assert.Equal(t, 1, ClampPage(-5))
	assert.Equal(t, 7, ClampPage(7))

	offsetOf := func(page, size int) int {
		off, ok := PageOffset(page, size)
		assert.True(t, ok)
		return off
	}
	assert.Equal(t, 0, offsetOf(1, 10))
	assert.Equal(t, 0, offsetOf(-2, 10))
	assert.Equal(t, 20, offsetOf(3, 10))

	_, ok := PageOffset(math.MaxInt64/5, 10)
	assert.False(t, ok)
	_, ok = PageOffset(math.MaxInt, 2)
	assert.False(t, ok)
	off, ok := PageOffset(math.MaxInt/10+1, 10)
	assert.True(t, ok)
	assert.Equal(t, math.MaxInt/10*10, off)

	assert.Equal(t, 10, clampSize(0, 10))
	assert.Equal(t, DefaultPageSize, clampSize(0, 0))
	assert.Equal(t, MaxPageSize, clampSize(500, 10))
	assert.Equal(t, 5, clampSize(5, 10))

	p := &ThreadPage{Page: 1}
	assert.False(t, p.HasPrev())
	assert.Equal(t, 1, p.PrevPage())
	assert.Equal(t, 2, p.NextPage())

	last := &ThreadPage{Page: math.MaxInt}
	assert.Equal(t, math.MaxInt, last.NextPage())
}
