package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateFallback(t *testing.T) {
	assert.Equal(t, 0, EstimateFallback(""))
	assert.Equal(t, 1, EstimateFallback("abc"))
	assert.Equal(t, 25, EstimateFallback(strings.Repeat("a", 100)))
}

func TestCountMonotonic(t *testing.T) {
	short := Count("hello world")
	long := Count(strings.Repeat("hello world ", 50))
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}
