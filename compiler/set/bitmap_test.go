package set

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmap(t *testing.T) {
	var s Bitmap

	assert.False(t, s.IsSet(3))

	for _, x := range []int{3, 0, 64, 200} {
		s.Set(x)
	}

	assert.True(t, s.IsSet(64))
	assert.False(t, s.IsSet(65))
	assert.Equal(t, 4, s.Size())
	assert.Equal(t, []int{0, 3, 64, 200}, slices.Collect(s.All()))

	s.Clear(64)
	s.Clear(1000)

	assert.False(t, s.IsSet(64))
	assert.Equal(t, 3, s.Size())

	for x := range s.All() {
		if x == 3 {
			break
		}
	}

	s.Reset()
	assert.Equal(t, 0, s.Size())

	s.Set(129)
	assert.Equal(t, []int{129}, slices.Collect(s.All()))

	assert.Panics(t, func() { s.Set(-1) })
}
