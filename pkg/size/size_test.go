package size

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	s := Size{Width: 1920, Height: 1080}
	assert.Equal(t, 1920*1080, s.Area())
	assert.True(t, s.IsEven())
	assert.False(t, s.Empty())
	assert.Equal(t, Size{Width: 1920, Height: 1088}, s.Align(32))
	assert.Equal(t, "{Width: 1920, Height 1080}", s.String())

	assert.False(t, Size{Width: 641, Height: 480}.IsEven())
	assert.False(t, Size{Width: 640, Height: 481}.IsEven())
	assert.True(t, Size{}.Empty())
}
