package size

import "fmt"

type Size struct {
	Width  int
	Height int
}

func (size Size) String() string {
	return fmt.Sprintf("{Width: %v, Height %v}", size.Width, size.Height)
}

// Area is the number of pixels.
func (size Size) Area() int {
	return size.Width * size.Height
}

// IsEven reports whether both dimensions are divisible by two, as 4:2:0
// chroma subsampling requires.
func (size Size) IsEven() bool {
	return size.Width%2 == 0 && size.Height%2 == 0
}

// Empty reports whether either dimension is not positive.
func (size Size) Empty() bool {
	return size.Width <= 0 || size.Height <= 0
}

// Align rounds both dimensions up to a multiple of n.
func (size Size) Align(n int) Size {
	return Size{
		Width:  (size.Width + n - 1) / n * n,
		Height: (size.Height + n - 1) / n * n,
	}
}
