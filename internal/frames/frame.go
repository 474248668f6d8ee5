package frames

import (
	"fmt"
	"image"
	"image/color"
)

// BytesPerPixel is the size of one packed RGB24 pixel
const BytesPerPixel = 3

// Frame is one decoded video frame in packed RGB24, row-major.
// Frames are treated as read-only once decoded; operations that change
// pixels return a new Frame.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// New allocates a black frame of the given size
func New(index, width, height int) *Frame {
	return &Frame{
		Index:  index,
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Size returns the number of bytes a width x height frame occupies
func Size(width, height int) int {
	return width * height * BytesPerPixel
}

// Validate checks that the pixel buffer matches the declared dimensions
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame %d: invalid dimensions %dx%d", f.Index, f.Width, f.Height)
	}
	if len(f.Pix) != Size(f.Width, f.Height) {
		return fmt.Errorf("frame %d: pixel buffer is %d bytes, want %d", f.Index, len(f.Pix), Size(f.Width, f.Height))
	}
	return nil
}

// Clone returns a deep copy
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Index: f.Index, Width: f.Width, Height: f.Height, Pix: pix}
}

// RGB returns the color at (x, y)
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * BytesPerPixel
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the color at (x, y)
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * BytesPerPixel
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Fill paints every pixel with one color
func (f *Frame) Fill(r, g, b uint8) {
	for i := 0; i < len(f.Pix); i += BytesPerPixel {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
	}
}

// HasSize reports whether the frame is exactly width x height
func (f *Frame) HasSize(width, height int) bool {
	return f.Width == width && f.Height == height
}

// BT.601 luma weights in 14-bit fixed point (0.299, 0.587, 0.114)
const (
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaShift = 14
)

// Luma converts the frame to an 8-bit luminance plane.
// Results are rounded to nearest, so a gray pixel (v, v, v) maps to v.
func (f *Frame) Luma() []uint8 {
	out := make([]uint8, f.Width*f.Height)
	for i, j := 0, 0; j < len(out); i, j = i+BytesPerPixel, j+1 {
		y := lumaR*uint32(f.Pix[i]) + lumaG*uint32(f.Pix[i+1]) + lumaB*uint32(f.Pix[i+2])
		out[j] = uint8((y + 1<<(lumaShift-1)) >> lumaShift)
	}
	return out
}

// ToImage wraps the frame as an image.RGBA (copying pixels)
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for p, q := 0, 0; p < len(f.Pix); p, q = p+BytesPerPixel, q+4 {
		img.Pix[q] = f.Pix[p]
		img.Pix[q+1] = f.Pix[p+1]
		img.Pix[q+2] = f.Pix[p+2]
		img.Pix[q+3] = 0xff
	}
	return img
}

// FromImage converts any image into an RGB24 frame, dropping alpha
func FromImage(index int, img image.Image) *Frame {
	b := img.Bounds()
	f := New(index, b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			f.SetRGB(x-b.Min.X, y-b.Min.Y, c.R, c.G, c.B)
		}
	}
	return f
}
