package devices

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

const (
	textCols = 40
	textRows = 24
	cellW    = 7
	cellH    = 8
)

// Video models the Apple IIe's 40-column text page: a cols*rows byte grid
// rendered into an RGBA framebuffer on demand. It owns no font rasterizer
// of its own (the glyph table is supplied by the caller, loaded from the
// machine's character ROM); Video only owns the grid and the scaled
// blit.
//
// Grounded on IntuitionEngine's ScreenBuffer (video_screen_buffer.go): a
// fixed-size grid of lines addressed by (cursorX, cursorY), adapted here
// from a scrolling terminal buffer to a fixed 40x24 page with no
// scrollback, matching real text-page addressing.
type Video struct {
	mu    sync.Mutex
	cells [textRows][textCols]byte
	glyph func(ch byte) *image.Gray // cellW x cellH glyph bitmap, nil for blank
}

// NewVideo returns a blank (all-space) text page.
func NewVideo() *Video {
	v := &Video{}
	for r := 0; r < textRows; r++ {
		for c := 0; c < textCols; c++ {
			v.cells[r][c] = ' '
		}
	}
	return v
}

// SetGlyphSource installs the glyph rasterizer, typically backed by the
// machine's character generator ROM block.
func (v *Video) SetGlyphSource(f func(ch byte) *image.Gray) {
	v.mu.Lock()
	v.glyph = f
	v.mu.Unlock()
}

// WriteCell stores the byte backing one text-page screen hole, as written
// by the CPU through the $0400-$07FF memory-mapped text page target.
func (v *Video) WriteCell(row, col int, ch byte) {
	if row < 0 || row >= textRows || col < 0 || col >= textCols {
		return
	}
	v.mu.Lock()
	v.cells[row][col] = ch
	v.mu.Unlock()
}

// ReadCell returns the byte currently backing one text-page screen hole.
func (v *Video) ReadCell(row, col int) byte {
	if row < 0 || row >= textRows || col < 0 || col >= textCols {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cells[row][col]
}

// Render draws the current text page into an RGBA image scaled to the
// requested pixel size, using draw.BiLinear for the upscale the way a
// debugger preview or a windowed frontend would want it.
func (v *Video) Render(width, height int) *image.RGBA {
	v.mu.Lock()
	cells := v.cells
	glyph := v.glyph
	v.mu.Unlock()

	native := image.NewRGBA(image.Rect(0, 0, textCols*cellW, textRows*cellH))
	bg := color.RGBA{0, 0, 0, 255}
	draw.Draw(native, native.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	if glyph != nil {
		for r := 0; r < textRows; r++ {
			for c := 0; c < textCols; c++ {
				g := glyph(cells[r][c])
				if g == nil {
					continue
				}
				dstRect := image.Rect(c*cellW, r*cellH, (c+1)*cellW, (r+1)*cellH)
				draw.DrawMask(native, dstRect, &image.Uniform{color.White}, image.Point{}, g, image.Point{}, draw.Over)
			}
		}
	}

	if width == native.Bounds().Dx() && height == native.Bounds().Dy() {
		return native
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(out, out.Bounds(), native, native.Bounds(), draw.Over, nil)
	return out
}
