package devices

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVideoStartsBlank(t *testing.T) {
	v := NewVideo()
	require.Equal(t, byte(' '), v.ReadCell(0, 0))
	require.Equal(t, byte(' '), v.ReadCell(23, 39))
}

func TestWriteCellThenReadCell(t *testing.T) {
	v := NewVideo()
	v.WriteCell(5, 10, 'A')
	require.Equal(t, byte('A'), v.ReadCell(5, 10))
}

func TestWriteCellOutOfRangeIsIgnored(t *testing.T) {
	v := NewVideo()
	v.WriteCell(-1, 0, 'X')
	v.WriteCell(0, 40, 'X')
	require.Equal(t, byte(0), v.ReadCell(-1, 0))
	require.Equal(t, byte(0), v.ReadCell(0, 40))
}

func TestRenderProducesNativeSizeWithoutGlyphSource(t *testing.T) {
	v := NewVideo()
	img := v.Render(textCols*cellW, textRows*cellH)
	require.Equal(t, textCols*cellW, img.Bounds().Dx())
	require.Equal(t, textRows*cellH, img.Bounds().Dy())
	require.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 0))
}

func TestRenderScalesWhenRequestedSizeDiffers(t *testing.T) {
	v := NewVideo()
	img := v.Render(640, 480)
	require.Equal(t, 640, img.Bounds().Dx())
	require.Equal(t, 480, img.Bounds().Dy())
}

func TestRenderBlitsGlyphs(t *testing.T) {
	v := NewVideo()
	v.WriteCell(0, 0, 'A')
	v.SetGlyphSource(func(ch byte) *image.Gray {
		if ch != 'A' {
			return nil
		}
		g := image.NewGray(image.Rect(0, 0, cellW, cellH))
		for i := range g.Pix {
			g.Pix[i] = 0xFF
		}
		return g
	})

	img := v.Render(textCols*cellW, textRows*cellH)
	require.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
}
