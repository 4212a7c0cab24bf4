package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// minOCRWidth upscales small scans before recognition; Tesseract degrades
// sharply below roughly 300 dpi.
const minOCRWidth = 1000

// preprocess converts a scanned image into an OCR-friendly PNG: grayscale,
// contrast stretch, sharpen, and upscale when the source is small.
func preprocess(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	gray := toGray(src)
	stretchContrast(gray)
	sharpened := sharpen(gray)
	final := upscale(sharpened)

	var buf bytes.Buffer
	if err := png.Encode(&buf, final); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, src, bounds.Min, draw.Src)
	return gray
}

// stretchContrast linearly maps the observed intensity range onto [0, 255]
// in place.
func stretchContrast(img *image.Gray) {
	minV, maxV := uint8(255), uint8(0)
	for _, p := range img.Pix {
		if p < minV {
			minV = p
		}
		if p > maxV {
			maxV = p
		}
	}
	if maxV <= minV {
		return
	}
	scale := 255.0 / float64(maxV-minV)
	for i, p := range img.Pix {
		img.Pix[i] = uint8(float64(p-minV) * scale)
	}
}

// sharpen applies a 3x3 unsharp kernel.
func sharpen(img *image.Gray) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	kernel := [3][3]float64{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					px, py := clamp(x+kx, bounds.Min.X, bounds.Max.X-1), clamp(y+ky, bounds.Min.Y, bounds.Max.Y-1)
					sum += float64(img.GrayAt(px, py).Y) * kernel[ky+1][kx+1]
				}
			}
			out.SetGray(x, y, color.Gray{Y: clampByte(sum)})
		}
	}
	return out
}

func upscale(img *image.Gray) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() >= minOCRWidth {
		return img
	}
	factor := (minOCRWidth + bounds.Dx() - 1) / bounds.Dx()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx()*factor, bounds.Dy()*factor))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
