package repackage

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// MinCoverSide is the smallest cover the platform accepts.
const MinCoverSide = 400

// Square crops img to its centered square and upscales it to
// MinCoverSide when smaller.
func Square(img image.Image) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	left := b.Min.X + (b.Dx()-side)/2
	top := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(left, top, left+side, top+side)

	if side >= MinCoverSide {
		dst := image.NewRGBA(image.Rect(0, 0, side, side))
		draw.Draw(dst, dst.Bounds(), img, crop.Min, draw.Src)
		return dst
	}

	dst := image.NewRGBA(image.Rect(0, 0, MinCoverSide, MinCoverSide))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}

// NormalizeCover reads the image at src, squares it and writes a PNG to
// dst.
func NormalizeCover(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(out, Square(img)); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	return out.Close()
}
