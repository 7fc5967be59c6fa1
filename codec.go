package main

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
	_ "golang.org/x/image/webp"
)

// MaxMethod is the slowest, highest-effort WebP compression method.
const MaxMethod = 6

type ResizeMode int

const (
	// ResizeContain fits the image inside the box, preserving aspect ratio.
	ResizeContain ResizeMode = iota
	// ResizeExact stretches the image to the box.
	ResizeExact
)

func (m ResizeMode) String() string {
	if m == ResizeExact {
		return "exact"
	}
	return "contain"
}

type EncodeOptions struct {
	Quality  int
	Lossless bool
	Method   int
}

// Codec is the image backend used by Processor.
type Codec interface {
	// Check returns an error when WebP encoding is unavailable.
	Check() error
	// Decode reads an image and applies its EXIF orientation.
	Decode(r io.Reader) (image.Image, error)
	Resize(img image.Image, width, height int, mode ResizeMode) image.Image
	Encode(w io.Writer, img image.Image, opts EncodeOptions) error
}

// WebPCodec decodes with imaging and encodes with libwebp, loaded as a shared
// library when present and from the embedded WebAssembly build otherwise.
type WebPCodec struct{}

func NewWebPCodec() *WebPCodec {
	return &WebPCodec{}
}

func (c *WebPCodec) Check() error {
	sample := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	if err := webp.Encode(io.Discard, sample, webp.Options{Quality: 50}); err != nil {
		return fmt.Errorf("test encode failed: %w", err)
	}
	return nil
}

// Backend names the libwebp build the encoder is running on.
func (c *WebPCodec) Backend() string {
	if err := webp.Dynamic(); err != nil {
		return "wasm"
	}
	return "libwebp"
}

// Decode returns the image with its EXIF orientation applied. The tag is read
// from JPEG, TIFF, PNG and WebP containers alike.
func (c *WebPCodec) Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return applyOrientation(img, readOrientation(data)), nil
}

// Resize always returns an *image.NRGBA, so the encoder gets an alpha-capable image.
func (c *WebPCodec) Resize(img image.Image, width, height int, mode ResizeMode) image.Image {
	width, height = max(1, width), max(1, height)

	if mode == ResizeExact {
		return imaging.Resize(img, width, height, imaging.Lanczos)
	}

	b := img.Bounds()
	w, h := containSize(b.Dx(), b.Dy(), width, height)
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

func (c *WebPCodec) Encode(w io.Writer, img image.Image, opts EncodeOptions) error {
	return webp.Encode(w, img, webp.Options{
		Quality:  opts.Quality,
		Lossless: opts.Lossless,
		Method:   opts.Method,
	})
}

// containSize scales srcW x srcH to fit inside boxW x boxH. The constrained
// side matches the box exactly; the other is rounded half to even.
func containSize(srcW, srcH, boxW, boxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return boxW, boxH
	}

	srcRatio := float64(srcW) / float64(srcH)
	boxRatio := float64(boxW) / float64(boxH)

	switch {
	case srcRatio > boxRatio:
		h := math.RoundToEven(float64(srcH) / float64(srcW) * float64(boxW))
		return boxW, max(1, int(h))
	case srcRatio < boxRatio:
		w := math.RoundToEven(float64(srcW) / float64(srcH) * float64(boxH))
		return max(1, int(w)), boxH
	}
	return boxW, boxH
}

func clampQuality(q int) int {
	return min(100, max(0, q))
}
