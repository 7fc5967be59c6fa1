package main

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeCodec reads sources of the form "WxH" and writes "WxH" for the resized
// image, so orchestration can be tested without real image data.
type fakeCodec struct {
	checkErr  error
	encodeErr error
	decoded   []string
	encoded   []EncodeOptions
}

func (c *fakeCodec) Check() error {
	return c.checkErr
}

func (c *fakeCodec) Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%dx%d", &w, &h); err != nil {
		return nil, errors.New("image: unknown format")
	}
	c.decoded = append(c.decoded, string(data))
	return image.NewNRGBA(image.Rect(0, 0, w, h)), nil
}

func (c *fakeCodec) Resize(img image.Image, width, height int, mode ResizeMode) image.Image {
	width, height = max(1, width), max(1, height)
	if mode == ResizeContain {
		width, height = containSize(img.Bounds().Dx(), img.Bounds().Dy(), width, height)
	}
	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

func (c *fakeCodec) Encode(w io.Writer, img image.Image, opts EncodeOptions) error {
	c.encoded = append(c.encoded, opts)
	if c.encodeErr != nil {
		_, _ = io.WriteString(w, "partial")
		return c.encodeErr
	}
	_, err := fmt.Fprintf(w, "%dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	return err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
