package main

import (
	"bytes"
	"encoding/binary"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	exifPrefix   = []byte("Exif\x00\x00")
)

// readOrientation returns the EXIF orientation stored in a JPEG, TIFF, PNG
// (eXIf chunk) or WebP (EXIF chunk) file, or 1 when there is none.
func readOrientation(data []byte) int {
	payload := exifPayload(data)
	if len(payload) == 0 {
		return 1
	}
	x, err := exif.Decode(bytes.NewReader(bytes.TrimPrefix(payload, exifPrefix)))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// exifPayload locates the EXIF block inside the container. JPEG and TIFF are
// handed to the EXIF decoder whole.
func exifPayload(data []byte) []byte {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}),
		bytes.HasPrefix(data, []byte("II*\x00")),
		bytes.HasPrefix(data, []byte("MM\x00*")):
		return data
	case bytes.HasPrefix(data, pngSignature):
		return pngChunk(data[len(pngSignature):], "eXIf")
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return webpChunk(data[12:], "EXIF")
	}
	return nil
}

// pngChunk walks length/type/data/crc records.
func pngChunk(data []byte, name string) []byte {
	for len(data) >= 12 {
		n := binary.BigEndian.Uint32(data[0:4])
		typ := string(data[4:8])
		if uint64(n) > uint64(len(data)-12) {
			return nil
		}
		if typ == name {
			return data[8 : 8+n]
		}
		if typ == "IEND" {
			return nil
		}
		data = data[12+n:]
	}
	return nil
}

// webpChunk walks RIFF fourcc/size/data records; odd sizes carry a pad byte.
func webpChunk(data []byte, name string) []byte {
	for len(data) >= 8 {
		n := binary.LittleEndian.Uint32(data[4:8])
		if uint64(n) > uint64(len(data)-8) {
			return nil
		}
		if string(data[0:4]) == name {
			return data[8 : 8+n]
		}
		next := 8 + uint64(n) + uint64(n&1)
		if next > uint64(len(data)) {
			return nil
		}
		data = data[next:]
	}
	return nil
}

// applyOrientation undoes the stored orientation so the pixels are upright.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
