package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// MaxEdge is the size cap applied before extraction. Images whose longer edge
// meets or exceeds it are scaled so that edge becomes exactly MaxEdge, aspect
// ratio preserved. Smaller images are never upscaled.
const MaxEdge = 1200

const jpegQuality = 90

// downscale resizes data when oversized and re-encodes it in its source
// format. The boolean reports whether the bytes changed.
func downscale(data []byte) ([]byte, bool, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < MaxEdge && height < MaxEdge {
		return data, false, nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = MaxEdge
		newHeight = height * MaxEdge / width
	} else {
		newHeight = MaxEdge
		newWidth = width * MaxEdge / height
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, false, fmt.Errorf("encoding resized image: %w", err)
	}
	return buf.Bytes(), true, nil
}
