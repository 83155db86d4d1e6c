package intake

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"leafdoctor/internal/logger"
)

// Payload carries the raw image of one request, either in memory or in a
// temporary artifact.
type Payload struct {
	Source   string
	Filename string

	data     []byte
	artifact *Artifact
	logger   *logger.Logger
}

// FromBytes wraps image bytes that are already in memory.
func FromBytes(source string, data []byte) *Payload {
	return &Payload{Source: source, data: data}
}

// Size returns the length of the raw image in bytes.
func (p *Payload) Size() int64 {
	if p.artifact != nil {
		return p.artifact.Size()
	}
	return int64(len(p.data))
}

// DefaultMaxPixels caps width*height of a decoded image (about 64 megapixels).
const DefaultMaxPixels int64 = 1 << 26

// Decode turns the raw bytes into a pixel buffer, capped at DefaultMaxPixels.
func (p *Payload) Decode() (image.Image, error) {
	return p.DecodeLimited(DefaultMaxPixels)
}

// DecodeLimited reads the image header first and refuses images with more
// than maxPixels pixels before any pixel memory is allocated.
func (p *Payload) DecodeLimited(maxPixels int64) (image.Image, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	reader, closeFn, err := p.reader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	defer closeFn()

	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnreadableImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnreadableImage, cfg.Width, cfg.Height, maxPixels)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrUnreadableImage)
	}
	return img, nil
}

// reader opens the raw bytes for repeated reading.
func (p *Payload) reader() (io.ReadSeeker, func(), error) {
	if p.artifact == nil {
		return bytes.NewReader(p.data), func() {}, nil
	}
	f, err := p.artifact.Open()
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// Release removes the temporary artifact, if any. Failures are only logged.
func (p *Payload) Release() {
	if p.artifact == nil {
		return
	}
	if err := p.artifact.Release(); err != nil && p.logger != nil {
		p.logger.Warning("Temp file cleanup failed: %v", err)
	}
}
