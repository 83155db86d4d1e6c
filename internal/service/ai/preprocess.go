package ai

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// padColor is the grey YOLO letterboxing uses.
var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox is an image scaled to a square network input with preserved aspect ratio.
type Letterbox struct {
	Image     *image.RGBA
	Scale     float64
	PadX      int
	PadY      int
	SrcWidth  int
	SrcHeight int
}

// NewLetterbox fits img into a size x size canvas and centers it.
func NewLetterbox(img image.Image, size int) *Letterbox {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	scale := float64(size) / float64(srcW)
	if s := float64(size) / float64(srcH); s < scale {
		scale = s
	}

	newW := int(float64(srcW)*scale + 0.5)
	newH := int(float64(srcH)*scale + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: padColor}, image.Point{}, draw.Src)

	padX := (size - newW) / 2
	padY := (size - newH) / 2
	draw.Draw(canvas, image.Rect(padX, padY, padX+newW, padY+newH), resized, resized.Bounds().Min, draw.Src)

	return &Letterbox{
		Image:     canvas,
		Scale:     scale,
		PadX:      padX,
		PadY:      padY,
		SrcWidth:  srcW,
		SrcHeight: srcH,
	}
}

// CHW converts the letterboxed image into planar RGB floats scaled to [0,1].
func (l *Letterbox) CHW() []float32 {
	bounds := l.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	data := make([]float32, 3*plane)
	pix := l.Image.Pix
	for y := 0; y < height; y++ {
		row := y * l.Image.Stride
		for x := 0; x < width; x++ {
			i := row + x*4
			p := y*width + x
			data[p] = float32(pix[i]) / 255.0
			data[plane+p] = float32(pix[i+1]) / 255.0
			data[2*plane+p] = float32(pix[i+2]) / 255.0
		}
	}
	return data
}

// ToSource maps a box from network input coordinates back to the source image.
func (l *Letterbox) ToSource(x1, y1, x2, y2 float64) image.Rectangle {
	unmap := func(v float64, pad int, limit int) int {
		r := int((v - float64(pad)) / l.Scale)
		if r < 0 {
			return 0
		}
		if r > limit {
			return limit
		}
		return r
	}
	return image.Rect(
		unmap(x1, l.PadX, l.SrcWidth),
		unmap(y1, l.PadY, l.SrcHeight),
		unmap(x2, l.PadX, l.SrcWidth),
		unmap(y2, l.PadY, l.SrcHeight),
	)
}
