// Package ai wraps the pretrained leaf-disease detector. Network backends live
// in the gocvnet and onnxnet subpackages; this package holds the parts they share.
package ai

import (
	"context"
	"image"

	"leafdoctor/internal/model"
)

const (
	BackendONNX = "onnx"
	BackendGoCV = "gocv"
)

// Detector runs the detection network on a whole image.
type Detector interface {
	// Detect returns detections sorted by confidence, highest first.
	Detect(ctx context.Context, img image.Image) ([]model.Detection, error)
	Name() string
	Close() error
}

// Options controls pre- and post-processing common to all backends.
type Options struct {
	InputSize     int
	ConfThreshold float64
	IoUThreshold  float64
	MaxDetections int
}

// DefaultOptions mirrors the usual YOLOv8 inference settings.
func DefaultOptions() Options {
	return Options{
		InputSize:     640,
		ConfThreshold: 0.25,
		IoUThreshold:  0.45,
		MaxDetections: 300,
	}
}

// Normalize fills zero fields with defaults.
func (o Options) Normalize() Options {
	def := DefaultOptions()
	if o.InputSize <= 0 {
		o.InputSize = def.InputSize
	}
	if o.ConfThreshold <= 0 {
		o.ConfThreshold = def.ConfThreshold
	}
	if o.IoUThreshold <= 0 {
		o.IoUThreshold = def.IoUThreshold
	}
	if o.MaxDetections <= 0 {
		o.MaxDetections = def.MaxDetections
	}
	return o
}
