//go:build !gocv
// +build !gocv

package gocvnet

import (
	"context"
	"errors"
	"image"

	"leafdoctor/internal/model"
	"leafdoctor/internal/service/ai"
)

// ErrDisabled is returned when the binary was built without the gocv tag.
var ErrDisabled = errors.New("gocv build tag is not enabled")

type Detector struct{}

// New always fails without OpenCV.
func New(modelPath string, opts ai.Options) (*Detector, error) {
	return nil, ErrDisabled
}

func (d *Detector) Name() string {
	return ai.BackendGoCV
}

func (d *Detector) Detect(ctx context.Context, img image.Image) ([]model.Detection, error) {
	return nil, ErrDisabled
}

func (d *Detector) Close() error {
	return nil
}
