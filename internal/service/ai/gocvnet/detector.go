//go:build gocv
// +build gocv

// Package gocvnet runs the detection network with the OpenCV DNN module.
package gocvnet

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"leafdoctor/internal/model"
	"leafdoctor/internal/service/ai"
)

// Detector wraps a gocv.Net. Net is not safe for concurrent Forward calls.
type Detector struct {
	net  gocv.Net
	opts ai.Options
	mu   sync.Mutex
}

// New reads an ONNX export of the detection network.
func New(modelPath string, opts ai.Options) (*Detector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	return &Detector{net: net, opts: opts.Normalize()}, nil
}

func (d *Detector) Name() string {
	return ai.BackendGoCV
}

// Detect runs the network once on the full image.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := ai.NewLetterbox(img, d.opts.InputSize)

	// ImageToMatRGB lays pixels out as BGR, the blob swaps them back to RGB
	mat, err := gocv.ImageToMatRGB(lb.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	size := d.opts.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("inference failed: empty network output")
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	sizes := output.Size()
	shape := make([]int64, len(sizes))
	for i, s := range sizes {
		shape[i] = int64(s)
	}

	return ai.DecodeYOLO(data, shape, lb, d.opts)
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
