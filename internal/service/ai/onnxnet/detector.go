// Package onnxnet runs the detection network with ONNX Runtime.
package onnxnet

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"leafdoctor/internal/model"
	"leafdoctor/internal/service/ai"
)

// Detector holds one session with pre-allocated input and output tensors.
// Run reuses those tensors, so calls are serialized.
type Detector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	outputShape  []int64
	opts         ai.Options
	mu           sync.Mutex
}

// New loads the model. libPath points at the onnxruntime shared library;
// empty means the platform default.
func New(modelPath, libPath string, opts ai.Options) (*Detector, error) {
	opts = opts.Normalize()

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected one input and one output, got %d and %d", len(inputs), len(outputs))
	}

	size := int64(opts.InputSize)
	inputShape := ort.NewShape(1, 3, size, size)
	outputShape, err := resolveOutputShape(outputs[0].Dimensions, size)
	if err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Detector{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		outputShape:  []int64(outputShape),
		opts:         opts,
	}, nil
}

// resolveOutputShape fills dynamic dimensions of a [1, 4+classes, anchors] output.
func resolveOutputShape(dims ort.Shape, inputSize int64) (ort.Shape, error) {
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output rank %d", len(dims))
	}
	if dims[1] <= 0 {
		return nil, fmt.Errorf("output class dimension is dynamic: %v", dims)
	}

	anchors := dims[2]
	if anchors <= 0 {
		anchors = ai.AnchorCount(inputSize)
	}
	return ort.NewShape(1, dims[1], anchors), nil
}

func (d *Detector) Name() string {
	return ai.BackendONNX
}

// Detect runs the network once on the full image.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := ai.NewLetterbox(img, d.opts.InputSize)
	input := lb.CHW()

	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.inputTensor.GetData(), input)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return ai.DecodeYOLO(d.outputTensor.GetData(), d.outputShape, lb, d.opts)
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.outputTensor != nil {
		d.outputTensor.Destroy()
	}
	if d.session != nil {
		d.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
