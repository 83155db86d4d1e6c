package ai

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"leafdoctor/internal/model"
)

// ErrNotLoaded is returned while the handle has no working detector.
var ErrNotLoaded = errors.New("detection network not initialized")

// Loader builds the detector. It is called at most once per Handle.
type Loader func() (Detector, error)

// Handle owns the single detector shared by all requests.
type Handle struct {
	once     sync.Once
	started  atomic.Bool
	load     Loader
	detector Detector
	err      error
}

// NewHandle wraps a loader; nothing is loaded until Get is first called.
func NewHandle(load Loader) *Handle {
	return &Handle{load: load}
}

// Get loads the detector on first use and returns the cached result afterwards.
func (h *Handle) Get() (Detector, error) {
	h.once.Do(func() {
		h.started.Store(true)
		if h.load == nil {
			h.err = ErrNotLoaded
			return
		}
		h.detector, h.err = h.load()
		if h.err == nil && h.detector == nil {
			h.err = ErrNotLoaded
		}
	})
	return h.detector, h.err
}

// Ready reports whether a detector is available.
func (h *Handle) Ready() bool {
	_, err := h.Get()
	return err == nil
}

// Detect runs the shared detector. It satisfies Detector so callers need not
// care whether loading succeeded.
func (h *Handle) Detect(ctx context.Context, img image.Image) ([]model.Detection, error) {
	d, err := h.Get()
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, img)
}

// Name returns the backend name, or "none" when nothing is loaded. It never
// triggers a load.
func (h *Handle) Name() string {
	if !h.started.Load() {
		return "none"
	}
	d, err := h.Get()
	if err != nil {
		return "none"
	}
	return d.Name()
}

// Close releases the detector if it was loaded. A handle that never loaded
// stays unloaded.
func (h *Handle) Close() error {
	if !h.started.Load() {
		return nil
	}
	d, err := h.Get()
	if err != nil {
		return nil
	}
	return d.Close()
}
