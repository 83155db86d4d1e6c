package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Artifact is a request-scoped temporary file. Its name never comes from the
// client. Release removes it and is safe to call more than once.
type Artifact struct {
	path     string
	file     *os.File
	once     sync.Once
	closeErr error
	size     int64
}

// AcquireArtifact creates a new uniquely named file under dir.
func AcquireArtifact(dir string) (*Artifact, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+".upload")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	return &Artifact{path: path, file: file}, nil
}

// Path returns the location of the file on disk.
func (a *Artifact) Path() string {
	return a.path
}

// Size returns the number of bytes written so far.
func (a *Artifact) Size() int64 {
	return a.size
}

// Write appends to the file.
func (a *Artifact) Write(p []byte) (int, error) {
	n, err := a.file.Write(p)
	a.size += int64(n)
	return n, err
}

// Seal closes the file for writing. The content stays on disk until Release.
func (a *Artifact) Seal() error {
	a.once.Do(func() {
		a.closeErr = a.file.Close()
	})
	return a.closeErr
}

// Open reopens the sealed file for reading.
func (a *Artifact) Open() (*os.File, error) {
	if err := a.Seal(); err != nil {
		return nil, err
	}
	return os.Open(a.path)
}

// Release closes and deletes the file.
func (a *Artifact) Release() error {
	a.Seal()
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file %s: %w", a.path, err)
	}
	return nil
}
