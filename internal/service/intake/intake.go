// Package intake extracts the uploaded image from an HTTP request, whatever
// shape the request takes.
package intake

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"leafdoctor/internal/logger"
	"leafdoctor/internal/model"
)

// Input errors, reported to the client as 400.
var (
	ErrNoImage         = errors.New("no image found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrUnreadableImage = errors.New("could not read image file")
)

const (
	// FileField is the multipart field carrying the image.
	FileField = "file"
	// JSONField is the JSON body key carrying the base64 image.
	JSONField = "image"
)

// Intake turns requests into payloads.
type Intake struct {
	tempDir string
	logger  *logger.Logger
}

// New creates an Intake that spools multipart uploads under tempDir.
func New(tempDir string, logger *logger.Logger) *Intake {
	return &Intake{tempDir: tempDir, logger: logger}
}

// Extract picks the variant from the Content-Type header. The caller must
// Release the returned payload.
func (in *Intake) Extract(r *http.Request) (*Payload, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, ErrNoImage
	}

	switch mediaType {
	case "multipart/form-data":
		return in.fromMultipart(r)
	case "application/json":
		return in.fromJSON(r)
	default:
		return nil, ErrNoImage
	}
}

// fromMultipart streams the "file" part straight into a temporary artifact.
func (in *Intake) fromMultipart(r *http.Request) (*Payload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, ErrNoImage
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, ErrNoImage
		}
		if err != nil {
			return nil, bodyError(err, ErrNoImage)
		}

		if part.FormName() != FileField {
			part.Close()
			continue
		}

		filename, isFile := partFilename(part.Header.Get("Content-Disposition"))
		if !isFile {
			// plain form value, not an upload
			part.Close()
			continue
		}
		if strings.TrimSpace(filename) == "" {
			part.Close()
			return nil, ErrInvalidFilename
		}

		artifact, err := AcquireArtifact(in.tempDir)
		if err != nil {
			part.Close()
			return nil, err
		}

		_, copyErr := io.Copy(artifact, part)
		part.Close()
		if copyErr == nil {
			copyErr = artifact.Seal()
		}
		if copyErr != nil {
			in.release(artifact)
			return nil, bodyError(copyErr, ErrUnreadableImage)
		}

		return &Payload{
			Source:   model.SourceMultipart,
			Filename: filename,
			artifact: artifact,
			logger:   in.logger,
		}, nil
	}
}

type jsonBody struct {
	Image *string `json:"image"`
}

func (in *Intake) fromJSON(r *http.Request) (*Payload, error) {
	var body jsonBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, bodyError(err, ErrNoImage)
	}

	if body.Image == nil {
		return nil, ErrNoImage
	}

	encoded := strings.TrimSpace(*body.Image)
	if encoded == "" {
		return nil, ErrInvalidFilename
	}

	data, err := DecodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	return &Payload{Source: model.SourceJSON, data: data, logger: in.logger}, nil
}

// DecodeBase64 accepts standard base64, with or without padding, optionally
// prefixed with a data URL header.
func DecodeBase64(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	return data, err
}

func (in *Intake) release(a *Artifact) {
	if err := a.Release(); err != nil && in.logger != nil {
		in.logger.Warning("Temp file cleanup failed: %v", err)
	}
}

// partFilename reports the filename parameter and whether it was present at all.
func partFilename(contentDisposition string) (string, bool) {
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return "", false
	}
	filename, ok := params["filename"]
	return filename, ok
}

// bodyError maps oversized bodies to ErrUnreadableImage and everything else to fallback.
func bodyError(err, fallback error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}
