package coverage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"errors"

	"github.com/ethereum/go-ethereum/log"
)

// UploadError indicates the coverage service could not be reached or
// rejected the tracefile. Logged only; CI completion never depends on the
// service's availability.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload error: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsUploadError checks if the error is or wraps an UploadError.
func IsUploadError(err error) bool {
	var uploadErr *UploadError
	return err != nil && errors.As(err, &uploadErr)
}

// Uploader posts consolidated tracefiles to the coverage service.
type Uploader struct {
	url    string
	token  string
	client *http.Client
	log    log.Logger
}

// UploaderConfig holds configuration for creating an uploader.
type UploaderConfig struct {
	// URL is the coverage service endpoint.
	URL string
	// Token is the fixed project token.
	Token  string
	Log    log.Logger
	Client *http.Client
}

// NewUploader creates a new uploader instance.
func NewUploader(cfg UploaderConfig) (*Uploader, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("upload URL is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 60 * time.Second}
	}

	return &Uploader{
		url:    cfg.URL,
		token:  cfg.Token,
		client: cfg.Client,
		log:    cfg.Log,
	}, nil
}

// Upload sends one consolidated tracefile plus the project token to the
// coverage service. Only success/failure is consumed from the response.
func (u *Uploader) Upload(ctx context.Context, tracefile string) error {
	f, err := os.Open(tracefile)
	if err != nil {
		return &UploadError{Err: fmt.Errorf("opening tracefile: %w", err)}
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("token", u.token); err != nil {
		return &UploadError{Err: fmt.Errorf("writing token field: %w", err)}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(tracefile))
	if err != nil {
		return &UploadError{Err: fmt.Errorf("creating form file: %w", err)}
	}
	if _, err := io.Copy(part, f); err != nil {
		return &UploadError{Err: fmt.Errorf("copying tracefile: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return &UploadError{Err: fmt.Errorf("finalizing form: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return &UploadError{Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	u.log.Info("Uploading coverage report", "url", u.url, "tracefile", tracefile)

	resp, err := u.client.Do(req)
	if err != nil {
		return &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadError{Err: fmt.Errorf("coverage service returned status %d", resp.StatusCode)}
	}

	u.log.Info("Coverage report uploaded", "status", resp.StatusCode)
	return nil
}
