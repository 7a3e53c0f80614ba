package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

var ErrUploadsDisabled = errors.New("file uploads are not configured")

// Uploader stores a file with an external image host and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, file *multipart.FileHeader) (string, error)
}

var allowedUploadExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".pdf": true,
}

// AllowedUpload reports whether the filename carries an accepted extension.
func AllowedUpload(filename string) bool {
	return allowedUploadExt[strings.ToLower(filepath.Ext(filename))]
}

// HTTPUploader posts files as multipart form data to an upload endpoint.
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

func NewHTTPUploader(endpoint string, timeout time.Duration) *HTTPUploader {
	return &HTTPUploader{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

func (u *HTTPUploader) Upload(ctx context.Context, folder string, file *multipart.FileHeader) (string, error) {
	if u.endpoint == "" {
		return "", ErrUploadsDisabled
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("folder", folder); err != nil {
		return "", err
	}
	part, err := form.CreateFormFile("file", filepath.Base(file.Filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.SecureURL != "" {
		return body.SecureURL, nil
	}
	if body.URL != "" {
		return body.URL, nil
	}
	return "", errors.New("upload response carried no url")
}
