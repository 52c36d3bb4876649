package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// MaxImageSize is the per-file upload cap.
const MaxImageSize = 5 << 20

var (
	ErrImageTooLarge   = errors.New("image exceeds 5 MB limit")
	ErrUnsupportedType = errors.New("only PNG and JPEG images are accepted")
)

// BlobClient uploads image files to the external content host and
// returns their hosted URLs. Transient failures are retried a bounded
// number of times; permanent rejections are not.
type BlobClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewBlobClient(baseURL, apiKey string, client *http.Client) *BlobClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &BlobClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadImage validates size and content type, then posts the file to the
// blob host. The content type is sniffed from the bytes, not trusted from
// the client.
func (c *BlobClient) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) > MaxImageSize {
		return "", ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if contentType != "image/png" && contentType != "image/jpeg" {
		return "", ErrUnsupportedType
	}

	var hostedURL string
	operation := func() error {
		url, err := c.upload(ctx, filename, contentType, data)
		if err != nil {
			return err
		}
		hostedURL = url
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	return hostedURL, nil
}

func (c *BlobClient) upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	if _, err := part.Write(data); err != nil {
		return "", backoff.Permanent(err)
	}
	if err := writer.Close(); err != nil {
		return "", backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("blob host returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", backoff.Permanent(fmt.Errorf("blob host rejected upload with status %d", resp.StatusCode))
	}

	var parsed uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode blob host response: %w", err))
	}
	if parsed.URL == "" {
		return "", backoff.Permanent(errors.New("blob host response missing url"))
	}

	return parsed.URL, nil
}
