package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Minimal valid PNG header followed by padding; enough for
// http.DetectContentType to report image/png.
func pngBytes(size int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	data := make([]byte, size)
	copy(data, header)
	return data
}

func TestBlobClient_UploadImage(t *testing.T) {
	t.Run("uploads and returns hosted url", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				t.Fatalf("failed to parse multipart: %v", err)
			}
			if _, _, err := r.FormFile("file"); err != nil {
				t.Fatalf("missing file part: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/a.png"})
		}))
		defer server.Close()

		client := NewBlobClient(server.URL, "blob-key", server.Client())
		url, err := client.UploadImage(context.Background(), "a.png", pngBytes(128))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if url != "https://cdn.example.com/a.png" {
			t.Errorf("unexpected url: %s", url)
		}
		if gotAuth != "Bearer blob-key" {
			t.Errorf("expected api key header, got %q", gotAuth)
		}
	})

	t.Run("rejects oversized file before sending", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("oversized upload must not reach the host")
		}))
		defer server.Close()

		client := NewBlobClient(server.URL, "", server.Client())
		_, err := client.UploadImage(context.Background(), "big.png", pngBytes(MaxImageSize+1))
		if !errors.Is(err, ErrImageTooLarge) {
			t.Errorf("expected ErrImageTooLarge, got %v", err)
		}
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		client := NewBlobClient("http://unused", "", http.DefaultClient)
		_, err := client.UploadImage(context.Background(), "notes.txt", bytes.Repeat([]byte("hello "), 10))
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var attempts int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/b.png"})
		}))
		defer server.Close()

		client := NewBlobClient(server.URL, "", server.Client())
		url, err := client.UploadImage(context.Background(), "b.png", pngBytes(64))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if url != "https://cdn.example.com/b.png" {
			t.Errorf("unexpected url: %s", url)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("does not retry client rejections", func(t *testing.T) {
		var attempts int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := NewBlobClient(server.URL, "", server.Client())
		if _, err := client.UploadImage(context.Background(), "c.png", pngBytes(64)); err == nil {
			t.Fatal("expected error")
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
	})
}
