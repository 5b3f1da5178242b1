// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package convert

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestServer swaps the libvips pipeline for a byte-level stub so handler
// behavior is testable without the native library.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(t.TempDir(), nil)
	s.toJPEG = func(in []byte) ([]byte, error) { return append([]byte("JPEG:"), in...), nil }
	s.toWebP = func(in []byte) ([]byte, error) { return append([]byte("WEBP:"), in...), nil }
	return s
}

func TestConvertBase64_Success(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Router())
	defer srv.Close()

	body := `{"imageData":"data:image/png;base64,aGVsbG8="}`
	resp, err := http.Post(srv.URL+"/convert-base64", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var parsed base64Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !parsed.Success {
		t.Errorf("success=false, error=%q", parsed.Error)
	}
	if !strings.HasPrefix(parsed.WebPImage, "data:image/webp;base64,") {
		t.Errorf("webpImage: got %q", parsed.WebPImage)
	}
	if parsed.OriginalSize != len("hello") {
		t.Errorf("originalSize: got %d", parsed.OriginalSize)
	}
}

func TestConvertBase64_MissingImageData(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/convert-base64", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestConvertBase64_BadBase64(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/convert-base64", "application/json",
		strings.NewReader(`{"imageData":"data:image/png;base64,!!!"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestConvertBase64_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Router())
	defer srv.Close()

	huge := `{"imageData":"` + strings.Repeat("A", maxBodySize+1024) + `"}`
	resp, err := http.Post(srv.URL+"/convert-base64", "application/json", strings.NewReader(huge))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", resp.StatusCode)
	}
}

func TestConvertFile_StoresBothFormats(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("png-bytes"))
	mw.Close()

	resp, err := http.Post(srv.URL+"/convert-file", mw.FormDataContentType(), &form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var parsed fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(parsed.JPEGPath, "/uploads/") || !strings.HasSuffix(parsed.JPEGPath, ".jpg") {
		t.Errorf("jpegPath: got %q", parsed.JPEGPath)
	}
	if !strings.HasSuffix(parsed.WebPPath, ".webp") {
		t.Errorf("webpPath: got %q", parsed.WebPPath)
	}

	stored, err := os.ReadFile(filepath.Join(s.uploadsDir, filepath.Base(parsed.WebPPath)))
	if err != nil {
		t.Fatalf("read stored webp: %v", err)
	}
	if string(stored) != "WEBP:png-bytes" {
		t.Errorf("stored webp content: %q", stored)
	}

	// Stored files are served back over /uploads/.
	get, err := http.Get(srv.URL + parsed.WebPPath)
	if err != nil {
		t.Fatalf("get upload: %v", err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Errorf("static serving status: got %d", get.StatusCode)
	}
}

func TestConvertFile_MissingFile(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Router())
	defer srv.Close()

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	mw.WriteField("other", "x")
	mw.Close()

	resp, err := http.Post(srv.URL+"/convert-file", mw.FormDataContentType(), &form)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", resp.StatusCode)
	}
}
