// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func pngDataURL(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return EncodeDataURL("image/png", buf.Bytes())
}

func TestConvert_ServicePath(t *testing.T) {
	var gotReq convertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/convert-base64" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(convertResponse{Success: true, WebPImage: "data:image/webp;base64,V0VCUA=="})
	}))
	defer srv.Close()

	in := pngDataURL(t, color.White)
	out, err := NewConverter(srv.URL, nil).Convert(context.Background(), in)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out != "data:image/webp;base64,V0VCUA==" {
		t.Errorf("out: got %q", out)
	}
	if gotReq.ImageData != in {
		t.Errorf("service did not receive the original data URL")
	}
}

// TestConvert_WebPInputSucceeds: the service handles WebP input like any
// other format, so converting an already-WebP reference must not error.
func TestConvert_WebPInputSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(convertResponse{Success: true, WebPImage: "data:image/webp;base64,V0VCUA=="})
	}))
	defer srv.Close()

	out, err := NewConverter(srv.URL, nil).Convert(context.Background(), "data:image/webp;base64,V0VCUA==")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.HasPrefix(out, "data:image/webp;base64,") {
		t.Errorf("out: got %q", out)
	}
}

func TestConvert_FallbackFlattensToJPEG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	// Fully transparent source: the flattened JPEG must come out white.
	in := pngDataURL(t, color.NRGBA{0, 0, 0, 0})
	out, err := NewConverter(srv.URL, nil).Convert(context.Background(), in)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.HasPrefix(out, "data:image/jpeg;base64,") {
		t.Fatalf("fallback output not a JPEG data URL: %q", out[:40])
	}

	raw, err := DecodeDataURL(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output not decodable JPEG: %v", err)
	}
	r, g, b, _ := img.At(2, 2).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("transparent pixels not flattened to white: r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestConvert_RejectedResponseFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(convertResponse{Success: false, Error: "unsupported format"})
	}))
	defer srv.Close()

	out, err := NewConverter(srv.URL, nil).Convert(context.Background(), pngDataURL(t, color.White))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.HasPrefix(out, "data:image/jpeg;base64,") {
		t.Errorf("expected local fallback output, got %q", out[:40])
	}
}

func TestConvert_TotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewConverter(srv.URL, nil).Convert(context.Background(), "data:image/png;base64,not-even-base64!")
	if !errors.Is(err, ErrUnconvertible) {
		t.Errorf("err = %v, want ErrUnconvertible", err)
	}
}

func TestDecodeDataURL(t *testing.T) {
	raw, err := DecodeDataURL("data:image/png;base64,aGVsbG8=")
	if err != nil || string(raw) != "hello" {
		t.Errorf("with header: raw=%q err=%v", raw, err)
	}
	raw, err = DecodeDataURL("aGVsbG8=")
	if err != nil || string(raw) != "hello" {
		t.Errorf("bare base64: raw=%q err=%v", raw, err)
	}
	if _, err := DecodeDataURL("data:image/png;base64"); err == nil {
		t.Error("malformed data URL accepted")
	}
}

func TestMIMEType(t *testing.T) {
	if got := MIMEType("data:image/webp;base64,AAA"); got != "image/webp" {
		t.Errorf("got %q", got)
	}
	if got := MIMEType("AAA"); got != "image/png" {
		t.Errorf("bare payload: got %q", got)
	}
}
