// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"recipepress/internal/imaging"
)

// maxBodySize caps both JSON and multipart uploads.
const maxBodySize = 10 << 20 // 10 MB

// Server exposes the conversion routes. toJPEG and toWebP default to the
// libvips pipeline and are swappable in tests.
type Server struct {
	uploadsDir string
	logger     *slog.Logger
	toJPEG     func([]byte) ([]byte, error)
	toWebP     func([]byte) ([]byte, error)
}

func NewServer(uploadsDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		uploadsDir: uploadsDir,
		logger:     logger,
		toJPEG:     ToJPEG,
		toWebP:     ToWebP,
	}
}

// Router wires the conversion routes plus static serving of uploads.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/convert-base64", s.handleConvertBase64)
	r.Post("/convert-file", s.handleConvertFile)
	r.Get("/health", s.handleHealth)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))
	return r
}

type base64Request struct {
	ImageData string `json:"imageData"`
}

type base64Response struct {
	Success      bool   `json:"success"`
	WebPImage    string `json:"webpImage,omitempty"`
	OriginalSize int    `json:"originalSize,omitempty"`
	WebPSize     int    `json:"webpSize,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleConvertBase64(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req base64Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, base64Response{Error: "invalid request body"})
		return
	}
	if req.ImageData == "" {
		writeJSON(w, http.StatusBadRequest, base64Response{Error: "imageData is required"})
		return
	}

	raw, err := imaging.DecodeDataURL(req.ImageData)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, base64Response{Error: "imageData is not valid base64"})
		return
	}

	webpBuf, err := s.toWebP(raw)
	if err != nil {
		s.logger.Error("base64 conversion failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, base64Response{Error: "conversion failed"})
		return
	}

	writeJSON(w, http.StatusOK, base64Response{
		Success:      true,
		WebPImage:    imaging.EncodeDataURL("image/webp", webpBuf),
		OriginalSize: len(raw),
		WebPSize:     len(webpBuf),
	})
}

type fileResponse struct {
	Success  bool   `json:"success"`
	JPEGPath string `json:"jpegPath,omitempty"`
	WebPPath string `json:"webpPath,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleConvertFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseMultipartForm(maxBodySize); err != nil {
		writeJSON(w, http.StatusBadRequest, fileResponse{Error: "invalid multipart form"})
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fileResponse{Error: "image file is required"})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fileResponse{Error: "could not read upload"})
		return
	}

	jpegBuf, err := s.toJPEG(raw)
	if err != nil {
		s.logger.Error("file conversion failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, fileResponse{Error: "conversion failed"})
		return
	}
	webpBuf, err := s.toWebP(raw)
	if err != nil {
		s.logger.Error("file conversion failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, fileResponse{Error: "conversion failed"})
		return
	}

	name := uuid.NewString()
	jpegName := name + ".jpg"
	webpName := name + ".webp"
	if err := s.store(jpegName, jpegBuf); err != nil {
		s.logger.Error("store jpeg failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, fileResponse{Error: "could not store file"})
		return
	}
	if err := s.store(webpName, webpBuf); err != nil {
		s.logger.Error("store webp failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, fileResponse{Error: "could not store file"})
		return
	}

	writeJSON(w, http.StatusOK, fileResponse{
		Success:  true,
		JPEGPath: "/uploads/" + jpegName,
		WebPPath: "/uploads/" + webpName,
	})
}

func (s *Server) store(name string, data []byte) error {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return fmt.Errorf("uploads dir: %w", err)
	}
	return os.WriteFile(filepath.Join(s.uploadsDir, name), data, 0o644)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
