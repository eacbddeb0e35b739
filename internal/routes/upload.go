package routes

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lillie/clipd/internal/config"
	"github.com/lillie/clipd/internal/middleware"
	"github.com/lillie/clipd/internal/services"
	"github.com/lillie/clipd/internal/util"
)

// Deps carries the wired pipeline into the handlers.
type Deps struct {
	Pipeline *services.Pipeline
	Registry *services.Registry
}

var allowedUploadExts = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

func UploadRoutes(r chi.Router, d *Deps) {
	r.With(middleware.Auth).Post("/upload", d.handleUpload)
}

func (d *Deps) handleUpload(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	if ds, err := util.GetDiskSpace(config.UploadDir); err == nil && ds.AvailGB < float64(config.DiskSpaceMinGB) {
		respondMessage(w, 503, fmt.Sprintf("Low disk space (%.1fGB free), try again later", ds.AvailGB))
		return
	}

	stagedPath, originalName, err := saveUploadedFile(r, w, "file")
	if err != nil {
		respondMessage(w, 403, err.Error())
		return
	}

	var presetID *uint
	if raw := r.URL.Query().Get("config"); raw != "" {
		id, ok := parseUint(raw)
		if !ok {
			os.Remove(stagedPath)
			respondMessage(w, 403, "Invalid config")
			return
		}
		presetID = &id
	}

	job, err := d.Pipeline.PrepareUpload(r.Context(), services.UploadRequest{
		Owner:        identity.ID,
		Username:     identity.Username,
		OriginalName: originalName,
		SourcePath:   stagedPath,
		PresetID:     presetID,
	})
	if err != nil {
		os.Remove(stagedPath)
		switch services.KindOf(err) {
		case services.KindValidation:
			respondMessage(w, 403, err.Error())
		case services.KindProbe:
			respondMessage(w, 403, "Could not read video metadata from the uploaded file")
		default:
			log.Printf("[Upload] %v", err)
			respondMessage(w, 500, "There was an error uploading your file")
		}
		return
	}

	// The ack promises that processing started, not that it will
	// succeed; the rest of the pipeline runs detached.
	respondJSON(w, 200, map[string]string{"file": originalName})
	go d.Pipeline.Process(context.Background(), job)
}

func saveUploadedFile(r *http.Request, w http.ResponseWriter, fieldName string) (string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, config.FileSizeLimit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", "", fmt.Errorf("Failed to parse upload: file may be too large")
	}

	file, header, err := r.FormFile(fieldName)
	if err != nil {
		return "", "", fmt.Errorf("Please upload a file")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" || !allowedUploadExts[ext] {
		return "", "", fmt.Errorf("Unsupported file type. Please upload a video file.")
	}
	stagedPath := filepath.Join(config.UploadDir, uuid.New().String()+ext)
	dst, err := os.Create(stagedPath)
	if err != nil {
		return "", "", fmt.Errorf("Failed to save file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(stagedPath)
		return "", "", fmt.Errorf("Failed to save file")
	}

	return stagedPath, header.Filename, nil
}
