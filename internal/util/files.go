package util

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lillie/clipd/internal/config"
)

var unsafeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
var multiSpaceRe = regexp.MustCompile(`\s+`)

// EnsureDataDirs creates the staging, processed and thumbnail directories.
func EnsureDataDirs() {
	for _, dir := range config.Dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
}

// ClearStagingDir removes every staged upload. Processed clips and
// thumbnails are durable artifacts and are never touched.
func ClearStagingDir() {
	entries, err := os.ReadDir(config.UploadDir)
	if err != nil {
		os.MkdirAll(config.UploadDir, 0755)
		return
	}
	for _, e := range entries {
		os.RemoveAll(filepath.Join(config.UploadDir, e.Name()))
	}
	log.Println("[Files] Cleared staging directory")
}

// CleanupStagedFiles removes staged uploads older than the retention
// window. A file still being transcoded is younger than the window by
// construction, since staging happens at request time.
func CleanupStagedFiles() {
	now := time.Now()
	entries, err := os.ReadDir(config.UploadDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > config.StagingRetention {
			os.Remove(filepath.Join(config.UploadDir, e.Name()))
			log.Printf("[Files] Removed stale staged file: %s", e.Name())
		}
	}

	if ds, err := GetDiskSpace(config.UploadDir); err == nil {
		if ds.AvailGB < float64(config.DiskSpaceMinGB) {
			log.Printf("[DiskSpace] WARNING: Only %.1fGB free, below %dGB threshold!", ds.AvailGB, config.DiskSpaceMinGB)
		}
	}
}

func StartStagingCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for range ticker.C {
			CleanupStagedFiles()
		}
	}()
}

func SanitizeFilename(filename string) string {
	s := unsafeFilenameRe.ReplaceAllString(filename, "_")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
