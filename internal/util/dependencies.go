package util

import (
	"log"
	"os/exec"
)

// CheckDependencies verifies the external binaries the pipeline shells
// out to. Missing ffmpeg or ffprobe is fatal: every job needs both.
func CheckDependencies() {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		path, err := exec.LookPath(bin)
		if err != nil {
			log.Fatalf("%s not found in PATH, install it before starting", bin)
		}
		log.Printf("[Deps] %s: %s", bin, path)
	}
}
