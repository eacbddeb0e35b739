package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// Info is the source metadata the pipeline needs before it creates any
// durable state. Duration 0 means ffprobe could not determine it (live
// fragments, broken headers); progress stays unknown in that case.
type Info struct {
	Duration float64
	Width    int
	Height   int
}

func (i *Info) HasDuration() bool {
	return i.Duration > 0
}

type Prober interface {
	Probe(ctx context.Context, path string) (*Info, error)
}

// FFProber shells out to ffprobe with a single JSON call.
type FFProber struct{}

func (FFProber) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	return ParseProbeJSON(out)
}

// ParseProbeJSON converts raw ffprobe JSON output into an Info.
// Exported for testing without a real ffprobe binary.
func ParseProbeJSON(data []byte) (*Info, error) {
	var raw struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if len(raw.Streams) == 0 {
		return nil, fmt.Errorf("no video stream")
	}

	info := &Info{
		Width:  raw.Streams[0].Width,
		Height: raw.Streams[0].Height,
	}
	if raw.Format.Duration != "" {
		info.Duration, _ = strconv.ParseFloat(raw.Format.Duration, 64)
	}
	return info, nil
}
