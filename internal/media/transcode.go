package media

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"regexp"
	"strconv"
)

var ffmpegTimeRegex = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)

// Crop is a horizontal-centered crop with no vertical offset.
type Crop struct {
	Width       int
	Height      int
	SourceWidth int
}

func (c Crop) Filter() string {
	return fmt.Sprintf("crop=%d:%d:%d:0", c.Width, c.Height, (c.SourceWidth-c.Width)/2)
}

// Trim selects a sub-range of an already-processed clip. Values are
// pre-validated ffmpeg time expressions; empty means unbounded.
type Trim struct {
	Seek string
	To   string
}

// EncodeJob describes one ffmpeg run. Process, when set, receives the
// live command handle for operator inspection.
type EncodeJob struct {
	Input   string
	Output  string
	Crop    *Crop
	Trim    *Trim
	Process *Process
}

type Transcoder interface {
	// Transcode encodes the job, invoking onProgress with the encoded
	// elapsed seconds for every progress event ffmpeg emits.
	Transcode(ctx context.Context, job EncodeJob, onProgress func(elapsed float64)) error

	// ExtractFrame writes the first frame of input as a PNG.
	ExtractFrame(ctx context.Context, input, output string) error
}

// Engine runs ffmpeg via os/exec.
type Engine struct{}

func (Engine) Transcode(ctx context.Context, job EncodeJob, onProgress func(elapsed float64)) error {
	args := buildEncodeArgs(job)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	if job.Process != nil {
		job.Process.SetCmd(cmd)
	}

	var lastStderr string
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, err := stderrPipe.Read(buf)
			if n > 0 {
				msg := string(buf[:n])
				lastStderr = msg
				if elapsed, ok := ParseElapsed(msg); ok && onProgress != nil {
					onProgress(elapsed)
				}
			}
			if err != nil {
				return
			}
		}
	}()

	err = cmd.Wait()
	<-done
	if err != nil {
		tail := lastStderr
		if len(tail) > 500 {
			tail = tail[len(tail)-500:]
		}
		log.Printf("[FFmpeg] encode failed: %s", tail)
		return fmt.Errorf("encoding failed (code %d)", cmd.ProcessState.ExitCode())
	}
	return nil
}

func (Engine) ExtractFrame(ctx context.Context, input, output string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", input,
		"-ss", "0", "-frames:v", "1",
		output)
	if out, err := cmd.CombinedOutput(); err != nil {
		tail := string(out)
		if len(tail) > 500 {
			tail = tail[len(tail)-500:]
		}
		log.Printf("[FFmpeg] thumbnail failed: %s", tail)
		return fmt.Errorf("thumbnail extraction failed: %w", err)
	}
	return nil
}

func buildEncodeArgs(job EncodeJob) []string {
	args := []string{"-y"}
	if job.Trim != nil {
		if job.Trim.Seek != "" {
			args = append(args, "-ss", job.Trim.Seek)
		}
		if job.Trim.To != "" {
			args = append(args, "-to", job.Trim.To)
		}
	}
	args = append(args, "-i", job.Input)
	if job.Crop != nil {
		args = append(args, "-vf", job.Crop.Filter())
	}
	// Canonical storage names carry no extension, so the container
	// must be pinned instead of inferred from the output path.
	args = append(args,
		"-codec:v", "libx264", "-preset", "medium", "-crf", "23",
		"-codec:a", "aac",
		"-movflags", "+faststart",
		"-f", "mp4",
		job.Output)
	return args
}

// ParseElapsed pulls the encoded timestamp out of an ffmpeg stderr
// chunk. Exported for tests.
func ParseElapsed(msg string) (float64, bool) {
	m := ffmpegTimeRegex.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.ParseFloat(m[3], 64)
	return float64(h)*3600 + float64(min)*60 + sec, true
}
