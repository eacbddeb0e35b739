package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lillie/clipd/internal/media"
	"github.com/lillie/clipd/internal/metrics"
	"github.com/lillie/clipd/internal/store"
	"github.com/lillie/clipd/internal/util"
)

// RecordStore is the slice of the persistent store the orchestrator
// touches. *store.Store satisfies it.
type RecordStore interface {
	CreateUpload(u *store.Upload) error
	MarkFinished(id uint) (int64, error)
	CreateAlert(a *store.Alert) error
	UploadByID(id uint) (*store.Upload, error)
	PresetByID(id uint) (*store.Preset, error)
}

// Notifier posts the best-effort completion message. It never returns
// an error into the pipeline.
type Notifier interface {
	Notify(message string)
}

// Pipeline drives one upload or edit from staged bytes to a finished,
// thumbnailed, announced clip. Prepare runs the synchronous half up to
// record creation (the caller acks there); Process runs the rest.
type Pipeline struct {
	Store    RecordStore
	Prober   media.Prober
	Engine   media.Transcoder
	Registry *Registry
	Notifier Notifier

	ProcessedDir string
	ThumbnailDir string
	BaseURL      string
}

type UploadRequest struct {
	Owner        uint
	Username     string
	OriginalName string
	// SourcePath is the staged upload; the pipeline removes it after a
	// successful encode.
	SourcePath string
	PresetID   *uint
}

type EditRequest struct {
	Owner    uint
	Username string
	ClipID   uint
	Seek     string
	To       string
}

// Job carries one prepared pipeline run between Prepare and Process.
type Job struct {
	record      *store.Upload
	state       *JobState
	source      string
	crop        *media.Crop
	trim        *media.Trim
	username    string
	stagedInput bool
}

func (j *Job) ID() uint {
	return j.record.ID
}

// File returns the canonical storage name, echoed to the caller in the
// early acknowledgement.
func (j *Job) File() string {
	return j.record.File
}

func (j *Job) Title() string {
	return j.record.Title
}

// PrepareUpload probes the source, resolves configuration, creates the
// durable record and its processing alert, and registers the live job.
// Nothing durable exists if it returns an error of kind validation or
// probe.
func (p *Pipeline) PrepareUpload(ctx context.Context, req UploadRequest) (*Job, error) {
	info, err := p.Prober.Probe(ctx, req.SourcePath)
	if err != nil {
		return nil, errOf(KindProbe, "probe source: %w", err)
	}

	resolved, err := ResolvePreset(p.Store, req.PresetID)
	if err != nil {
		return nil, err
	}

	record := &store.Upload{
		File:    StorageName(req.OriginalName),
		Owner:   req.Owner,
		Title:   util.SanitizeFilename(req.OriginalName),
		Width:   info.Width,
		Height:  info.Height,
		Tag:     resolved.Tag,
		Visible: true,
	}

	job := &Job{
		record:      record,
		source:      req.SourcePath,
		crop:        resolved.Crop,
		username:    req.Username,
		stagedInput: true,
	}
	if err := p.admit(job, info.Duration); err != nil {
		return nil, err
	}
	return job, nil
}

// PrepareEdit seeds the same machine from an existing finished record.
// Ownership and finished-ness are checked before any durable write.
func (p *Pipeline) PrepareEdit(ctx context.Context, req EditRequest) (*Job, error) {
	parent, err := p.Store.UploadByID(req.ClipID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errOf(KindValidation, "clip %d not found", req.ClipID)
		}
		return nil, errOf(KindPersistence, "load clip %d: %w", req.ClipID, err)
	}
	if parent.Owner != req.Owner {
		return nil, errOf(KindValidation, "clip %d is not owned by caller", req.ClipID)
	}
	if !parent.Finished {
		return nil, errOf(KindValidation, "clip %d is still processing", req.ClipID)
	}

	source := filepath.Join(p.ProcessedDir, parent.File)
	info, err := p.Prober.Probe(ctx, source)
	if err != nil {
		return nil, errOf(KindProbe, "probe clip %d: %w", req.ClipID, err)
	}

	parentID := parent.ID
	record := &store.Upload{
		File:        GeneratedName(),
		Owner:       req.Owner,
		Title:       parent.Title,
		Description: parent.Description,
		Width:       info.Width,
		Height:      info.Height,
		Tag:         parent.Tag,
		Visible:     true,
		Edited:      &parentID,
	}

	job := &Job{
		record:   record,
		source:   source,
		trim:     &media.Trim{Seek: req.Seek, To: req.To},
		username: req.Username,
	}
	if err := p.admit(job, trimmedDuration(info.Duration, req.Seek, req.To)); err != nil {
		return nil, err
	}
	return job, nil
}

// admit is the RECORD_CREATED transition: insert, alert, registry
// entry. After it succeeds the caller may send the acknowledgement.
func (p *Pipeline) admit(job *Job, duration float64) error {
	if err := p.Store.CreateUpload(job.record); err != nil || job.record.ID == 0 {
		if err == nil {
			err = fmt.Errorf("insert returned no id")
		}
		// No record id exists, so the alert is keyed by name.
		p.alert(&store.Alert{
			Owner:      job.record.Owner,
			Type:       store.AlertError,
			UploadName: job.record.File,
			Message:    err.Error(),
		})
		return errOf(KindPersistence, "create record: %w", err)
	}

	id := job.record.ID
	p.alert(&store.Alert{Owner: job.record.Owner, Type: store.AlertProcessing, UploadID: &id})

	job.state = NewJobState(job.record.File, job.record.Title, job.record.Tag, job.record.Width, job.record.Height)
	job.state.SetDuration(duration)
	p.Registry.Put(id, job.state)

	metrics.JobsStarted.Inc()
	metrics.LiveJobs.Inc()
	log.Printf("[Pipeline] Job %d started: %s", id, job.record.File)
	return nil
}

// Process runs the asynchronous half: transcode, finalize, thumbnail,
// notify. The caller has already been acked; failures from here on are
// visible only through the alert trail and the operator surface.
func (p *Pipeline) Process(ctx context.Context, job *Job) error {
	defer metrics.LiveJobs.Dec()

	err := p.process(ctx, job)
	if err != nil {
		metrics.JobsFailed.WithLabelValues(KindOf(err).String()).Inc()
		log.Printf("[Pipeline] Job %d failed: %v", job.ID(), err)
		return err
	}
	metrics.JobsCompleted.Inc()
	log.Printf("[Pipeline] Job %d complete: %s", job.ID(), job.record.File)
	return nil
}

func (p *Pipeline) process(ctx context.Context, job *Job) error {
	id := job.record.ID
	output := filepath.Join(p.ProcessedDir, job.record.File)

	// The staged source is consumed here whatever the outcome; the
	// periodic sweep is only a backstop.
	if job.stagedInput {
		defer os.Remove(job.source)
	}

	enc := media.EncodeJob{
		Input:   job.source,
		Output:  output,
		Crop:    job.crop,
		Trim:    job.trim,
		Process: job.state.Process,
	}
	if err := p.Engine.Transcode(ctx, enc, job.state.ObserveElapsed); err != nil {
		p.alertID(job, store.AlertError, err.Error())
		return errOf(KindTranscode, "transcode job %d: %w", id, err)
	}

	rows, err := p.Store.MarkFinished(id)
	if err == nil && rows == 0 {
		err = fmt.Errorf("no row updated")
	}
	if err != nil {
		p.alertID(job, store.AlertError, err.Error())
		return errOf(KindPersistence, "finalize job %d: %w", id, err)
	}
	p.alertID(job, store.AlertFinished, "")
	job.state.SetComplete()

	// Thumbnail failure is terminal for the pipeline but does not
	// revert finished: the clip itself is already servable.
	thumb := filepath.Join(p.ThumbnailDir, fmt.Sprintf("%d.png", id))
	if err := p.Engine.ExtractFrame(ctx, output, thumb); err != nil {
		p.alertID(job, store.AlertError, err.Error())
		return errOf(KindThumbnail, "thumbnail job %d: %w", id, err)
	}

	if p.Notifier != nil {
		verb := "uploaded a new clip"
		if job.record.Edited != nil {
			verb = "trimmed a clip"
		}
		p.Notifier.Notify(fmt.Sprintf("%s %s: %s/clips/%d", job.username, verb, p.BaseURL, id))
	}
	return nil
}

func (p *Pipeline) alertID(job *Job, typ, message string) {
	id := job.record.ID
	p.alert(&store.Alert{Owner: job.record.Owner, Type: typ, UploadID: &id, Message: message})
}

// Alert writes that fail are logged, not escalated: losing one audit
// row must not take down a job that is otherwise progressing.
func (p *Pipeline) alert(a *store.Alert) {
	if err := p.Store.CreateAlert(a); err != nil {
		log.Printf("[Pipeline] Alert write failed (%s, upload=%v): %v", a.Type, a.UploadID, err)
	}
}

// trimmedDuration estimates the output duration of a trim so progress
// can be computed against it. Unparseable bounds leave it unknown.
func trimmedDuration(sourceDuration float64, seek, to string) float64 {
	start := 0.0
	if seek != "" {
		v, ok := parseTimeSeconds(seek)
		if !ok {
			return 0
		}
		start = v
	}
	end := sourceDuration
	if to != "" {
		v, ok := parseTimeSeconds(to)
		if !ok {
			return 0
		}
		end = v
	}
	if end > sourceDuration && sourceDuration > 0 {
		end = sourceDuration
	}
	if end <= start {
		return 0
	}
	return end - start
}

func parseTimeSeconds(value string) (float64, bool) {
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v, true
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
