package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lillie/clipd/internal/media"
	"github.com/lillie/clipd/internal/store"
)

type fakeStore struct {
	mu      sync.Mutex
	uploads []*store.Upload
	alerts  []*store.Alert
	presets map[uint]*store.Preset

	failCreate  bool
	finishRows  int64
	finishError error
}

func newFakeStore() *fakeStore {
	return &fakeStore{presets: make(map[uint]*store.Preset), finishRows: 1}
}

func (f *fakeStore) CreateUpload(u *store.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("connection refused")
	}
	u.ID = uint(len(f.uploads) + 1)
	cp := *u
	f.uploads = append(f.uploads, &cp)
	return nil
}

func (f *fakeStore) MarkFinished(id uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finishError != nil {
		return 0, f.finishError
	}
	if f.finishRows > 0 {
		for _, u := range f.uploads {
			if u.ID == id {
				u.Finished = true
			}
		}
	}
	return f.finishRows, nil
}

func (f *fakeStore) CreateAlert(a *store.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.alerts = append(f.alerts, &cp)
	return nil
}

func (f *fakeStore) UploadByID(id uint) (*store.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.uploads {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) PresetByID(id uint) (*store.Preset, error) {
	p, ok := f.presets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

type fakeProber struct {
	info *media.Info
	err  error
}

func (f fakeProber) Probe(ctx context.Context, path string) (*media.Info, error) {
	return f.info, f.err
}

type fakeEngine struct {
	mu        sync.Mutex
	jobs      []media.EncodeJob
	frames    int
	elapsed   []float64
	encodeErr error
	frameErr  error
}

func (f *fakeEngine) Transcode(ctx context.Context, job media.EncodeJob, onProgress func(elapsed float64)) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	events := f.elapsed
	f.mu.Unlock()
	for _, e := range events {
		onProgress(e)
	}
	return f.encodeErr
}

func (f *fakeEngine) ExtractFrame(ctx context.Context, input, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frameErr != nil {
		return f.frameErr
	}
	f.frames++
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(message string) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	f.mu.Unlock()
}

func newTestPipeline(st *fakeStore, eng *fakeEngine, prober fakeProber) (*Pipeline, *fakeNotifier) {
	n := &fakeNotifier{}
	return &Pipeline{
		Store:        st,
		Prober:       prober,
		Engine:       eng,
		Registry:     NewRegistry(),
		Notifier:     n,
		ProcessedDir: "processed",
		ThumbnailDir: "thumbnails",
		BaseURL:      "https://clips.example.com",
	}, n
}

func alertTypes(st *fakeStore) []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.alerts))
	for i, a := range st.alerts {
		out[i] = a.Type
	}
	return out
}

func TestUploadHappyPath(t *testing.T) {
	st := newFakeStore()
	eng := &fakeEngine{elapsed: []float64{10, 30, 60}}
	p, n := newTestPipeline(st, eng, fakeProber{info: &media.Info{Duration: 60, Width: 1920, Height: 1080}})

	job, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner:        7,
		Username:     "lillie",
		OriginalName: "2023-01-15 10-30-45-123.mp4",
		SourcePath:   "uploads/staged.mp4",
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if job.File() != "2023.01.15-10.30.45123" {
		t.Fatalf("file = %q", job.File())
	}

	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := alertTypes(st); len(got) != 2 || got[0] != store.AlertProcessing || got[1] != store.AlertFinished {
		t.Fatalf("alerts = %v, want [processing finished]", got)
	}
	for _, a := range st.alerts {
		if a.UploadID == nil || *a.UploadID != job.ID() {
			t.Fatalf("alert not keyed by record id: %+v", a)
		}
	}
	if !st.uploads[0].Finished {
		t.Fatal("record not finished")
	}
	if eng.frames != 1 {
		t.Fatalf("frames = %d, want 1", eng.frames)
	}
	if len(n.messages) != 1 || !strings.Contains(n.messages[0], "uploaded a new clip") {
		t.Fatalf("notifications = %v, want one upload message", n.messages)
	}

	snap := p.Registry.Get(job.ID()).Snapshot()
	if snap.Progress == nil || *snap.Progress != 100 {
		t.Fatalf("final progress = %v, want 100", snap.Progress)
	}
}

func TestUploadSanitizesTitle(t *testing.T) {
	st := newFakeStore()
	p, _ := newTestPipeline(st, &fakeEngine{}, fakeProber{info: &media.Info{Duration: 30}})

	job, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner:        7,
		Username:     "lillie",
		OriginalName: `evil:na<me>".mp4`,
		SourcePath:   "uploads/staged.mp4",
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if got := job.Title(); got != "evil_na_me__.mp4" {
		t.Fatalf("title = %q, want unsafe characters replaced", got)
	}
	if st.uploads[0].Title != job.Title() {
		t.Fatalf("persisted title = %q", st.uploads[0].Title)
	}
}

func TestUploadUnknownConfigLeavesNoTrace(t *testing.T) {
	st := newFakeStore()
	p, _ := newTestPipeline(st, &fakeEngine{}, fakeProber{info: &media.Info{Duration: 30}})

	id := uint(42)
	_, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner:        7,
		Username:     "lillie",
		OriginalName: "whatever.mp4",
		SourcePath:   "uploads/staged.mp4",
		PresetID:     &id,
	})
	if KindOf(err) != KindValidation {
		t.Fatalf("kind = %v, want validation", KindOf(err))
	}
	if len(st.uploads) != 0 || len(st.alerts) != 0 {
		t.Fatalf("durable rows written: uploads=%d alerts=%d", len(st.uploads), len(st.alerts))
	}
	if p.Registry.Len() != 0 {
		t.Fatal("registry entry created before record")
	}
}

func TestUploadProbeFailureLeavesNoTrace(t *testing.T) {
	st := newFakeStore()
	p, _ := newTestPipeline(st, &fakeEngine{}, fakeProber{err: errors.New("moov atom not found")})

	_, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner: 7, Username: "lillie", OriginalName: "x.mp4", SourcePath: "uploads/staged.mp4",
	})
	if KindOf(err) != KindProbe {
		t.Fatalf("kind = %v, want probe", KindOf(err))
	}
	if len(st.uploads) != 0 || len(st.alerts) != 0 {
		t.Fatal("durable rows written before record creation")
	}
}

func TestUploadInsertFailureAlertKeyedByName(t *testing.T) {
	st := newFakeStore()
	st.failCreate = true
	p, _ := newTestPipeline(st, &fakeEngine{}, fakeProber{info: &media.Info{Duration: 30}})

	_, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner: 7, Username: "lillie", OriginalName: "2023-01-15 10-30-45-123.mp4", SourcePath: "uploads/s.mp4",
	})
	if KindOf(err) != KindPersistence {
		t.Fatalf("kind = %v, want persistence", KindOf(err))
	}
	if len(st.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(st.alerts))
	}
	a := st.alerts[0]
	if a.Type != store.AlertError || a.UploadID != nil || a.UploadName != "2023.01.15-10.30.45123" {
		t.Fatalf("alert = %+v, want error keyed by upload name", a)
	}
}

func TestTranscodeFailure(t *testing.T) {
	st := newFakeStore()
	eng := &fakeEngine{encodeErr: errors.New("encoding failed (code 1)")}
	p, n := newTestPipeline(st, eng, fakeProber{info: &media.Info{Duration: 60}})

	job, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner: 7, Username: "lillie", OriginalName: "x.mp4", SourcePath: "uploads/s.mp4",
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	err = p.Process(context.Background(), job)
	if KindOf(err) != KindTranscode {
		t.Fatalf("kind = %v, want transcode", KindOf(err))
	}

	if got := alertTypes(st); len(got) != 2 || got[1] != store.AlertError {
		t.Fatalf("alerts = %v, want [processing error]", got)
	}
	if a := st.alerts[1]; a.UploadID == nil || *a.UploadID != job.ID() {
		t.Fatal("error alert must be keyed by record id")
	}
	if st.uploads[0].Finished {
		t.Fatal("failed job must not be finished")
	}
	if eng.frames != 0 {
		t.Fatal("no thumbnail on failure")
	}
	if len(n.messages) != 0 {
		t.Fatal("no notification on failure")
	}
}

func TestTranscodeFailureRemovesStagedSource(t *testing.T) {
	staged := filepath.Join(t.TempDir(), "staged.mp4")
	if err := os.WriteFile(staged, []byte("not really video"), 0o644); err != nil {
		t.Fatal(err)
	}

	st := newFakeStore()
	eng := &fakeEngine{encodeErr: errors.New("encoding failed (code 1)")}
	p, _ := newTestPipeline(st, eng, fakeProber{info: &media.Info{Duration: 60}})

	job, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner: 7, Username: "lillie", OriginalName: "x.mp4", SourcePath: staged,
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := p.Process(context.Background(), job); KindOf(err) != KindTranscode {
		t.Fatalf("kind = %v, want transcode", KindOf(err))
	}

	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("staged source still present after failure: %v", err)
	}
}

func TestFinalizeNoRowUpdated(t *testing.T) {
	st := newFakeStore()
	st.finishRows = 0
	p, n := newTestPipeline(st, &fakeEngine{}, fakeProber{info: &media.Info{Duration: 60}})

	job, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner: 7, Username: "lillie", OriginalName: "x.mp4", SourcePath: "uploads/s.mp4",
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	err = p.Process(context.Background(), job)
	if KindOf(err) != KindPersistence {
		t.Fatalf("kind = %v, want persistence", KindOf(err))
	}
	if got := alertTypes(st); got[len(got)-1] != store.AlertError {
		t.Fatalf("alerts = %v, want trailing error", got)
	}
	if len(n.messages) != 0 {
		t.Fatal("no notification on failure")
	}
}

func TestThumbnailFailureKeepsFinished(t *testing.T) {
	st := newFakeStore()
	eng := &fakeEngine{frameErr: errors.New("png encoder exploded")}
	p, n := newTestPipeline(st, eng, fakeProber{info: &media.Info{Duration: 60}})

	job, err := p.PrepareUpload(context.Background(), UploadRequest{
		Owner: 7, Username: "lillie", OriginalName: "x.mp4", SourcePath: "uploads/s.mp4",
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	err = p.Process(context.Background(), job)
	if KindOf(err) != KindThumbnail {
		t.Fatalf("kind = %v, want thumbnail", KindOf(err))
	}
	if !st.uploads[0].Finished {
		t.Fatal("thumbnail failure must not revert finished")
	}
	if got := alertTypes(st); fmt.Sprint(got) != "[processing finished error]" {
		t.Fatalf("alerts = %v", got)
	}
	if len(n.messages) != 0 {
		t.Fatal("no notification after thumbnail failure")
	}
}

func TestEditRejectsForeignOrUnfinishedClip(t *testing.T) {
	st := newFakeStore()
	st.uploads = []*store.Upload{
		{ID: 1, File: "a.mp4", Owner: 1, Title: "a", Finished: true},
		{ID: 2, File: "b.mp4", Owner: 7, Title: "b", Finished: false},
	}
	p, _ := newTestPipeline(st, &fakeEngine{}, fakeProber{info: &media.Info{Duration: 60}})

	for _, clip := range []uint{1, 2, 99} {
		_, err := p.PrepareEdit(context.Background(), EditRequest{
			Owner: 7, Username: "lillie", ClipID: clip,
		})
		if KindOf(err) != KindValidation {
			t.Fatalf("clip %d: kind = %v, want validation", clip, KindOf(err))
		}
	}
	if len(st.uploads) != 2 || len(st.alerts) != 0 {
		t.Fatal("rejection must not create durable state")
	}
}

func TestEditHappyPath(t *testing.T) {
	st := newFakeStore()
	st.uploads = []*store.Upload{
		{ID: 1, File: "2023.01.15-10.30.45123", Owner: 7, Title: "ranked clutch", Tag: "ranked", Finished: true},
	}
	eng := &fakeEngine{elapsed: []float64{1, 2}}
	p, n := newTestPipeline(st, eng, fakeProber{info: &media.Info{Duration: 60, Width: 1920, Height: 1080}})

	job, err := p.PrepareEdit(context.Background(), EditRequest{
		Owner: 7, Username: "lillie", ClipID: 1, Seek: "5", To: "9",
	})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if job.Title() != "ranked clutch" {
		t.Fatalf("title = %q", job.Title())
	}

	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}

	child, err := st.UploadByID(job.ID())
	if err != nil {
		t.Fatalf("child record: %v", err)
	}
	if child.Edited == nil || *child.Edited != 1 {
		t.Fatalf("edited = %v, want parent id 1", child.Edited)
	}
	if !child.Finished {
		t.Fatal("child not finished")
	}

	enc := eng.jobs[0]
	if enc.Trim == nil || enc.Trim.Seek != "5" || enc.Trim.To != "9" {
		t.Fatalf("trim = %+v", enc.Trim)
	}
	if enc.Input != "processed/2023.01.15-10.30.45123" {
		t.Fatalf("input = %q, want parent processed file", enc.Input)
	}

	// Trim duration is 4s, so 2s elapsed is 50%.
	snap := p.Registry.Get(job.ID()).Snapshot()
	if snap.Duration == nil || *snap.Duration != 4 {
		t.Fatalf("duration = %v, want 4", snap.Duration)
	}
	if len(n.messages) != 1 || !strings.Contains(n.messages[0], "trimmed a clip") {
		t.Fatalf("notifications = %v, want one trim message", n.messages)
	}
}

func TestTrimmedDuration(t *testing.T) {
	cases := []struct {
		source   float64
		seek, to string
		want     float64
	}{
		{60, "", "", 60},
		{60, "10", "", 50},
		{60, "10", "25", 15},
		{60, "0:30", "0:45", 15},
		{60, "10", "500", 50},
		{60, "50", "10", 0},
		{0, "10", "", 0},
		{60, "bogus", "", 0},
	}
	for _, tc := range cases {
		if got := trimmedDuration(tc.source, tc.seek, tc.to); got != tc.want {
			t.Errorf("trimmedDuration(%v, %q, %q) = %v, want %v", tc.source, tc.seek, tc.to, got, tc.want)
		}
	}
}
