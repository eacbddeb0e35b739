package services

import (
	"log"
	"sync"
	"time"

	"github.com/lillie/clipd/internal/media"
)

// JobState is the live, in-memory view of one pipeline run, keyed by
// the durable record id. Duration and progress are nil until known;
// progress is never a misleading number.
type JobState struct {
	mu          sync.RWMutex
	File        string
	DisplayName string
	Tag         string
	Width       int
	Height      int
	Process     *media.Process
	CreatedAt   time.Time

	duration *float64
	progress *float64
}

func NewJobState(file, displayName, tag string, width, height int) *JobState {
	return &JobState{
		File:        file,
		DisplayName: displayName,
		Tag:         tag,
		Width:       width,
		Height:      height,
		Process:     &media.Process{},
		CreatedAt:   time.Now(),
	}
}

func (j *JobState) SetDuration(seconds float64) {
	if seconds <= 0 {
		return
	}
	j.mu.Lock()
	j.duration = &seconds
	j.mu.Unlock()
}

// ObserveElapsed records one engine progress event. With a known
// duration the percentage is clamped to [0, 100]; without one the
// progress stays unknown.
func (j *JobState) ObserveElapsed(elapsed float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.duration == nil || *j.duration <= 0 {
		return
	}
	pct := elapsed / *j.duration * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	j.progress = &pct
}

func (j *JobState) SetComplete() {
	full := 100.0
	j.mu.Lock()
	j.progress = &full
	j.mu.Unlock()
}

// JobSnapshot is the read-only view served to operators. Null duration
// or progress means unknown.
type JobSnapshot struct {
	File        string   `json:"file"`
	DisplayName string   `json:"displayName"`
	Tag         string   `json:"tag,omitempty"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Duration    *float64 `json:"duration"`
	Progress    *float64 `json:"progress"`
	Pid         int      `json:"pid,omitempty"`
}

func (j *JobState) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	snap := JobSnapshot{
		File:        j.File,
		DisplayName: j.DisplayName,
		Tag:         j.Tag,
		Width:       j.Width,
		Height:      j.Height,
	}
	if j.duration != nil {
		d := *j.duration
		snap.Duration = &d
	}
	if j.progress != nil {
		p := *j.progress
		snap.Progress = &p
	}
	if j.Process != nil {
		snap.Pid = j.Process.Pid()
	}
	return snap
}

// Registry maps record ids to live job state. Each pipeline instance
// writes only its own entry; operator requests read all of them.
type Registry struct {
	mu   sync.RWMutex
	jobs map[uint]*JobState
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[uint]*JobState)}
}

func (r *Registry) Put(id uint, state *JobState) {
	r.mu.Lock()
	r.jobs[id] = state
	r.mu.Unlock()
}

func (r *Registry) Get(id uint) *JobState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Snapshot returns a point-in-time copy of every live job.
func (r *Registry) Snapshot() map[uint]JobSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint]JobSnapshot, len(r.jobs))
	for id, j := range r.jobs {
		out[id] = j.Snapshot()
	}
	return out
}

// StartExpiry sweeps out entries older than ttl. The pipeline itself
// never removes entries; without this the registry grows for the
// lifetime of the process.
func (r *Registry) StartExpiry(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			now := time.Now()
			r.mu.Lock()
			for id, j := range r.jobs {
				if now.Sub(j.CreatedAt) > ttl {
					delete(r.jobs, id)
					log.Printf("[Registry] Job %d expired", id)
				}
			}
			r.mu.Unlock()
		}
	}()
}
