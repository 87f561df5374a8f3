package handlers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job kinds. At most one job of each kind may run at a time.
const (
	JobKindScan   = "scan"
	JobKindExport = "export"
)

const eventChannelBuffer = 100

// ErrJobActive is returned when a job of the same kind is already running.
var ErrJobActive = errors.New("a job of this kind is already running")

// Job represents one async scan or export run.
type Job struct {
	EventBroadcaster

	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Done        int        `json:"done"`
	Total       int        `json:"total"`
	Current     string     `json:"current,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
}

// GetStatus returns the current job status (implements SSEJob).
func (j *Job) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the job.
func (j *Job) Cancel() {
	j.EventBroadcaster.Cancel()
	j.mu.Lock()
	j.Status = JobStatusCancelled
	now := time.Now()
	j.CompletedAt = &now
	j.mu.Unlock()
}

// setRunning transitions the job to running and announces it.
func (j *Job) setRunning() {
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "started", Message: j.Kind + " job started"})
}

// updateProgress records per-file progress and broadcasts it.
func (j *Job) updateProgress(done, total int, current string) {
	j.mu.Lock()
	j.Done = done
	j.Total = total
	j.Current = current
	if total > 0 {
		j.Progress = done * 100 / total
	}
	j.mu.Unlock()
	j.SendEvent(JobEvent{
		Type: "progress",
		Data: map[string]any{"done": done, "total": total, "current": current},
	})
}

// complete marks the job finished and attaches its result.
func (j *Job) complete(result any) {
	j.mu.Lock()
	j.Status = JobStatusCompleted
	j.Result = result
	j.Progress = 100
	now := time.Now()
	j.CompletedAt = &now
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "completed", Data: result})
}

// markCancelled records that the underlying run observed the cancellation.
func (j *Job) markCancelled(result any) {
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.Result = result
	now := time.Now()
	j.CompletedAt = &now
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "cancelled", Data: result})
}

// fail marks the job failed with an error message.
func (j *Job) fail(message string) {
	j.mu.Lock()
	j.Status = JobStatusFailed
	j.Error = message
	now := time.Now()
	j.CompletedAt = &now
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "error", Message: message})
}

// isTerminal reports whether the status is a final state.
func isTerminal(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, eventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async jobs and enforces the one-run-per-kind rule.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// CreateJob registers a new job of the given kind. It fails with
// ErrJobActive while another job of the same kind is not yet terminal.
func (m *JobManager) CreateJob(id, kind string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Kind == kind && !isTerminal(job.GetStatus()) {
			return nil, ErrJobActive
		}
	}

	job := &Job{
		ID:        id,
		Kind:      kind,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	m.jobs[id] = job
	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
