package api

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flash-quiz/internal/services"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"

	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusComplete   = "complete"
	FileStatusError      = "error"

	// DefaultJobRetention is how long a finished job stays pollable.
	DefaultJobRetention = time.Hour
)

// GenerationJob tracks an upload that is turned into one deck of questions.
// The frontend polls it until the status is complete or failed.
type GenerationJob struct {
	ID        string                    `json:"jobId"`
	Status    string                    `json:"status"`
	Step      string                    `json:"step,omitempty"`
	Message   string                    `json:"message,omitempty"`
	Current   int                       `json:"current"`
	Total     int                       `json:"total"`
	Percent   int                       `json:"percent"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
	Files     []FileProgress            `json:"files"`
	Result    *services.DocumentsResult `json:"result,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// FileProgress captures per-file extraction state.
type FileProgress struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Characters int    `json:"characters,omitempty"`
	Error      string `json:"error,omitempty"`
}

type JobManager struct {
	mu        sync.RWMutex
	jobs      map[string]*GenerationJob
	retention time.Duration
	now       func() time.Time
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*GenerationJob),
		retention: DefaultJobRetention,
		now:       time.Now,
	}
}

func (m *JobManager) CreateJob(fileNames []string) (string, *GenerationJob) {
	files := make([]FileProgress, len(fileNames))
	for i, name := range fileNames {
		files[i] = FileProgress{
			Index:  i,
			Name:   name,
			Status: FileStatusPending,
		}
	}
	now := m.now().UTC()
	job := &GenerationJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		Total:     100,
		CreatedAt: now,
		UpdatedAt: now,
		Files:     files,
	}

	m.mu.Lock()
	m.sweepLocked(now)
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.ID, job.clone()
}

// Sweep drops complete and failed jobs that have not changed for longer than
// the retention period. Running jobs are never removed.
func (m *JobManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now().UTC())
}

func (m *JobManager) sweepLocked(now time.Time) int {
	removed := 0
	for id, job := range m.jobs {
		if !job.finished() || now.Sub(job.UpdatedAt) < m.retention {
			continue
		}
		delete(m.jobs, id)
		removed++
	}
	return removed
}

func (m *JobManager) GetJob(id string) (*GenerationJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

func (m *JobManager) MarkProcessing(id string) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusProcessing
		job.Message = "Starting"
	})
}

func (m *JobManager) UpdateProgress(id, step, message string, current, total int) {
	m.withJob(id, func(job *GenerationJob) {
		job.Step = step
		job.Message = message
		job.Current = current
		job.Total = total
		job.Percent = percent(current, total)
	})
}

func (m *JobManager) MarkFileStarted(id string, index int) {
	m.withJob(id, func(job *GenerationJob) {
		if file := job.file(index); file != nil {
			file.Status = FileStatusProcessing
			file.Error = ""
		}
	})
}

func (m *JobManager) MarkFileExtracted(id string, index int, characters int) {
	m.withJob(id, func(job *GenerationJob) {
		if file := job.file(index); file != nil {
			file.Status = FileStatusComplete
			file.Characters = characters
		}
	})
}

func (m *JobManager) MarkFileError(id string, index int, message string) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "processing error"
	}
	m.withJob(id, func(job *GenerationJob) {
		if file := job.file(index); file != nil {
			file.Status = FileStatusError
			file.Error = msg
		}
	})
}

func (m *JobManager) MarkCompleted(id string, result *services.DocumentsResult) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusComplete
		job.Step = "complete"
		job.Message = "Processing complete"
		job.Current = 100
		job.Total = 100
		job.Percent = 100
		job.Result = cloneResult(result)
	})
}

// MarkFailed records the failure. A partial result, if any, is kept so the
// client can see which documents were extracted before the error.
func (m *JobManager) MarkFailed(id string, msg string, partial *services.DocumentsResult) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusFailed
		job.Step = "error"
		job.Error = strings.TrimSpace(msg)
		job.Message = job.Error
		job.Result = cloneResult(partial)
	})
}

func (m *JobManager) withJob(id string, fn func(job *GenerationJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = m.now().UTC()
}

func (job *GenerationJob) finished() bool {
	return job.Status == JobStatusComplete || job.Status == JobStatusFailed
}

func (job *GenerationJob) file(index int) *FileProgress {
	if index < 0 || index >= len(job.Files) {
		return nil
	}
	return &job.Files[index]
}

func (job *GenerationJob) clone() *GenerationJob {
	if job == nil {
		return nil
	}
	copyJob := *job
	copyJob.Files = append([]FileProgress(nil), job.Files...)
	copyJob.Result = cloneResult(job.Result)
	return &copyJob
}

func cloneResult(result *services.DocumentsResult) *services.DocumentsResult {
	if result == nil {
		return nil
	}
	res := *result
	res.Documents = append(res.Documents[:0:0], result.Documents...)
	res.Questions = append(res.Questions[:0:0], result.Questions...)
	return &res
}

func percent(current, total int) int {
	if total <= 0 {
		if current <= 0 {
			return 0
		}
		if current > 100 {
			return 100
		}
		return current
	}
	if current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return int((float64(current) / float64(total)) * 100)
}
