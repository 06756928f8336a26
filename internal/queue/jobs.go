package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/youruser/emsapp/internal/batch"
	"github.com/youruser/emsapp/internal/credential"
)

const (
	// GenerateBatchTask renders a credentials document for a selection in
	// the background.
	GenerateBatchTask = "credentials:batch"

	DefaultRetention = 24 * time.Hour
)

var ErrJobNotFound = errors.New("job not found")

type BatchPayload struct {
	JobID     string          `json:"job_id"`
	Selection batch.Selection `json:"selection"`
}

// JobResult is written to the task result while the job runs and once it
// finishes.
type JobResult struct {
	Progress credential.Progress `json:"progress"`
	Key      string              `json:"key,omitempty"`
	Filename string              `json:"filename,omitempty"`
	Pages    int                 `json:"pages,omitempty"`
	Manifest string              `json:"manifest,omitempty"`
}

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

type JobStatus struct {
	ID        string               `json:"id"`
	State     JobState             `json:"state"`
	Selection string               `json:"selection,omitempty"`
	Progress  *credential.Progress `json:"progress,omitempty"`
	Filename  string               `json:"filename,omitempty"`
	Key       string               `json:"key,omitempty"`
	Pages     int                  `json:"pages,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// ArtifactKey is where the worker stores the document for a job.
func ArtifactKey(jobID string) string {
	return fmt.Sprintf("credentials/%s/%s", jobID, credential.BatchFilename)
}

func NewBatchTask(payload BatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(GenerateBatchTask, data), nil
}

// EnqueueBatch schedules a batch job. Jobs are never retried automatically;
// a failed job has to be submitted again.
func EnqueueBatch(ctx context.Context, client *asynq.Client, payload BatchPayload) (*asynq.TaskInfo, error) {
	task, err := NewBatchTask(payload)
	if err != nil {
		return nil, err
	}
	info, err := client.EnqueueContext(ctx, task,
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(0),
		asynq.Retention(DefaultRetention),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue batch task: %w", err)
	}
	return info, nil
}

// Jobs submits batch jobs and reports on them.
type Jobs struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func NewJobs(opt asynq.RedisClientOpt) *Jobs {
	return &Jobs{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     "default",
	}
}

func (j *Jobs) Close() error {
	if err := j.inspector.Close(); err != nil {
		j.client.Close()
		return err
	}
	return j.client.Close()
}

func (j *Jobs) Enqueue(ctx context.Context, sel batch.Selection) (JobStatus, error) {
	payload := BatchPayload{JobID: uuid.NewString(), Selection: sel}
	info, err := EnqueueBatch(ctx, j.client, payload)
	if err != nil {
		return JobStatus{}, err
	}
	return StatusFromInfo(info), nil
}

func (j *Jobs) Status(ctx context.Context, id string) (JobStatus, error) {
	info, err := j.inspector.GetTaskInfo(j.queue, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return JobStatus{}, ErrJobNotFound
		}
		return JobStatus{}, fmt.Errorf("inspect job %s: %w", id, err)
	}
	return StatusFromInfo(info), nil
}

// StatusFromInfo translates asynq's task state into a job status.
func StatusFromInfo(info *asynq.TaskInfo) JobStatus {
	st := JobStatus{ID: info.ID}

	var payload BatchPayload
	if err := json.Unmarshal(info.Payload, &payload); err == nil {
		st.Selection = payload.Selection.Label()
	}
	var res JobResult
	if len(info.Result) > 0 && json.Unmarshal(info.Result, &res) == nil {
		if res.Progress.Total > 0 {
			p := res.Progress
			st.Progress = &p
		}
		st.Filename = res.Filename
		st.Key = res.Key
		st.Pages = res.Pages
	}

	switch info.State {
	case asynq.TaskStateActive:
		st.State = JobRunning
	case asynq.TaskStateCompleted:
		st.State = JobSucceeded
	case asynq.TaskStateArchived:
		st.State = JobFailed
		st.Error = info.LastErr
	case asynq.TaskStateRetry:
		st.State = JobFailed
		st.Error = info.LastErr
	default:
		st.State = JobQueued
	}
	return st
}
