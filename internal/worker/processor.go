package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/youruser/emsapp/internal/artifacts"
	"github.com/youruser/emsapp/internal/batch"
	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/employees"
	"github.com/youruser/emsapp/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	employees employees.Store
	gen       credential.Generator
	store     artifacts.Store
	logger    *log.Logger
}

func NewProcessor(emps employees.Store, gen credential.Generator, store artifacts.Store, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{employees: emps, gen: gen, store: store, logger: logger}
}

// Handler registers the batch job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.GenerateBatchTask, p.HandleBatch)
	return mux
}

func (p *Processor) HandleBatch(ctx context.Context, task *asynq.Task) error {
	var payload queue.BatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	failure := func(err error) error {
		p.logger.Printf("job %s failed: %v", payload.JobID, err)
		if credential.Classify(err) == credential.CodeInvalidInput {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	list, err := p.employees.List(ctx)
	if err != nil {
		return failure(err)
	}
	selected, missing := payload.Selection.Resolve(list)
	if len(missing) > 0 {
		return failure(&credential.InvalidInputError{
			Reason: "unknown employees: " + strings.Join(missing, ", "),
			Index:  -1,
		})
	}

	p.logger.Printf("job %s: %s (%d employees)", payload.JobID, payload.Selection.Label(), len(selected))
	progress := func(current, total int) {
		p.logger.Printf("job %s: %d/%d", payload.JobID, current, total)
		writeResult(task, queue.JobResult{Progress: credential.Progress{Current: current, Total: total}})
	}
	art, err := p.gen.GenerateBatch(ctx, selected, progress)
	if err != nil {
		return failure(err)
	}

	key := queue.ArtifactKey(payload.JobID)
	obj := artifacts.Object{
		Key:         key,
		Filename:    art.Filename,
		ContentType: art.ContentType,
		Data:        art.Bytes(),
	}
	if err := p.store.Put(ctx, obj); err != nil {
		return failure(&credential.IOError{Op: "store " + key, Err: err})
	}

	writeResult(task, queue.JobResult{
		Progress: credential.Progress{Current: art.PageCount(), Total: art.PageCount()},
		Key:      key,
		Filename: art.Filename,
		Pages:    art.PageCount(),
		Manifest: batch.ExportManifest(payload.Selection.Label(), art.Pages),
	})
	p.logger.Printf("job %s stored %s (%d pages, %d bytes)", payload.JobID, key, art.PageCount(), art.Size())
	return nil
}

func writeResult(task *asynq.Task, res queue.JobResult) {
	rw := task.ResultWriter()
	if rw == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if _, err := rw.Write(data); err != nil {
		log.Printf("write result for %s: %v", rw.TaskID(), err)
	}
}
