package credential

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/youruser/emsapp/internal/employees"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Current * 100 / p.Total
}

// Receipt identifies a delivered artifact, e.g. a one-shot download handle
// or the path a file was written to.
type Receipt struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Pages    int    `json:"pages"`
}

// Deliverer hands a finished artifact to the user. It is called exactly
// once per successful run.
type Deliverer interface {
	Deliver(ctx context.Context, a *Artifact) (Receipt, error)
}

// Generator is the part of *Pipeline the controller drives.
type Generator interface {
	GenerateOne(ctx context.Context, e employees.Employee) (*Artifact, error)
	GenerateBatch(ctx context.Context, list []employees.Employee, onProgress ProgressFunc) (*Artifact, error)
}

type Request struct {
	Employees []employees.Employee
	Batch     bool
}

func Single(e employees.Employee) Request { return Request{Employees: []employees.Employee{e}} }

func Batch(list []employees.Employee) Request { return Request{Employees: list, Batch: true} }

type State struct {
	Phase    Phase     `json:"phase"`
	Progress *Progress `json:"progress,omitempty"`
	Error    string    `json:"error,omitempty"`
	Code     Code      `json:"code,omitempty"`
	Download *Receipt  `json:"download,omitempty"`
}

// Controller runs at most one generation at a time and exposes its state to
// a UI: idle -> running -> succeeded|failed -> idle (on Acknowledge or the
// next Start).
type Controller struct {
	gen    Generator
	sink   Deliverer
	logger *log.Logger

	mu        sync.Mutex
	state     State
	delivered map[string]bool
}

func NewController(gen Generator, sink Deliverer, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		gen:       gen,
		sink:      sink,
		logger:    logger,
		state:     State{Phase: PhaseIdle},
		delivered: map[string]bool{},
	}
}

// Start claims the controller and runs req in the background. The returned
// channel yields the run's error (nil on success) and is then closed.
func (c *Controller) Start(ctx context.Context, req Request) (<-chan error, error) {
	if !req.Batch && len(req.Employees) != 1 {
		return nil, &InvalidInputError{Reason: "a single credential needs exactly one employee", Index: -1}
	}
	c.mu.Lock()
	if c.state.Phase == PhaseRunning {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.state = State{Phase: PhaseRunning}
	if req.Batch {
		c.state.Progress = &Progress{Current: 0, Total: len(req.Employees)}
	}
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- c.run(ctx, req)
		close(done)
	}()
	return done, nil
}

// Run is Start followed by waiting for the result.
func (c *Controller) Run(ctx context.Context, req Request) error {
	done, err := c.Start(ctx, req)
	if err != nil {
		return err
	}
	return <-done
}

func (c *Controller) run(ctx context.Context, req Request) error {
	var (
		art *Artifact
		err error
	)
	if req.Batch {
		art, err = c.gen.GenerateBatch(ctx, req.Employees, c.setProgress)
	} else {
		art, err = c.gen.GenerateOne(ctx, req.Employees[0])
	}
	if err != nil {
		c.fail(err)
		return err
	}

	receipt, err := c.sink.Deliver(ctx, art)
	if err != nil {
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			err = &IOError{Op: "deliver " + art.Filename, Err: err}
		}
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.state = State{Phase: PhaseSucceeded, Download: &receipt}
	for _, p := range art.Pages {
		c.delivered[p.EmployeeID] = true
	}
	c.mu.Unlock()
	c.logger.Printf("credentials: delivered %s (%d pages)", art.Filename, art.PageCount())
	return nil
}

func (c *Controller) setProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != PhaseRunning {
		return
	}
	if c.state.Progress == nil || current > c.state.Progress.Current {
		c.state.Progress = &Progress{Current: current, Total: total}
	}
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.state = State{Phase: PhaseFailed, Error: UserMessage(err), Code: Classify(err)}
	c.mu.Unlock()
	c.logger.Printf("credentials: generation failed: %v", err)
}

// Acknowledge returns a finished controller to idle. It reports false while
// a run is in flight.
func (c *Controller) Acknowledge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == PhaseRunning {
		return false
	}
	c.state = State{Phase: PhaseIdle}
	return true
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.Progress != nil {
		p := *s.Progress
		s.Progress = &p
	}
	if s.Download != nil {
		d := *s.Download
		s.Download = &d
	}
	return s
}

// Delivered reports whether a credential for the employee has been
// delivered since the controller was created.
func (c *Controller) Delivered(employeeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered[employeeID]
}

// DeliveredIDs lists every employee with a delivered credential, sorted.
func (c *Controller) DeliveredIDs() []string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.delivered))
	for id := range c.delivered {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Strings(ids)
	return ids
}
