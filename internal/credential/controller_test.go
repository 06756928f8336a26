package credential

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/youruser/emsapp/internal/employees"
)

// gatedGenerator blocks each run until release is closed. Batch runs report
// the first page before blocking.
type gatedGenerator struct {
	release chan struct{}
	started chan struct{}
	err     error
}

func newGated() *gatedGenerator {
	return &gatedGenerator{release: make(chan struct{}), started: make(chan struct{}, 1)}
}

func (g *gatedGenerator) GenerateOne(ctx context.Context, e employees.Employee) (*Artifact, error) {
	g.started <- struct{}{}
	<-g.release
	if g.err != nil {
		return nil, g.err
	}
	return newArtifact(SingleFilename(e.RUT), []byte("%PDF"), []Page{{EmployeeID: e.ID, NationalID: e.RUT}}), nil
}

func (g *gatedGenerator) GenerateBatch(ctx context.Context, list []employees.Employee, onProgress ProgressFunc) (*Artifact, error) {
	onProgress(1, len(list))
	g.started <- struct{}{}
	<-g.release
	if g.err != nil {
		return nil, g.err
	}
	pages := make([]Page, 0, len(list))
	for i, e := range list {
		if i > 0 {
			onProgress(i+1, len(list))
		}
		pages = append(pages, Page{EmployeeID: e.ID, NationalID: e.RUT})
	}
	return newArtifact(BatchFilename, []byte("%PDF"), pages), nil
}

type recordingSink struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *recordingSink) Deliver(ctx context.Context, a *Artifact) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, a.Filename)
	if s.err != nil {
		return Receipt{}, s.err
	}
	return Receipt{ID: "d1", Filename: a.Filename, URL: "/dl/d1", Pages: a.PageCount()}, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func waitStarted(t *testing.T, g *gatedGenerator) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		t.Fatal("generator not started")
	}
}

func TestControllerSingleRun(t *testing.T) {
	gen := newGated()
	sink := &recordingSink{}
	c := NewController(gen, sink, quietLogger())

	done, err := c.Start(context.Background(), Single(staff()[0]))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, gen)
	if st := c.State(); st.Phase != PhaseRunning || st.Progress != nil {
		t.Errorf("running state = %+v", st)
	}
	if _, err := c.Start(context.Background(), Single(staff()[1])); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start: %v, want ErrBusy", err)
	}
	if c.Acknowledge() {
		t.Error("Acknowledge succeeded while running")
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	want := State{
		Phase:    PhaseSucceeded,
		Download: &Receipt{ID: "d1", Filename: "credential-12345678-9.pdf", URL: "/dl/d1", Pages: 1},
	}
	if diff := cmp.Diff(want, c.State()); diff != "" {
		t.Errorf("state (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"credential-12345678-9.pdf"}, sink.calls); diff != "" {
		t.Errorf("deliveries (-want +got):\n%s", diff)
	}
	if !c.Delivered("e1") || c.Delivered("e2") {
		t.Error("delivered markers wrong")
	}
	if !c.Acknowledge() || c.State().Phase != PhaseIdle {
		t.Errorf("after Acknowledge: %+v", c.State())
	}
}

func TestControllerBatchProgress(t *testing.T) {
	gen := newGated()
	c := NewController(gen, &recordingSink{}, quietLogger())
	done, err := c.Start(context.Background(), Batch(staff()))
	if err != nil {
		t.Fatal(err)
	}
	waitStarted(t, gen)

	st := c.State()
	if st.Progress == nil || *st.Progress != (Progress{Current: 1, Total: 3}) || st.Progress.Percent() != 33 {
		t.Errorf("progress = %+v", st.Progress)
	}
	// a stale update never moves progress backwards
	c.setProgress(0, 3)
	if got := c.State().Progress.Current; got != 1 {
		t.Errorf("progress regressed to %d", got)
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	st = c.State()
	if st.Phase != PhaseSucceeded || st.Progress != nil || st.Download.Pages != 3 {
		t.Errorf("final state = %+v", st)
	}
}

func TestControllerGenerationFailure(t *testing.T) {
	gen := newGated()
	gen.err = &InvalidInputError{Reason: "no employees selected", Index: -1}
	close(gen.release)
	sink := &recordingSink{}
	c := NewController(gen, sink, quietLogger())

	err := c.Run(context.Background(), Batch(staff()))
	if Classify(err) != CodeInvalidInput {
		t.Fatalf("err = %v", err)
	}
	<-gen.started
	st := c.State()
	if st.Phase != PhaseFailed || st.Code != CodeInvalidInput || st.Error == "" {
		t.Errorf("state = %+v", st)
	}
	if len(sink.calls) != 0 {
		t.Error("failed run delivered an artifact")
	}

	// a new run from failed starts over
	gen.err = nil
	gen.started = make(chan struct{}, 1)
	if err := c.Run(context.Background(), Single(staff()[0])); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if c.State().Phase != PhaseSucceeded {
		t.Errorf("rerun state = %+v", c.State())
	}
}

func TestControllerDeliveryFailure(t *testing.T) {
	gen := newGated()
	close(gen.release)
	sink := &recordingSink{err: errors.New("disk full")}
	c := NewController(gen, sink, quietLogger())

	err := c.Run(context.Background(), Single(staff()[0]))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("err = %v, want *IOError", err)
	}
	st := c.State()
	if st.Phase != PhaseFailed || st.Code != CodeIO {
		t.Errorf("state = %+v", st)
	}
	if len(sink.calls) != 1 {
		t.Errorf("deliver called %d times", len(sink.calls))
	}
	if c.Delivered("e1") {
		t.Error("failed delivery marked as delivered")
	}
}

func TestControllerSingleNeedsOneEmployee(t *testing.T) {
	c := NewController(newGated(), &recordingSink{}, quietLogger())
	_, err := c.Start(context.Background(), Request{Employees: staff()})
	var inErr *InvalidInputError
	if !errors.As(err, &inErr) {
		t.Fatalf("err = %v", err)
	}
	if c.State().Phase != PhaseIdle {
		t.Errorf("phase = %s", c.State().Phase)
	}
}
