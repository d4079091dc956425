package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/identity"
)

// fakeSource serves a fixed list of frames and then fails every read.
type fakeSource struct {
	mu     sync.Mutex
	frames []image.Image
	closed bool
}

func newFakeSource(n int) *fakeSource {
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = image.NewRGBA(image.Rect(0, 0, 64, 48))
	}
	return &fakeSource{frames: frames}
}

func (s *fakeSource) ReadFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, errors.New("stream exhausted")
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeDetector counts calls and returns a canned detection set.
type fakeDetector struct {
	calls      atomic.Int64
	detections []detect.Detection
	err        error
}

func (d *fakeDetector) Detect(_ context.Context, _ image.Image) ([]detect.Detection, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.detections, nil
}

func testConfig() Config {
	return Config{
		MaxFailures: 100, // keep retrying, tests stop the driver explicitly
		RetryDelay:  5 * time.Millisecond,
		ReinitDelay: 5 * time.Millisecond,
		Width:       64,
		Height:      48,
	}
}

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestDriver_ProcessesEveryOtherFrame(t *testing.T) {
	source := newFakeSource(4)
	detector := &fakeDetector{detections: []detect.Detection{
		{BBox: image.Rect(10, 10, 30, 30), Embedding: []float32{1, 0}, Score: 0.9},
	}}
	tracker := identity.NewTracker(identity.NewTable(), identity.DefaultTrackerConfig())

	driver := NewDriver(func() (Source, error) { return source, nil }, detector, tracker, testConfig())
	driver.Start()
	defer driver.Stop()

	waitFor(t, func() bool { return driver.Status().FramesRead == 4 }, "all frames read")
	waitFor(t, func() bool { return driver.Status().FramesProcessed == 2 }, "every other frame processed")

	if got := detector.calls.Load(); got != 2 {
		t.Errorf("expected 2 detection calls, got %d", got)
	}

	// The detection reached the tracker as a provisional identity.
	_, provisional := tracker.Table().Counts()
	if provisional != 1 {
		t.Errorf("expected 1 provisional from the pipeline, got %d", provisional)
	}

	if driver.LatestFrame() == nil || driver.LatestProcessedFrame() == nil {
		t.Error("expected latest frame slots populated")
	}
}

func TestDriver_DetectionFailureIsolatedToFrame(t *testing.T) {
	source := newFakeSource(4)
	detector := &fakeDetector{err: errors.New("model offline")}
	tracker := identity.NewTracker(identity.NewTable(), identity.DefaultTrackerConfig())

	driver := NewDriver(func() (Source, error) { return source, nil }, detector, tracker, testConfig())
	driver.Start()
	defer driver.Stop()

	waitFor(t, func() bool { return driver.Status().FramesRead == 4 }, "all frames read")

	status := driver.Status()
	if status.FramesProcessed != 0 {
		t.Errorf("expected no processed frames, got %d", status.FramesProcessed)
	}
	if !status.Available {
		t.Error("expected pipeline to stay available despite detection failures")
	}

	known, provisional := tracker.Table().Counts()
	if known != 0 || provisional != 0 {
		t.Error("expected nothing to reach the table when detection fails")
	}
}

func TestDriver_ReleasesSourceAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFailures = 2

	first := newFakeSource(1)
	second := newFakeSource(1)
	var opens atomic.Int64
	open := func() (Source, error) {
		switch opens.Add(1) {
		case 1:
			return first, nil
		default:
			return second, nil
		}
	}

	detector := &fakeDetector{}
	tracker := identity.NewTracker(identity.NewTable(), identity.DefaultTrackerConfig())

	driver := NewDriver(open, detector, tracker, cfg)
	driver.Start()
	defer driver.Stop()

	// First source delivers one frame, then fails until it gets released
	// and the second source takes over.
	waitFor(t, func() bool { return driver.Status().FramesRead == 2 }, "frame from the reopened source")

	first.mu.Lock()
	closed := first.closed
	first.mu.Unlock()
	if !closed {
		t.Error("expected the failing source to be closed")
	}
	if opens.Load() < 2 {
		t.Errorf("expected the source to be reopened, got %d opens", opens.Load())
	}
}

func TestDriver_PlaceholderWhileUnavailable(t *testing.T) {
	open := func() (Source, error) { return nil, errors.New("camera unplugged") }
	detector := &fakeDetector{}
	tracker := identity.NewTracker(identity.NewTable(), identity.DefaultTrackerConfig())

	driver := NewDriver(open, detector, tracker, testConfig())
	driver.Start()
	defer driver.Stop()

	waitFor(t, func() bool { return driver.Status().LastError != "" }, "unavailable status")

	status := driver.Status()
	if status.Available {
		t.Error("expected pipeline unavailable")
	}
	if status.LastError != "camera unplugged" {
		t.Errorf("unexpected last error %q", status.LastError)
	}

	frame := driver.LatestFrame()
	if frame == nil {
		t.Fatal("expected a placeholder frame")
	}
	if b := frame.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("expected 64x48 placeholder, got %v", b)
	}
}

func TestDriver_StopJoinsLoop(t *testing.T) {
	source := newFakeSource(0) // fails immediately, loop sits in retry sleeps
	detector := &fakeDetector{}
	tracker := identity.NewTracker(identity.NewTable(), identity.DefaultTrackerConfig())

	driver := NewDriver(func() (Source, error) { return source, nil }, detector, tracker, testConfig())
	driver.Start()

	done := make(chan struct{})
	go func() {
		driver.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not join the capture loop")
	}

	source.mu.Lock()
	closed := source.closed
	source.mu.Unlock()
	if !closed {
		t.Error("expected the source released on stop")
	}
}
