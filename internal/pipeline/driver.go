// Package pipeline runs the continuous capture/detect/track loop.
package pipeline

import (
	"context"
	"image"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/imgutil"
)

// thumbnailPadding is the pixel margin added around detected face boxes
// before cropping thumbnails.
const thumbnailPadding = 20

// Config tunes the capture loop.
type Config struct {
	// MaxFailures is the number of consecutive read failures tolerated
	// before the source is released and reopened.
	MaxFailures int
	RetryDelay  time.Duration // wait between read retries
	ReinitDelay time.Duration // wait before reopening the source
	Width       int           // placeholder frame size
	Height      int
}

// Status describes the pipeline for pollers. The capture device being gone
// is a state, not an error: the pipeline keeps serving a placeholder frame
// and keeps trying to reopen the source.
type Status struct {
	Available       bool   `json:"available"`
	FramesRead      uint64 `json:"frames_read"`
	FramesProcessed uint64 `json:"frames_processed"`
	LastError       string `json:"last_error,omitempty"`
}

// Driver owns the capture source and feeds the identity tracker. One
// long-lived goroutine runs the loop; everything else only reads the
// latest-frame slots and status under the mutex.
type Driver struct {
	open     func() (Source, error)
	detector detect.Detector
	tracker  *identity.Tracker
	cfg      Config

	mu              sync.RWMutex
	latestRaw       image.Image
	latestProcessed image.Image
	available       bool
	framesRead      uint64
	framesProcessed uint64
	lastError       string

	processThis bool // alternating flag, detect on every other frame

	stop chan struct{}
	done chan struct{}
}

// NewDriver creates a pipeline driver. The open function is used for the
// initial connection and every reinitialization after repeated failures.
func NewDriver(open func() (Source, error), detector detect.Detector, tracker *identity.Tracker, cfg Config) *Driver {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.ReinitDelay <= 0 {
		cfg.ReinitDelay = 5 * time.Second
	}
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}

	d := &Driver{
		open:     open,
		detector: detector,
		tracker:  tracker,
		cfg:      cfg,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	d.latestRaw = imgutil.PlaceholderFrame(cfg.Width, cfg.Height)
	d.latestProcessed = d.latestRaw
	return d
}

// Start launches the capture loop.
func (d *Driver) Start() {
	go d.run()
}

// Stop signals the loop and waits for it to finish. The capture source is
// released only after the loop has joined, so no table mutation can still
// be in flight when Stop returns.
func (d *Driver) Stop() {
	close(d.stop)
	<-d.done
}

func (d *Driver) run() {
	defer close(d.done)

	source, err := d.open()
	if err != nil {
		log.Printf("pipeline: opening capture source: %v", err)
		d.setUnavailable(err)
	}
	defer func() {
		if source != nil {
			source.Close()
		}
	}()

	failures := 0
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		if source == nil {
			if !d.sleep(d.cfg.ReinitDelay) {
				return
			}
			if source, err = d.open(); err != nil {
				log.Printf("pipeline: reopening capture source: %v", err)
				d.setUnavailable(err)
				source = nil
			}
			continue
		}

		frame, err := source.ReadFrame()
		if err != nil {
			failures++
			log.Printf("pipeline: frame read failed (%d/%d): %v", failures, d.cfg.MaxFailures, err)
			if failures < d.cfg.MaxFailures {
				if !d.sleep(d.cfg.RetryDelay) {
					return
				}
				continue
			}

			// Too many consecutive failures: release the source and go
			// through the slower reinitialization path.
			source.Close()
			source = nil
			failures = 0
			d.setUnavailable(err)
			continue
		}

		failures = 0
		d.storeRaw(frame)

		// Detection runs on every other successful frame to bound CPU cost.
		d.processThis = !d.processThis
		if !d.processThis {
			continue
		}

		d.processFrame(frame)
	}
}

// processFrame runs detection and hands the observations to the tracker.
// A failing detection is isolated to this frame: nothing reaches the
// identity table and the loop moves on.
func (d *Driver) processFrame(frame image.Image) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	detections, err := d.detector.Detect(ctx, frame)
	if err != nil {
		log.Printf("pipeline: detection failed, skipping frame: %v", err)
		return
	}

	observations := make([]identity.Observation, 0, len(detections))
	for _, det := range detections {
		observations = append(observations, identity.Observation{
			BBox:      det.BBox,
			Embedding: det.Embedding,
			Thumbnail: imgutil.CropFace(frame, det.BBox, thumbnailPadding),
		})
	}

	d.tracker.Track(observations)
	d.storeProcessed(frame)
}

// sleep waits for the duration unless the driver is stopped first.
// Returns false when stopping.
func (d *Driver) sleep(duration time.Duration) bool {
	select {
	case <-d.stop:
		return false
	case <-time.After(duration):
		return true
	}
}

func (d *Driver) storeRaw(frame image.Image) {
	d.mu.Lock()
	d.latestRaw = frame
	d.available = true
	d.framesRead++
	d.lastError = ""
	d.mu.Unlock()
}

func (d *Driver) storeProcessed(frame image.Image) {
	d.mu.Lock()
	d.latestProcessed = frame
	d.framesProcessed++
	d.mu.Unlock()
}

func (d *Driver) setUnavailable(err error) {
	d.mu.Lock()
	d.available = false
	d.latestRaw = imgutil.PlaceholderFrame(d.cfg.Width, d.cfg.Height)
	d.latestProcessed = d.latestRaw
	if err != nil {
		d.lastError = err.Error()
	}
	d.mu.Unlock()
}

// LatestFrame returns the most recent raw frame, or the placeholder while
// the capture source is unavailable.
func (d *Driver) LatestFrame() image.Image {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latestRaw
}

// LatestProcessedFrame returns the most recent frame that went through
// detection.
func (d *Driver) LatestProcessedFrame() image.Image {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latestProcessed
}

// Status reports the current pipeline state.
func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Status{
		Available:       d.available,
		FramesRead:      d.framesRead,
		FramesProcessed: d.framesProcessed,
		LastError:       d.lastError,
	}
}
