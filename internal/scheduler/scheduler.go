// Package scheduler runs the per-stream monitoring loops. Each monitored
// stream gets one goroutine that periodically pulls a frame analysis from
// the detection pipeline, records progress, and hands suspected accidents
// to the alerting machine. Loops are owned by the scheduler, not by the
// caller that started them.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/collision.report/internal/alerting"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/events"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/timeutil"
	"github.com/banshee-data/collision.report/internal/vision"
)

// defaultScanInterval is used when no interval is configured.
const defaultScanInterval = 5 * time.Second

// ErrAlreadyMonitoring is returned when Start targets a stream that already
// has a monitor loop, either in this process or according to its record.
var ErrAlreadyMonitoring = errors.New("stream is already being monitored")

// Detector yields one detection pass over a stream. *vision.Pipeline
// implements it; tests substitute deterministic fakes.
type Detector interface {
	Detect(streamURL string) (vision.DetectionResult, error)
}

// Scheduler starts and stops monitor loops and keeps at most one loop per
// stream. All methods are safe for concurrent use.
type Scheduler struct {
	db       *db.DB
	detector Detector
	machine  *alerting.Machine
	bus      *events.Bus

	// Clock and Interval are replaceable in tests.
	Clock    timeutil.Clock
	Interval time.Duration

	mu    sync.Mutex
	loops map[string]context.CancelFunc
	wg    sync.WaitGroup
}

// NewScheduler constructs a Scheduler. An interval of zero or less falls
// back to the default scan interval.
func NewScheduler(database *db.DB, detector Detector, machine *alerting.Machine, bus *events.Bus, interval time.Duration) *Scheduler {
	return &Scheduler{
		db:       database,
		detector: detector,
		machine:  machine,
		bus:      bus,
		Clock:    timeutil.RealClock{},
		Interval: interval,
		loops:    make(map[string]context.CancelFunc),
	}
}

// Start begins monitoring a stream: the record is marked active, a monitor
// loop is launched, and stream_started is broadcast. Starting a stream that
// is already monitored returns ErrAlreadyMonitoring.
func (s *Scheduler) Start(ctx context.Context, streamID string) (*db.Stream, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	stream, err := s.db.GetStream(streamID)
	if err != nil {
		return nil, err
	}
	if stream.Monitoring || s.running(streamID) {
		return nil, fmt.Errorf("stream %s: %w", streamID, ErrAlreadyMonitoring)
	}

	if err := s.db.UpdateStreamState(streamID, db.StreamStatusActive, true); err != nil {
		return nil, err
	}

	if !s.launch(streamID) {
		// A concurrent Start won the race for this stream.
		return nil, fmt.Errorf("stream %s: %w", streamID, ErrAlreadyMonitoring)
	}

	stream, err = s.db.GetStream(streamID)
	if err != nil {
		return nil, err
	}

	monitoring.Logf("monitoring started for stream %s (%s)", stream.ID, stream.Name)
	s.bus.Publish(events.StreamEvent(events.KindStreamStarted, stream))

	return stream, nil
}

// Stop ends monitoring for a stream: the record is marked inactive, the
// loop (if any) is cancelled, and stream_stopped is broadcast. Stopping a
// stream that is not monitored is a no-op that still succeeds.
func (s *Scheduler) Stop(ctx context.Context, streamID string) (*db.Stream, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if _, err := s.db.GetStream(streamID); err != nil {
		return nil, err
	}

	if err := s.db.UpdateStreamState(streamID, db.StreamStatusInactive, false); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cancel, ok := s.loops[streamID]; ok {
		cancel()
	}
	s.mu.Unlock()

	stream, err := s.db.GetStream(streamID)
	if err != nil {
		return nil, err
	}

	monitoring.Logf("monitoring stopped for stream %s (%s)", stream.ID, stream.Name)
	s.bus.Publish(events.StreamEvent(events.KindStreamStopped, stream))

	return stream, nil
}

// Resume reattaches monitor loops for streams whose records are still
// marked monitoring, typically after a daemon restart.
func (s *Scheduler) Resume() error {
	streams, err := s.db.GetAllStreams()
	if err != nil {
		return err
	}

	resumed := 0
	for _, stream := range streams {
		if !stream.Monitoring {
			continue
		}
		if s.launch(stream.ID) {
			resumed++
		}
	}
	if resumed > 0 {
		monitoring.Logf("resumed monitoring for %d stream(s)", resumed)
	}
	return nil
}

// StopAll cancels every monitor loop and waits for them to exit. Records
// keep their monitoring flag so Resume can pick the streams back up.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, cancel := range s.loops {
		monitoring.Debugf("cancelling monitor loop for stream %s", id)
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// ActiveLoops reports how many monitor loops are currently running.
func (s *Scheduler) ActiveLoops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}

func (s *Scheduler) running(streamID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[streamID]
	return ok
}

// launch registers and spawns the monitor loop for a stream. It reports
// false when a loop already exists. Loops are parented to the scheduler,
// not the caller: an HTTP request that starts monitoring must not stop it
// by returning.
func (s *Scheduler) launch(streamID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loops[streamID]; ok {
		return false
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.loops[streamID] = cancel
	s.wg.Add(1)
	go s.run(loopCtx, streamID)
	return true
}

// release cancels and forgets a loop once it has exited.
func (s *Scheduler) release(streamID string) {
	s.mu.Lock()
	if cancel, ok := s.loops[streamID]; ok {
		cancel()
		delete(s.loops, streamID)
	}
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context, streamID string) {
	defer s.wg.Done()
	defer s.release(streamID)

	ticker := s.Clock.NewTicker(s.interval())
	defer ticker.Stop()

	monitoring.Debugf("monitor loop running for stream %s", streamID)
	for {
		select {
		case <-ctx.Done():
			monitoring.Debugf("monitor loop for stream %s cancelled", streamID)
			return
		case <-ticker.C():
			if !s.tick(ctx, streamID) {
				return
			}
		}
	}
}

// tick performs one monitoring pass and reports whether the loop should
// keep running.
func (s *Scheduler) tick(ctx context.Context, streamID string) bool {
	stream, err := s.db.GetStream(streamID)
	if errors.Is(err, db.ErrStreamNotFound) {
		// Stream deleted out from under the loop; exit quietly.
		return false
	}
	if err != nil {
		s.fail(streamID, err)
		return false
	}
	if !stream.Monitoring {
		return false
	}

	det, err := s.detect(stream.URL)
	if err != nil {
		s.fail(streamID, err)
		return false
	}

	if err := s.db.MarkStreamProcessed(streamID, s.Clock.Now()); err != nil {
		s.fail(streamID, err)
		return false
	}

	s.bus.Publish(events.DetectionEvent(streamID, &det))

	if det.AccidentDetected {
		if _, err := s.machine.CreatePendingAlert(ctx, streamID, det); err != nil {
			s.fail(streamID, err)
			return false
		}
	}

	return true
}

// detect shields the loop from a panicking detection backend; a panic is
// contained to the one stream as an analysis failure.
func (s *Scheduler) detect(streamURL string) (det vision.DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panic: %v", r)
		}
	}()
	return s.detector.Detect(streamURL)
}

// fail marks the stream errored, stops its monitoring, and announces the
// failure. Persistence errors here are logged and otherwise dropped since
// the loop is exiting anyway.
func (s *Scheduler) fail(streamID string, cause error) {
	monitoring.Logf("monitor failure for stream %s: %v", streamID, cause)

	if err := s.db.UpdateStreamState(streamID, db.StreamStatusError, false); err != nil {
		monitoring.Logf("failed to mark stream %s errored: %v", streamID, err)
	}

	s.bus.Publish(events.ErrorEvent(streamID, cause))
}

func (s *Scheduler) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return defaultScanInterval
}
