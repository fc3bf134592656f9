package monitorService

import (
	"MineGuard/internal/api/monitor"
	"MineGuard/internal/entity"
	contextPkg "MineGuard/pkg/context"
	"MineGuard/pkg/utils"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type session struct {
	id        string
	location  string
	interval  time.Duration
	startedAt time.Time

	holder *frameHolder
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex // guards state
	state compliance

	watcherMu sync.RWMutex
	watchers  map[chan entity.SessionEvent]struct{}

	framesReceived   atomic.Uint64
	ticksSampled     atomic.Uint64
	ticksIdle        atomic.Uint64
	verdicts         atomic.Uint64
	violations       atomic.Uint64
	classifierErrors atomic.Uint64
	storageErrors    atomic.Uint64

	stopped bool // guarded by monitorService.mu
}

func (sess *session) snapshot() entity.MonitorSession {
	sess.mu.Lock()
	state := sess.state.State()
	sess.mu.Unlock()

	return entity.MonitorSession{
		ID:         sess.id,
		Location:   sess.location,
		IntervalMs: sess.interval.Milliseconds(),
		State:      state,
		Counters: entity.SessionCounters{
			FramesReceived:   sess.framesReceived.Load(),
			TicksSampled:     sess.ticksSampled.Load(),
			TicksIdle:        sess.ticksIdle.Load(),
			Verdicts:         sess.verdicts.Load(),
			Violations:       sess.violations.Load(),
			ClassifierErrors: sess.classifierErrors.Load(),
			StorageErrors:    sess.storageErrors.Load(),
		},
		StartedAt: sess.startedAt,
	}
}

func (s *monitorService) StartSession(c context.Context, req monitor.StartSessionRequest) (entity.MonitorSession, error) {
	requestID := contextPkg.GetRequestID(c)

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate session id")
		return entity.MonitorSession{}, err
	}

	interval := s.sampleInterval
	if req.IntervalMs > 0 {
		interval = time.Duration(req.IntervalMs) * time.Millisecond
	}

	location := req.Location
	if location == "" {
		location = s.location
	}

	// The loop outlives the start request, so it gets its own context.
	loopCtx, cancel := context.WithCancel(context.Background())

	sess := &session{
		id:        id,
		location:  location,
		interval:  interval,
		startedAt: time.Now(),
		holder:    &frameHolder{},
		cancel:    cancel,
		done:      make(chan struct{}),
		watchers:  make(map[chan entity.SessionEvent]struct{}),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.metrics.ActiveSessions.Store(uint64(len(s.sessions)))
	s.mu.Unlock()

	go s.runLoop(loopCtx, sess)

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": id,
		"location":   location,
		"interval":   interval.String(),
	}).Info("Monitoring session started")

	return sess.snapshot(), nil
}

func (s *monitorService) StopSession(c context.Context, id string) error {
	requestID := contextPkg.GetRequestID(c)

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return monitor.ErrSessionNotFound
	}
	if sess.stopped {
		s.mu.Unlock()
		return monitor.ErrSessionAlreadyStopped
	}
	sess.stopped = true
	s.mu.Unlock()

	sess.cancel()
	<-sess.done

	s.mu.Lock()
	delete(s.sessions, id)
	s.metrics.ActiveSessions.Store(uint64(len(s.sessions)))
	s.mu.Unlock()

	// The loop is down, so no publish can race these closes.
	sess.watcherMu.Lock()
	for watcher := range sess.watchers {
		delete(sess.watchers, watcher)
		close(watcher)
	}
	sess.watcherMu.Unlock()

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": id,
	}).Info("Monitoring session stopped")

	return nil
}

func (s *monitorService) GetSession(c context.Context, id string) (entity.MonitorSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return entity.MonitorSession{}, monitor.ErrSessionNotFound
	}

	return sess.snapshot(), nil
}

func (s *monitorService) SubmitFrame(c context.Context, id string, frame []byte) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	stopped := ok && sess.stopped
	s.mu.RUnlock()

	if !ok {
		return monitor.ErrSessionNotFound
	}
	if stopped {
		return monitor.ErrSessionAlreadyStopped
	}

	if err := s.utils.ValidateFrame(frame); err != nil {
		if errors.Is(err, utils.ErrFrameTooLarge) {
			return monitor.ErrFrameTooLarge
		}
		return monitor.ErrInvalidFrame
	}

	sess.holder.Put(frame)
	sess.framesReceived.Add(1)
	s.metrics.FramesReceived.Add(1)

	return nil
}

func (s *monitorService) AddWatcher(id string) (chan entity.SessionEvent, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	stopped := ok && sess.stopped
	s.mu.RUnlock()

	if !ok {
		return nil, monitor.ErrSessionNotFound
	}
	if stopped {
		return nil, monitor.ErrSessionAlreadyStopped
	}

	watcher := make(chan entity.SessionEvent, watcherBuffer)

	sess.watcherMu.Lock()
	sess.watchers[watcher] = struct{}{}
	sess.watcherMu.Unlock()

	// Re-check after registering: if the stop ran its close pass between
	// our check and the insert, this watcher would stay open forever.
	s.mu.RLock()
	stopped = sess.stopped
	s.mu.RUnlock()
	if stopped {
		s.RemoveWatcher(id, watcher)
		return nil, monitor.ErrSessionAlreadyStopped
	}

	return watcher, nil
}

func (s *monitorService) RemoveWatcher(id string, watcher chan entity.SessionEvent) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return
	}

	sess.watcherMu.Lock()
	if _, present := sess.watchers[watcher]; present {
		delete(sess.watchers, watcher)
		close(watcher)
	}
	sess.watcherMu.Unlock()
}

func (s *monitorService) StopAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.StopSession(context.Background(), id); err != nil {
			s.log.WithFields(logrus.Fields{
				"session_id": id,
				"error":      err.Error(),
			}).Warn("Failed to stop session during shutdown")
		}
	}
}

func (s *monitorService) publish(sess *session, ev entity.SessionEvent) {
	sess.watcherMu.RLock()
	defer sess.watcherMu.RUnlock()

	for watcher := range sess.watchers {
		select {
		case watcher <- ev:
		default:
			// A slow viewer loses events rather than stalling the loop.
			s.metrics.WatcherDrops.Add(1)
		}
	}
}

// runLoop is the per-session sampler. Every verdict for the session flows
// through this one goroutine, so the state machine sees them in sampling
// order. time.Ticker coalesces missed ticks, which caps the backlog at one
// pending tick when the classifier is slow.
func (s *monitorService) runLoop(ctx context.Context, sess *session) {
	defer func() {
		sess.mu.Lock()
		granted := sess.state.granted
		sess.mu.Unlock()
		if granted {
			s.metrics.AccessGranted.Add(^uint64(0))
		}
		close(sess.done)
	}()

	c := contextPkg.WithSessionID(ctx, sess.id)

	ticker := time.NewTicker(sess.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleTick(c, sess)
		}
	}
}

func (s *monitorService) sampleTick(c context.Context, sess *session) {
	frame, ok := sess.holder.Take()
	if !ok {
		sess.ticksIdle.Add(1)
		s.metrics.TicksIdle.Add(1)
		return
	}

	sess.ticksSampled.Add(1)
	s.metrics.TicksSampled.Add(1)

	tickCtx, cancel := context.WithTimeout(c, tickTimeout)
	defer cancel()

	det, err := s.detectionService.ProcessFrame(tickCtx, sess.id, sess.location, frame)
	if err != nil {
		sess.classifierErrors.Add(1)
		s.log.WithFields(logrus.Fields{
			"session_id": sess.id,
			"error":      err.Error(),
		}).Warn("Tick degraded, classifier unavailable")
		s.publish(sess, entity.SessionEvent{
			Type:      entity.SessionEventDegraded,
			SessionID: sess.id,
			Reason:    "classifier unavailable",
			At:        time.Now(),
		})
		return
	}

	sess.verdicts.Add(1)
	if det.IsViolation() {
		sess.violations.Add(1)
	}

	sess.mu.Lock()
	edge, changed := sess.state.Apply(det)
	sess.mu.Unlock()

	s.publish(sess, entity.SessionEvent{
		Type:      entity.SessionEventVerdict,
		SessionID: sess.id,
		Detection: &det,
		At:        det.CapturedAt,
	})

	// Access state moves before persistence: the gate signal must never
	// wait on storage.
	if changed {
		if edge == entity.SessionEventGranted {
			s.metrics.AccessGranted.Add(1)
		} else {
			s.metrics.AccessGranted.Add(^uint64(0))
		}

		s.log.WithFields(logrus.Fields{
			"session_id": sess.id,
			"event":      edge,
			"confidence": det.Confidence,
		}).Info("Access state changed")

		s.publish(sess, entity.SessionEvent{
			Type:      edge,
			SessionID: sess.id,
			Detection: &det,
			At:        det.CapturedAt,
		})
	}

	if _, err := s.detectionService.SaveDetection(tickCtx, det, frame); err != nil {
		sess.storageErrors.Add(1)
		s.log.WithFields(logrus.Fields{
			"session_id":   sess.id,
			"detection_id": det.ID,
			"error":        err.Error(),
		}).Warn("Verdict could not be persisted")
		s.publish(sess, entity.SessionEvent{
			Type:      entity.SessionEventDegraded,
			SessionID: sess.id,
			Reason:    "detection could not be stored",
			At:        time.Now(),
		})
	}
}
