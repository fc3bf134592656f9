package monitorService

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"MineGuard/internal/api/detection"
	"MineGuard/internal/api/monitor"
	"MineGuard/internal/entity"
	"MineGuard/pkg/metrics"
	"MineGuard/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeDetectionEngine struct {
	mu         sync.Mutex
	result     entity.Detection
	processErr error
	saved      []entity.Detection
	saveErr    error
}

func (f *fakeDetectionEngine) setResult(det entity.Detection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = det
	f.processErr = nil
}

func (f *fakeDetectionEngine) setProcessErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processErr = err
}

func (f *fakeDetectionEngine) Evaluate(raw []entity.RawDetection, at time.Time) entity.Detection {
	return entity.Detection{}
}

func (f *fakeDetectionEngine) ProcessFrame(ctx context.Context, sessionID string, location string, frame []byte) (entity.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.processErr != nil {
		return entity.Detection{}, f.processErr
	}
	det := f.result
	det.ID = "01J9ZXDET0000000000000001"
	det.SessionID = sessionID
	det.Location = location
	if det.CapturedAt.IsZero() {
		det.CapturedAt = time.Now()
	}
	return det, nil
}

func (f *fakeDetectionEngine) SaveDetection(ctx context.Context, det entity.Detection, frame []byte) (entity.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return entity.Detection{}, f.saveErr
	}
	f.saved = append(f.saved, det)
	return det, nil
}

func (f *fakeDetectionEngine) GetDetection(ctx context.Context, id string) (entity.Detection, error) {
	return entity.Detection{}, detection.ErrDetectionNotFound
}

func (f *fakeDetectionEngine) ListDetections(ctx context.Context, req detection.ListDetectionsRequest) (detection.ListDetectionsResponse, error) {
	return detection.ListDetectionsResponse{}, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestMonitorService(engine *fakeDetectionEngine) *monitorService {
	return &monitorService{
		log:              testLogger(),
		detectionService: engine,
		utils:            utils.New(),
		metrics:          metrics.New(),
		sampleInterval:   defaultSampleInterval,
		location:         defaultLocation,
		sessions:         make(map[string]*session),
	}
}

func pngFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func recvEvent(t *testing.T, watcher chan entity.SessionEvent) entity.SessionEvent {
	t.Helper()
	select {
	case ev, ok := <-watcher:
		require.True(t, ok, "watcher channel closed while waiting for an event")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session event")
		return entity.SessionEvent{}
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestMonitorService(&fakeDetectionEngine{})
	defer svc.StopAll()

	sess, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{Location: "Pit A", IntervalMs: 25})
	require.NoError(t, err)
	require.Len(t, sess.ID, 26)
	require.Equal(t, "Pit A", sess.Location)
	require.Equal(t, int64(25), sess.IntervalMs)
	require.False(t, sess.State.AccessGranted)

	got, err := svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)

	require.NoError(t, svc.StopSession(context.Background(), sess.ID))

	_, err = svc.GetSession(context.Background(), sess.ID)
	require.ErrorIs(t, err, monitor.ErrSessionNotFound)

	require.ErrorIs(t, svc.StopSession(context.Background(), sess.ID), monitor.ErrSessionNotFound)
}

func TestSessionDefaults(t *testing.T) {
	svc := newTestMonitorService(&fakeDetectionEngine{})
	defer svc.StopAll()

	sess, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{})
	require.NoError(t, err)
	require.Equal(t, defaultLocation, sess.Location)
	require.Equal(t, defaultSampleInterval.Milliseconds(), sess.IntervalMs)
}

func TestUnknownSession(t *testing.T) {
	svc := newTestMonitorService(&fakeDetectionEngine{})

	_, err := svc.GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, monitor.ErrSessionNotFound)

	err = svc.SubmitFrame(context.Background(), "missing", pngFrame(t))
	require.ErrorIs(t, err, monitor.ErrSessionNotFound)

	_, err = svc.AddWatcher("missing")
	require.ErrorIs(t, err, monitor.ErrSessionNotFound)
}

func TestSubmitFrameValidation(t *testing.T) {
	svc := newTestMonitorService(&fakeDetectionEngine{})
	defer svc.StopAll()

	sess, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{IntervalMs: 60000})
	require.NoError(t, err)

	err = svc.SubmitFrame(context.Background(), sess.ID, nil)
	require.ErrorIs(t, err, monitor.ErrInvalidFrame)

	err = svc.SubmitFrame(context.Background(), sess.ID, []byte("not an image"))
	require.ErrorIs(t, err, monitor.ErrInvalidFrame)

	err = svc.SubmitFrame(context.Background(), sess.ID, make([]byte, 6*1024*1024))
	require.ErrorIs(t, err, monitor.ErrFrameTooLarge)

	require.NoError(t, svc.SubmitFrame(context.Background(), sess.ID, pngFrame(t)))
}

func TestSessionEmitsVerdictsAndAccessEdges(t *testing.T) {
	engine := &fakeDetectionEngine{}
	svc := newTestMonitorService(engine)
	defer svc.StopAll()

	sess, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{Location: "Pit A", IntervalMs: 20})
	require.NoError(t, err)

	watcher, err := svc.AddWatcher(sess.ID)
	require.NoError(t, err)

	// A compliant worker: one verdict event, then the grant edge.
	engine.setResult(entity.Detection{HasHelmet: true, Confidence: 0.92})
	require.NoError(t, svc.SubmitFrame(context.Background(), sess.ID, pngFrame(t)))

	ev := recvEvent(t, watcher)
	require.Equal(t, entity.SessionEventVerdict, ev.Type)
	require.Equal(t, sess.ID, ev.SessionID)
	require.NotNil(t, ev.Detection)
	require.True(t, ev.Detection.HasHelmet)

	ev = recvEvent(t, watcher)
	require.Equal(t, entity.SessionEventGranted, ev.Type)

	got, err := svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.True(t, got.State.AccessGranted)

	// The helmet comes off: verdict, then the revoke edge.
	engine.setResult(entity.Detection{HasHelmet: false, Confidence: 0.9})
	require.NoError(t, svc.SubmitFrame(context.Background(), sess.ID, pngFrame(t)))

	ev = recvEvent(t, watcher)
	require.Equal(t, entity.SessionEventVerdict, ev.Type)

	ev = recvEvent(t, watcher)
	require.Equal(t, entity.SessionEventDenied, ev.Type)

	got, err = svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.False(t, got.State.AccessGranted)
	require.GreaterOrEqual(t, got.Counters.Verdicts, uint64(2))
	require.GreaterOrEqual(t, got.Counters.Violations, uint64(1))
}

func TestSessionSignalsDegradedMode(t *testing.T) {
	engine := &fakeDetectionEngine{}
	svc := newTestMonitorService(engine)
	defer svc.StopAll()

	sess, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{IntervalMs: 20})
	require.NoError(t, err)

	watcher, err := svc.AddWatcher(sess.ID)
	require.NoError(t, err)

	engine.setProcessErr(errors.New("detector gone"))
	require.NoError(t, svc.SubmitFrame(context.Background(), sess.ID, pngFrame(t)))

	ev := recvEvent(t, watcher)
	require.Equal(t, entity.SessionEventDegraded, ev.Type)
	require.Equal(t, "classifier unavailable", ev.Reason)
	require.Nil(t, ev.Detection)

	// No verdict means no state movement.
	got, err := svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	require.False(t, got.State.AccessGranted)
	require.GreaterOrEqual(t, got.Counters.ClassifierErrors, uint64(1))
	require.Zero(t, got.Counters.Verdicts)
}

func TestStopSessionClosesWatchers(t *testing.T) {
	svc := newTestMonitorService(&fakeDetectionEngine{})

	sess, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{IntervalMs: 60000})
	require.NoError(t, err)

	watcher, err := svc.AddWatcher(sess.ID)
	require.NoError(t, err)

	require.NoError(t, svc.StopSession(context.Background(), sess.ID))

	select {
	case _, ok := <-watcher:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher channel was not closed on stop")
	}
}

func TestRemoveWatcher(t *testing.T) {
	svc := newTestMonitorService(&fakeDetectionEngine{})
	defer svc.StopAll()

	sess, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{IntervalMs: 60000})
	require.NoError(t, err)

	watcher, err := svc.AddWatcher(sess.ID)
	require.NoError(t, err)

	svc.RemoveWatcher(sess.ID, watcher)

	_, ok := <-watcher
	require.False(t, ok)

	// Removing twice must not panic on a closed channel.
	svc.RemoveWatcher(sess.ID, watcher)
}

func TestStopAll(t *testing.T) {
	svc := newTestMonitorService(&fakeDetectionEngine{})

	first, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{IntervalMs: 60000})
	require.NoError(t, err)
	second, err := svc.StartSession(context.Background(), monitor.StartSessionRequest{IntervalMs: 60000})
	require.NoError(t, err)

	svc.StopAll()

	_, err = svc.GetSession(context.Background(), first.ID)
	require.ErrorIs(t, err, monitor.ErrSessionNotFound)
	_, err = svc.GetSession(context.Background(), second.ID)
	require.ErrorIs(t, err, monitor.ErrSessionNotFound)
}
