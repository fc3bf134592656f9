package monitorService

import "sync"

// frameHolder keeps only the newest frame. Ingest never blocks: an
// unconsumed frame is replaced by the next one, and Take hands a frame out
// at most once, so a quiet camera yields idle ticks instead of stale
// verdicts.
type frameHolder struct {
	mu    sync.Mutex
	frame []byte
}

func (f *frameHolder) Put(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = frame
}

func (f *frameHolder) Take() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	frame := f.frame
	f.frame = nil
	return frame, frame != nil
}
