package encoders

import (
	"sync"
	"time"

	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/cockroachdb/errors"
)

type pendingOp struct {
	bs      *mfx.Bitstream
	payload []byte
	delay   time.Duration
}

// opSession completes encode operations on SyncOperation by copying their
// payload into the bitstream they were submitted with.
type opSession struct {
	mu     sync.Mutex
	next   mfx.SyncPoint
	ops    map[mfx.SyncPoint]pendingOp
	closed bool

	// forced, when set, is returned by every SyncOperation.
	forced  mfx.Status
	onClose func()
}

func newOpSession() *opSession {
	return &opSession{ops: make(map[mfx.SyncPoint]pendingOp)}
}

func (s *opSession) submit(bs *mfx.Bitstream, payload []byte, delay time.Duration) mfx.SyncPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.ops[s.next] = pendingOp{bs: bs, payload: payload, delay: delay}
	return s.next
}

func (s *opSession) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops)
}

func (s *opSession) SyncOperation(sp mfx.SyncPoint, timeout time.Duration) mfx.Status {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return mfx.ErrNotInitialized
	}
	op, ok := s.ops[sp]
	if ok {
		delete(s.ops, sp)
	}
	forced := s.forced
	s.mu.Unlock()

	if !ok {
		return mfx.ErrNullPtr
	}
	if forced != mfx.ErrNone {
		return forced
	}
	if op.delay > timeout {
		time.Sleep(timeout)
		return mfx.WrnInExecution
	}
	if op.delay > 0 {
		time.Sleep(op.delay)
	}
	return op.bs.Append(op.payload)
}

func (s *opSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session already closed")
	}
	s.closed = true
	s.ops = nil
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}
