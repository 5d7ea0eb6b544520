package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/chalkboard-backend/internal/logger"
	"github.com/yungbote/chalkboard-backend/internal/script"
)

type State string

const (
	StateConnecting State = "CONNECTING"
	StateStreaming  State = "STREAMING"
	StatePaused     State = "PAUSED"
	StateEnded      State = "ENDED"
)

// ErrPauseExpired terminates sessions left paused beyond the
// configured maximum (0 disables the limit).
var ErrPauseExpired = errors.New("playback: paused session expired")

// EventSink receives the session's ordered event stream. The websocket
// handler adapts a connection to this; tests use an in-memory sink.
type EventSink interface {
	WriteEvent(v any) error
}

type Config struct {
	EventDelay      time.Duration
	IncludePractice bool
	MaxPause        time.Duration // 0 = unlimited
}

// Session replays one persisted script to one connection. Sessions
// share nothing but the read-only script; two sessions over the same
// lesson are fully independent.
type Session struct {
	ID   uuid.UUID
	log  *logger.Logger
	sink EventSink
	cfg  Config

	timeline []any

	mu       sync.Mutex
	state    State
	paused   bool
	resumeCh chan struct{}
	cursor   int
}

func NewSession(baseLog *logger.Logger, s *script.Script, sink EventSink, cfg Config) *Session {
	id := uuid.New()
	return &Session{
		ID:       id,
		log:      baseLog.With("component", "PlaybackSession", "session_id", id),
		sink:     sink,
		cfg:      cfg,
		timeline: buildTimeline(s, cfg.IncludePractice),
		state:    StateConnecting,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Pause blocks emission of the next event until Resume. It never
// changes the event sequence, only its timing.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.state == StateEnded {
		return
	}
	s.paused = true
	s.resumeCh = make(chan struct{})
	if s.state == StateStreaming {
		s.state = StatePaused
	}
	s.log.Debug("Playback paused", "cursor", s.cursor)
}

func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	close(s.resumeCh)
	if s.state == StatePaused {
		s.state = StateStreaming
	}
	s.log.Debug("Playback resumed", "cursor", s.cursor)
}

// Run emits the timeline in order with a fixed inter-event delay.
// Client disconnect cancels ctx; no replay position is persisted, a
// reconnect starts over from the beginning.
func (s *Session) Run(ctx context.Context) error {
	s.setState(StateStreaming)
	defer s.setState(StateEnded)

	for i, ev := range s.timeline {
		if i > 0 {
			if err := sleepCtx(ctx, s.cfg.EventDelay); err != nil {
				return err
			}
		}
		if err := s.waitResumed(ctx); err != nil {
			return err
		}
		if err := s.sink.WriteEvent(ev); err != nil {
			return err
		}
		s.mu.Lock()
		s.cursor = i + 1
		s.mu.Unlock()
	}
	return nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) waitResumed(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.paused {
			s.mu.Unlock()
			return nil
		}
		ch := s.resumeCh
		s.mu.Unlock()

		var timer *time.Timer
		var expire <-chan time.Time
		if s.cfg.MaxPause > 0 {
			timer = time.NewTimer(s.cfg.MaxPause)
			expire = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-expire:
			return ErrPauseExpired
		case <-ch:
			if timer != nil {
				timer.Stop()
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
