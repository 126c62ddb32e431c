// Package livesync keeps the assessment store eventually consistent with
// the backend over two concurrent channels: a WebSocket push subscription
// and a fallback poll loop. At most one of each is live system-wide, both
// keyed to the same assessment id.
package livesync

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/metrics"
	"github.com/vibecheck/vibecheck-dash/internal/store"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultListLimit    = 50
	defaultFetchLimit   = 200
)

// Backend is the slice of the API client the tracker depends on.
type Backend interface {
	GetAssessment(ctx context.Context, id string) (api.Assessment, error)
	ListAssessments(ctx context.Context, limit int) ([]api.Assessment, error)
	ListFindings(ctx context.Context, assessmentID string, limit int) ([]api.Finding, error)
	WebSocketURL(assessmentID string) string
}

// Conn is the read side of a push channel connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// DialFunc opens a push channel connection.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// DefaultDial connects over a real WebSocket.
func DefaultDial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options configures a Tracker.
type Options struct {
	Backend            Backend
	Assessments        *store.Assessments
	Findings           *store.Findings
	PollInterval       time.Duration
	FindingsFetchLimit int
	ListLimit          int
	Logger             *slog.Logger
	Dial               DialFunc
}

// Tracker owns at most one live tracking session at a time.
type Tracker struct {
	backend    Backend
	store      *store.Assessments
	findings   *store.Findings
	interval   time.Duration
	fetchLimit int
	listLimit  int
	log        *slog.Logger
	dial       DialFunc
	root       context.Context

	mu   sync.Mutex
	sess *session
}

// session is one tracked assessment: a push subscription plus a poll loop,
// torn down together. The poll loop can stop independently (terminal seen by
// poll) while the push channel stays open.
type session struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	pollCtx  context.Context
	pollStop context.CancelFunc

	mu         sync.Mutex
	conn       Conn
	pushClosed bool
}

func (s *session) setConn(c Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *session) markPushClosed() {
	s.mu.Lock()
	s.pushClosed = true
	s.mu.Unlock()
}

func (s *session) pushOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pushClosed
}

// teardown stops both channels. Safe to call more than once.
func (s *session) teardown() {
	s.cancel()
	s.mu.Lock()
	conn := s.conn
	s.pushClosed = true
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// New creates a Tracker. ctx bounds the lifetime of every session it opens.
func New(ctx context.Context, opts Options) *Tracker {
	t := &Tracker{
		backend:    opts.Backend,
		store:      opts.Assessments,
		findings:   opts.Findings,
		interval:   opts.PollInterval,
		fetchLimit: opts.FindingsFetchLimit,
		listLimit:  opts.ListLimit,
		log:        opts.Logger,
		dial:       opts.Dial,
		root:       ctx,
	}
	if t.interval <= 0 {
		t.interval = defaultPollInterval
	}
	if t.fetchLimit <= 0 {
		t.fetchLimit = defaultFetchLimit
	}
	if t.listLimit <= 0 {
		t.listLimit = defaultListLimit
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	if t.dial == nil {
		t.dial = DefaultDial
	}
	if t.root == nil {
		t.root = context.Background()
	}
	return t
}

// Track starts following an assessment. Tracking the same id over a still
// open push channel is a no-op; anything else tears down the previous
// session first, then opens a fresh push subscription and poll loop. The
// poll loop is not a mere failover: it always runs alongside the push
// channel as a backstop against dropped messages.
func (t *Tracker) Track(id string) {
	if id == "" {
		return
	}

	t.mu.Lock()
	if t.sess != nil && t.sess.id == id && t.sess.pushOpen() {
		t.mu.Unlock()
		return
	}
	prev := t.sess
	t.sess = nil
	t.mu.Unlock()
	if prev != nil {
		prev.teardown()
	}

	ctx, cancel := context.WithCancel(t.root)
	pollCtx, pollStop := context.WithCancel(ctx)
	s := &session{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		pollCtx:  pollCtx,
		pollStop: pollStop,
	}

	t.mu.Lock()
	t.sess = s
	t.mu.Unlock()
	metrics.TrackedSessions.Set(1)

	go t.runPush(s)
	go t.runPoll(s)
}

// Untrack idempotently closes the push channel and stops the poll loop.
func (t *Tracker) Untrack() {
	t.mu.Lock()
	s := t.sess
	t.sess = nil
	t.mu.Unlock()
	if s != nil {
		s.teardown()
		metrics.TrackedSessions.Set(0)
	}
}

// Current returns the tracked assessment id, or empty when idle.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return ""
	}
	return t.sess.id
}

func (t *Tracker) isCurrent(s *session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess == s
}

// release drops the session if it is still the current one.
func (t *Tracker) release(s *session) {
	t.mu.Lock()
	if t.sess == s {
		t.sess = nil
		metrics.TrackedSessions.Set(0)
	}
	t.mu.Unlock()
	s.teardown()
}

func (t *Tracker) runPush(s *session) {
	conn, err := t.dial(s.ctx, t.backend.WebSocketURL(s.id))
	if err != nil {
		// Poll-only coverage from here; no reconnect attempts.
		t.log.Warn("push channel unavailable, degrading to poll", "assessment", s.id, "err", err)
		s.markPushClosed()
		return
	}
	s.setConn(conn)

	// Unblock the read loop when the session is torn down.
	go func() {
		<-s.ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.markPushClosed()
			return
		}

		var msg api.PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.PushMalformedTotal.Inc()
			continue
		}
		if msg.Type != api.PushTypeUpdate && msg.Type != api.PushTypeTerminal {
			continue
		}
		metrics.PushMessagesTotal.WithLabelValues(msg.Type).Inc()

		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &probe); err != nil {
			metrics.PushMalformedTotal.Inc()
			continue
		}
		if probe.ID != s.id || !t.isCurrent(s) {
			continue
		}

		t.store.MergeOne(msg.Data)

		if msg.Type == api.PushTypeTerminal {
			s.pollStop()
			if t.store.Selected() == s.id {
				t.RefreshFindings(s.ctx, s.id)
				t.RefreshList(s.ctx)
			}
			t.release(s)
			return
		}
	}
}

func (t *Tracker) runPoll(s *session) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.pollCtx.Done():
			return
		case <-ticker.C:
		}

		record, err := t.backend.GetAssessment(s.pollCtx, s.id)
		if err != nil {
			// Transient failures are swallowed; the next tick retries.
			metrics.PollTicksTotal.WithLabelValues("error").Inc()
			t.log.Debug("poll tick failed", "assessment", s.id, "err", err)
			continue
		}
		metrics.PollTicksTotal.WithLabelValues("ok").Inc()

		// A response that resolves after teardown or for a different id is
		// discarded before any merge.
		if record.ID != s.id || !t.isCurrent(s) {
			return
		}

		raw, err := json.Marshal(record)
		if err != nil {
			continue
		}
		t.store.MergeOne(raw)

		if api.IsTerminal(record.Status) {
			s.pollStop()
			if t.store.Selected() == s.id {
				t.RefreshFindings(s.ctx, s.id)
			}
			return
		}
	}
}

// RefreshFindings fetches the findings snapshot for an assessment and
// installs it, unless the selection moved while the fetch was in flight.
func (t *Tracker) RefreshFindings(ctx context.Context, id string) {
	items, err := t.backend.ListFindings(ctx, id, t.fetchLimit)
	if err != nil {
		t.log.Warn("findings refresh failed", "assessment", id, "err", err)
		return
	}
	if t.store.Selected() != id {
		return
	}
	t.findings.ReplaceAll(id, items)
}

// RefreshList re-fetches the full assessment collection.
func (t *Tracker) RefreshList(ctx context.Context) {
	list, err := t.backend.ListAssessments(ctx, t.listLimit)
	if err != nil {
		t.log.Warn("assessment list refresh failed", "err", err)
		return
	}
	t.store.ReplaceAll(list)
}
