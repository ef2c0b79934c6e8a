package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/config"
	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
)

var (
	ErrEmptyQuery      = errors.New("query is empty")
	ErrSessionNotFound = errors.New("session not found")
	ErrClosed          = errors.New("chat service closed")
)

const defaultEventBuffer = 32

// Asker sends one query to the remote chat endpoint.
type Asker interface {
	Ask(ctx context.Context, req chat.Request) (*chat.Reply, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(ctx context.Context, req chat.Request) (*chat.Reply, error)

// Ask calls f.
func (f AskerFunc) Ask(ctx context.Context, req chat.Request) (*chat.Reply, error) {
	return f(ctx, req)
}

// Submission 是一次提交立即产生的两条消息。
type Submission struct {
	User        chat.Message `json:"user"`
	Placeholder chat.Message `json:"placeholder"`
}

// Service encapsulates conversation state management.
type Service struct {
	asker       Asker
	policy      string
	loadingText string
	eventBuffer int
	now         func() time.Time
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*conversation
	closed   bool

	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option customises a Service.
type Option func(*Service)

// WithPolicy selects overlap (default) or serial submission handling.
func WithPolicy(policy string) Option {
	return func(s *Service) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithLoadingText sets the placeholder text shown while a request is outstanding.
func WithLoadingText(text string) Option {
	return func(s *Service) {
		if text != "" {
			s.loadingText = text
		}
	}
}

// WithEventBuffer sets the per-subscriber event buffer size.
func WithEventBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.eventBuffer = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now, used for idle eviction.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService bootstraps the in-memory chat service.
func NewService(asker Asker, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		asker:       asker,
		policy:      config.PolicyOverlap,
		loadingText: "Loading...",
		eventBuffer: defaultEventBuffer,
		now:         time.Now,
		logger:      zap.NewNop(),
		sessions:    make(map[string]*conversation),
		baseCtx:     ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession provisions an empty conversation.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	now := s.now().UTC()
	session := chat.Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
	}

	conv := &conversation{
		session:     session,
		subscribers: make(map[uint64]chan Event),
		serial:      s.policy == config.PolicySerial,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat.Session{}, ErrClosed
	}
	s.sessions[session.ID] = conv

	s.logger.Debug("session created", zap.String("session", session.ID))
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.session, nil
}

// LoadTranscript returns the rendered messages of the session in order.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return conv.snapshot().Messages, nil
}

// Submit appends the user turn and a loading placeholder, then resolves the
// placeholder in the background once the remote call finishes. A blank query
// returns ErrEmptyQuery and changes nothing.
func (s *Service) Submit(_ context.Context, sessionID, query string) (Submission, error) {
	sub, _, err := s.submit(sessionID, query)
	if err != nil {
		return Submission{}, err
	}
	return Submission{User: sub.User, Placeholder: sub.Placeholder}, nil
}

// Ask submits and waits for the resolving assistant turn. If ctx ends first the
// request keeps running and its reply still lands in the conversation.
func (s *Service) Ask(ctx context.Context, sessionID, query string) (chat.Message, error) {
	_, done, err := s.submit(sessionID, query)
	if err != nil {
		return chat.Message{}, err
	}
	select {
	case reply := <-done:
		return reply, nil
	case <-ctx.Done():
		return chat.Message{}, ctx.Err()
	}
}

func (s *Service) submit(sessionID, query string) (Submitted, <-chan chat.Message, error) {
	action, ok := Begin(query, s.loadingText)
	if !ok {
		if _, err := s.lookup(sessionID); err != nil {
			return Submitted{}, nil, err
		}
		return Submitted{}, nil, ErrEmptyQuery
	}

	// 查找、登记在途请求都在同一把读锁内完成，Close 与淘汰因此不会漏掉它。
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return Submitted{}, nil, ErrClosed
	}
	conv, ok := s.sessions[sessionID]
	if !ok {
		s.mu.RUnlock()
		return Submitted{}, nil, ErrSessionNotFound
	}
	s.wg.Add(1)
	t := conv.begin(action, s.now().UTC(), s.logger)
	s.mu.RUnlock()

	done := make(chan chat.Message, 1)
	go s.resolve(conv, action, t, done)
	return action, done, nil
}

func (s *Service) resolve(conv *conversation, sub Submitted, t turn, done chan<- chat.Message) {
	defer s.wg.Done()
	defer t.done()

	ctx := s.baseCtx
	var result Resolved
	if err := t.wait(ctx); err != nil {
		result = Complete(sub.Placeholder.ID, nil, err)
		conv.finish(result, s.now().UTC(), s.logger)
		done <- result.Reply
		return
	}

	start := s.now()
	reply, err := s.asker.Ask(ctx, chat.Request{
		Message:   sub.User.Text,
		SessionID: conv.sessionID(),
	})
	if err != nil {
		s.logger.Warn("chat request failed",
			zap.String("session", conv.sessionID()),
			zap.Error(err),
		)
	} else {
		s.logger.Info("chat request answered",
			zap.String("session", conv.sessionID()),
			zap.Int("links", len(reply.OfficialLinks)),
			zap.Duration("elapsed", s.now().Sub(start)),
		)
	}

	result = Complete(sub.Placeholder.ID, reply, err)
	conv.finish(result, s.now().UTC(), s.logger)
	done <- result.Reply
}

// Subscribe streams view events of a session. The returned cancel function
// must be called to release the subscription; the channel is closed when the
// subscription ends, the session is evicted or the service closes.
func (s *Service) Subscribe(sessionID string) (<-chan Event, func(), error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := conv.subscribe(s.eventBuffer)
	return ch, cancel, nil
}

// DeleteSession removes a session and ends its subscriptions. Requests still in
// flight finish against the detached conversation.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	conv.closeSubscribers()
	s.logger.Debug("session deleted", zap.String("session", sessionID))
	return nil
}

// EvictIdle removes sessions idle for longer than ttl that have neither
// requests in flight nor subscribers, and returns how many were removed.
func (s *Service) EvictIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().UTC().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, conv := range s.sessions {
		if !conv.idleSince(cutoff) {
			continue
		}
		delete(s.sessions, id)
		conv.closeSubscribers()
		evicted++
	}
	if evicted > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", evicted))
	}
	return evicted
}

// RunJanitor evicts idle sessions until ctx ends. A non-positive ttl disables eviction.
func (s *Service) RunJanitor(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		<-ctx.Done()
		return nil
	}

	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.EvictIdle(ttl)
		}
	}
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close cancels in-flight requests, waits for their placeholders to resolve
// and ends every subscription. It is safe to call more than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		s.wg.Wait()

		s.mu.Lock()
		for _, conv := range s.sessions {
			conv.closeSubscribers()
		}
		s.mu.Unlock()
	})
}

func (s *Service) lookup(sessionID string) (*conversation, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}
