package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/fund-faq/widget/internal/model/chat"
)

// conversation 保存单个会话的视图状态与订阅者。
type conversation struct {
	mu          sync.Mutex
	session     chat.Session
	state       State
	inFlight    int
	subscribers map[uint64]chan Event
	nextSubID   uint64
	closed      bool

	// serial 策略下，tail 是队尾请求结束时关闭的 channel。
	serial bool
	tail   chan struct{}
}

// turn 是 serial 策略下的排队位置：等 prev 关闭后才能发出请求，结束时关闭 own。
type turn struct {
	prev <-chan struct{}
	own  chan struct{}
}

func (t turn) wait(ctx context.Context) error {
	if t.prev == nil {
		return nil
	}
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t turn) done() {
	if t.own != nil {
		close(t.own)
	}
}

func (c *conversation) snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	messages := make([]chat.Message, len(c.state.Messages))
	copy(messages, c.state.Messages)
	return State{Messages: messages}
}

func (c *conversation) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.ID
}

// begin 在持锁时登记请求，serial 策略下排队顺序即提交顺序。
func (c *conversation) begin(action Submitted, now time.Time, logger *zap.Logger) turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
	c.session.LastActive = now
	c.applyLocked(action, logger)

	if !c.serial {
		return turn{}
	}
	t := turn{prev: c.tail, own: make(chan struct{})}
	c.tail = t.own
	return t
}

func (c *conversation) finish(result Resolved, now time.Time, logger *zap.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	c.session.LastActive = now
	c.applyLocked(result, logger)
}

func (c *conversation) applyLocked(action Action, logger *zap.Logger) {
	next, events := Apply(c.state, action)
	c.state = next
	for _, evt := range events {
		evt.SessionID = c.session.ID
		c.publishLocked(evt, logger)
	}
}

// publishLocked 非阻塞投递，缓冲区满的订阅者会丢失这条事件。
func (c *conversation) publishLocked(evt Event, logger *zap.Logger) {
	for id, ch := range c.subscribers {
		select {
		case ch <- evt:
		default:
			logger.Warn("dropping event for slow subscriber",
				zap.String("session", c.session.ID),
				zap.Uint64("subscriber", id),
				zap.String("type", string(evt.Type)),
			)
		}
	}
}

func (c *conversation) subscribe(buffer int) (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, buffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (c *conversation) idleSince(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight == 0 && len(c.subscribers) == 0 && c.session.LastActive.Before(cutoff)
}

func (c *conversation) closeSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}
