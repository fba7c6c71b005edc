package eventbus

import (
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
)

// Subscription 单个订阅者
//
// 通道只由 topic 在持锁时写入，关闭前先从 topic 摘除。
type Subscription struct {
	bus  *Bus
	typ  reflect.Type
	ch   chan interface{}
	lost atomic.Int64
	once sync.Once
}

var _ pkgif.Subscription = (*Subscription)(nil)

// Out 事件通道，订阅关闭或总线关闭后被关闭
func (s *Subscription) Out() <-chan interface{} { return s.ch }

// Dropped 缓冲区满而未送达的事件数
func (s *Subscription) Dropped() int64 { return s.lost.Load() }

// Close 退订，可重复调用
func (s *Subscription) Close() error {
	s.bus.removeSub(s)
	s.finish()
	return nil
}

func (s *Subscription) finish() {
	s.once.Do(func() { close(s.ch) })
}

// offer 非阻塞写入，失败时计数
func (s *Subscription) offer(event interface{}) bool {
	select {
	case s.ch <- event:
		return true
	default:
		s.lost.Add(1)
		return false
	}
}

// Emitter 某一事件类型的发射器
type Emitter struct {
	bus   *Bus
	topic *topic
	done  atomic.Bool
}

var _ pkgif.Emitter = (*Emitter)(nil)

// Emit 发射事件，类型须与创建发射器时一致（值或指针）
func (e *Emitter) Emit(event interface{}) error {
	if e.done.Load() {
		return ErrEmitterClosed
	}
	if !e.topic.accepts(event) {
		return ErrInvalidEventType
	}
	e.topic.emit(event)
	return nil
}

// Close 关闭发射器，可重复调用
func (e *Emitter) Close() error {
	if e.done.Swap(true) {
		return nil
	}
	e.topic.mu.Lock()
	e.topic.emitters--
	e.topic.mu.Unlock()

	e.bus.release(e.topic.typ)
	return nil
}
