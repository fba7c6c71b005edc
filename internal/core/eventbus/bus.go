package eventbus

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-signal/internal/util/logger"
	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
)

var log = logger.Logger("core/eventbus")

// defaultBuffer 订阅通道默认缓冲
const defaultBuffer = 16

// Bus 事件总线
type Bus struct {
	mu     sync.RWMutex
	topics map[reflect.Type]*topic
	closed bool
}

var _ pkgif.EventBus = (*Bus)(nil)

// topic 单一事件类型的订阅者集合
type topic struct {
	mu       sync.Mutex
	typ      reflect.Type
	sinks    []*Subscription
	emitters int
	keepLast bool
	last     interface{}
	dropped  atomic.Int64
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{topics: make(map[reflect.Type]*topic)}
}

// elemType 校验并返回事件类型（指针所指类型）
func elemType(eventType interface{}) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// Subscribe 订阅事件
func (b *Bus) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	settings := pkgif.SubscriptionSettings{Buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Buffer < 0 {
		settings.Buffer = 0
	}

	sub := &Subscription{
		bus: b,
		typ: typ,
		ch:  make(chan interface{}, settings.Buffer),
	}

	err = b.withTopic(typ, func(t *topic) {
		t.sinks = append(t.sinks, sub)
		if t.keepLast && t.last != nil {
			sub.offer(t.last)
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Emitter 获取发射器
func (b *Bus) Emitter(eventType interface{}, opts ...pkgif.EmitterOpt) (pkgif.Emitter, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	var settings pkgif.EmitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	var t *topic
	err = b.withTopic(typ, func(tp *topic) {
		t = tp
		t.emitters++
		if settings.Stateful {
			t.keepLast = true
		}
	})
	if err != nil {
		return nil, err
	}
	return &Emitter{bus: b, topic: t}, nil
}

// Close 关闭总线
//
// 所有订阅通道被关闭，之后的 Subscribe/Emitter 返回 ErrClosed。
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	topics := b.topics
	b.topics = make(map[reflect.Type]*topic)
	b.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		sinks := t.sinks
		t.sinks = nil
		t.mu.Unlock()
		for _, s := range sinks {
			s.finish()
		}
	}
	return nil
}

// withTopic 在类型节点上执行操作，节点不存在时创建
func (b *Bus) withTopic(typ reflect.Type, cb func(*topic)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	t, ok := b.topics[typ]
	if !ok {
		t = &topic{typ: typ}
		b.topics[typ] = t
	}
	t.mu.Lock()
	b.mu.Unlock()

	cb(t)
	t.mu.Unlock()
	return nil
}

// release 无订阅者且无发射器时删除节点
func (b *Bus) release(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[typ]
	if !ok {
		return
	}
	t.mu.Lock()
	idle := len(t.sinks) == 0 && t.emitters == 0
	t.mu.Unlock()
	if idle {
		delete(b.topics, typ)
	}
}

// removeSub 移除订阅，返回后不会再有事件写入其通道
func (b *Bus) removeSub(sub *Subscription) {
	b.mu.RLock()
	t, ok := b.topics[sub.typ]
	b.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	for i, s := range t.sinks {
		if s == sub {
			t.sinks = append(t.sinks[:i], t.sinks[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	b.release(sub.typ)
}

// accepts 判断事件值是否属于本节点类型（值或指针均可）
func (t *topic) accepts(event interface{}) bool {
	typ := reflect.TypeOf(event)
	if typ == nil {
		return false
	}
	if typ == t.typ {
		return true
	}
	return typ.Kind() == reflect.Ptr && typ.Elem() == t.typ
}

// emit 非阻塞地把事件投递给所有订阅者
func (t *topic) emit(event interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.keepLast {
		t.last = event
	}

	for _, sub := range t.sinks {
		if sub.offer(event) {
			continue
		}
		if n := t.dropped.Add(1); n%100 == 1 {
			log.Warn("订阅者缓冲区已满，丢弃事件", "type", t.typ.String(), "dropped", n)
		}
	}
}
