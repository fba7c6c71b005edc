package interfaces

// EventBus 进程内事件总线
//
// 路由键是事件的具体类型，调用方传入该类型的指针零值，
// 如 new(types.EvtMemberJoined)。发射永不阻塞，慢订阅者丢事件。
type EventBus interface {
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)
	Emitter(eventType interface{}, opts ...EmitterOpt) (Emitter, error)

	// Close 之后所有订阅通道关闭，新的 Subscribe/Emitter 返回错误
	Close() error
}

// Subscription 一个订阅
type Subscription interface {
	// Out 在 Close 或总线关闭后被关闭
	Out() <-chan interface{}
	// Dropped 缓冲区溢出丢弃的累计数
	Dropped() int64
	Close() error
}

// Emitter 单一事件类型的发射器
type Emitter interface {
	Emit(event interface{}) error
	Close() error
}

type (
	SubscriptionOpt func(*SubscriptionSettings)
	EmitterOpt      func(*EmitterSettings)
)

// SubscriptionSettings 未设置 Buffer 时由总线给出默认容量
type SubscriptionSettings struct {
	Buffer int
}

type EmitterSettings struct {
	// Stateful 为 true 时新订阅者先收到最近一次事件
	Stateful bool
}

// BufSize 订阅通道容量
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) { s.Buffer = size }
}

// Stateful 让发射器保留最近一次事件
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) { s.Stateful = true }
}
