package types

import "time"

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// Timestamp 返回事件时间戳
	Timestamp() time.Time
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp 返回事件时间戳
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string, at time.Time) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      at,
	}
}

// 事件类型常量
const (
	EventTypeMemberJoined   = "member_joined"
	EventTypeMemberLeft     = "member_left"
	EventTypeMessageRelayed = "message_relayed"
	EventTypeDeliveryFailed = "delivery_failed"
	EventTypeQueueOverflow  = "queue_overflow"
)

// ============================================================================
//                              成员事件
// ============================================================================

// LeaveReason 成员离开原因
type LeaveReason int

const (
	// LeaveReasonUnknown 未知原因
	LeaveReasonUnknown LeaveReason = iota
	// LeaveReasonSignOut 主动登出
	LeaveReasonSignOut
	// LeaveReasonTimeout 空闲超时
	LeaveReasonTimeout
	// LeaveReasonDeliveryFailure 广播投递失败（级联驱逐）
	LeaveReasonDeliveryFailure
	// LeaveReasonShutdown 服务关闭
	LeaveReasonShutdown
)

// String 返回离开原因的字符串表示
func (r LeaveReason) String() string {
	switch r {
	case LeaveReasonSignOut:
		return "sign_out"
	case LeaveReasonTimeout:
		return "timeout"
	case LeaveReasonDeliveryFailure:
		return "delivery_failure"
	case LeaveReasonShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// EvtMemberJoined 成员加入事件
type EvtMemberJoined struct {
	BaseEvent
	Member Entry
	Total  int
}

// EvtMemberLeft 成员离开事件
type EvtMemberLeft struct {
	BaseEvent
	Member Entry
	Reason LeaveReason
	Total  int
}

// ============================================================================
//                              消息事件
// ============================================================================

// EvtMessageRelayed 点对点消息转发事件
type EvtMessageRelayed struct {
	BaseEvent
	From        MemberID
	To          MemberID
	ContentType string
	Bytes       int
	// Echo 目标为发送者自身时为 true
	Echo bool
}

// EvtDeliveryFailed 向挂起请求投递失败
type EvtDeliveryFailed struct {
	BaseEvent
	Member MemberID
	Err    error
}

// EvtQueueOverflow 有界队列丢弃最旧通知
type EvtQueueOverflow struct {
	BaseEvent
	Member  MemberID
	Dropped int
}
