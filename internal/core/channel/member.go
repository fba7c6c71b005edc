package channel

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-signal/internal/core/frame"
	"github.com/dep2p/go-signal/pkg/types"
)

// 成员动作路径
const (
	PathSignIn  = "/sign_in"
	PathWait    = "/wait"
	PathSignOut = "/sign_out"
	PathMessage = "/message"
)

// PeerIDHeader 返回 "Pragma: <id>\r\n"
func PeerIDHeader(id types.MemberID) string {
	return "Pragma: " + id.String() + "\r\n"
}

// Member 已注册的对端
type Member struct {
	id        types.MemberID
	name      string
	connected bool
	reason    types.LeaveReason

	// waiting 挂起的长轮询连接，至多一个
	waiting Conn
	// queue 未挂起期间积压的通知，FIFO
	queue []frame.Response
	// maxQueue 队列上限，0 表示不限
	maxQueue int

	clk          clock.Clock
	lastActivity time.Time
}

// newMember 由注册请求创建成员
func newMember(id types.MemberID, args string, maxNameLen, maxQueue int, clk clock.Clock) *Member {
	return &Member{
		id:           id,
		name:         types.SanitizeName(args, id, maxNameLen),
		connected:    true,
		maxQueue:     maxQueue,
		clk:          clk,
		lastActivity: clk.Now(),
	}
}

// ID 返回成员标识
func (m *Member) ID() types.MemberID { return m.id }

// Name 返回显示名
func (m *Member) Name() string { return m.name }

// Connected 是否仍在线
func (m *Member) Connected() bool { return m.connected }

// Waiting 是否有挂起的长轮询
func (m *Member) Waiting() bool { return m.waiting != nil }

// QueueLen 返回积压通知数
func (m *Member) QueueLen() int { return len(m.queue) }

// LastActivity 返回最近一次轮询开始或结束的时间
func (m *Member) LastActivity() time.Time { return m.lastActivity }

// Entry 返回名册条目
func (m *Member) Entry() types.Entry {
	return types.Entry{Name: m.name, ID: m.id, Connected: m.connected}
}

// PeerIDHeader 返回本成员的 Pragma 头
func (m *Member) PeerIDHeader() string {
	return PeerIDHeader(m.id)
}

// IsWaitRequest 判断连接上的请求是否为 /wait
func (m *Member) IsWaitRequest(conn Conn) bool {
	return conn != nil && conn.Frame().PathEquals(PathWait)
}

// TimedOut 未挂起且空闲超过 timeout
func (m *Member) TimedOut(timeout time.Duration) bool {
	return m.waiting == nil && m.clk.Since(m.lastActivity) > timeout
}

// setDisconnected 标记离线，实际移除由注册表完成
func (m *Member) setDisconnected(reason types.LeaveReason) {
	if m.connected {
		m.connected = false
		m.reason = reason
	}
}

// setWaiting 处理一次 /wait
//
// 队列非空时立即在该连接上发送最旧的通知且不挂起；否则挂起连接。
// 发送失败时通知保留在队列中。
func (m *Member) setWaiting(conn Conn) error {
	m.lastActivity = m.clk.Now()

	if len(m.queue) == 0 {
		// 同一成员的新 /wait 取代旧的挂起连接
		if m.waiting != nil && m.waiting != conn {
			_ = m.waiting.Close()
		}
		m.waiting = conn
		return nil
	}

	resp := m.queue[0]
	if err := conn.Send(resp); err != nil {
		return fmt.Errorf("%w: member %d: %v", ErrDeliveryFailed, m.id, err)
	}
	m.queue[0] = frame.Response{}
	m.queue = m.queue[1:]
	return nil
}

// deliver 投递通知
//
// 已挂起则直接在挂起连接上发送并清空挂起槽；否则入队。
// 返回发送错误（调用方据此驱逐该成员）以及因队列上限丢弃的条数。
func (m *Member) deliver(resp frame.Response) (dropped int, err error) {
	resp.KeepAlive = false

	if m.waiting != nil {
		conn := m.waiting
		m.waiting = nil
		m.lastActivity = m.clk.Now()
		if err := conn.Send(resp); err != nil {
			return 0, fmt.Errorf("%w: member %d: %v", ErrDeliveryFailed, m.id, err)
		}
		return 0, nil
	}

	if m.maxQueue > 0 && len(m.queue) >= m.maxQueue {
		dropped = len(m.queue) - m.maxQueue + 1
		for i := 0; i < dropped; i++ {
			m.queue[i] = frame.Response{}
		}
		m.queue = m.queue[dropped:]
	}
	m.queue = append(m.queue, resp)
	return dropped, nil
}

// notifyOfOtherMember 投递另一成员的状态变化，Pragma 为该成员的标识
func (m *Member) notifyOfOtherMember(other *Member) (int, error) {
	return m.deliver(frame.Response{
		Status:       frame.StatusOK,
		ContentType:  frame.DefaultContentType,
		ExtraHeaders: other.PeerIDHeader(),
		Body:         []byte(other.Entry().String()),
	})
}

// onClosing 连接关闭时清空匹配的挂起槽
func (m *Member) onClosing(conn Conn) {
	if m.waiting == conn {
		m.waiting = nil
		m.lastActivity = m.clk.Now()
	}
}

// release 销毁前关闭仍挂起的连接
func (m *Member) release() {
	if m.waiting != nil {
		_ = m.waiting.Close()
		m.waiting = nil
	}
	m.queue = nil
}
