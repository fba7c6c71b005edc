package channel

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-signal/internal/core/frame"
	"github.com/dep2p/go-signal/internal/util/logger"
	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
	"github.com/dep2p/go-signal/pkg/types"
)

var log = logger.Logger("core/channel")

// 默认参数
const (
	DefaultMemberTimeout   = 30 * time.Second
	DefaultShutdownMessage = "Server shutting down"
)

// Options 注册表参数
type Options struct {
	// MemberTimeout 未挂起成员的空闲超时
	MemberTimeout time.Duration

	// MaxNameLength 名称最大字节数，不超过 types.MaxNameLength
	MaxNameLength int

	// MaxQueueDepth 每成员积压上限，0 表示不限（超限丢弃最旧）
	MaxQueueDepth int

	// ShutdownMessage CloseAll 时投递给所有成员的内容
	ShutdownMessage string
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{
		MemberTimeout:   DefaultMemberTimeout,
		MaxNameLength:   types.MaxNameLength,
		ShutdownMessage: DefaultShutdownMessage,
	}
}

// Channel 成员注册表
type Channel struct {
	opts   Options
	clk    clock.Clock
	events *emitters

	// lastID 已分配的最大标识
	lastID  types.MemberID
	members []*Member
	closed  bool
}

// New 创建注册表；clk 为 nil 时使用系统时钟，bus 可为 nil
func New(opts Options, clk clock.Clock, bus pkgif.EventBus) (*Channel, error) {
	if clk == nil {
		clk = clock.New()
	}
	if opts.MemberTimeout <= 0 {
		opts.MemberTimeout = DefaultMemberTimeout
	}
	if opts.MaxNameLength <= 0 || opts.MaxNameLength > types.MaxNameLength {
		opts.MaxNameLength = types.MaxNameLength
	}
	if opts.MaxQueueDepth < 0 {
		opts.MaxQueueDepth = 0
	}

	events, err := newEmitters(bus)
	if err != nil {
		return nil, err
	}
	return &Channel{opts: opts, clk: clk, events: events}, nil
}

// ============================================================================
//                              请求解析
// ============================================================================

// IsPeerConnection 带请求体的 POST 或 GET /sign_in
func IsPeerConnection(f *frame.Frame) bool {
	return (f.Method() == frame.MethodPost && f.ContentLength() > 0) ||
		(f.Method() == frame.MethodGet && f.PathEquals(PathSignIn))
}

// isActionPath 请求路径是否为 /wait、/sign_out 或 /message
func isActionPath(f *frame.Frame) bool {
	return f.PathEquals(PathWait) || f.PathEquals(PathSignOut) || f.PathEquals(PathMessage)
}

// Lookup 按 peer_id 解析请求所属成员
//
// 命中 /wait 时挂起（或立即排空一条积压通知）；命中 /sign_out 时标记离线，
// 实际移除在连接关闭时完成。
func (c *Channel) Lookup(conn Conn) *Member {
	f := conn.Frame()
	if f.Method() != frame.MethodGet && f.Method() != frame.MethodPost {
		return nil
	}
	if !isActionPath(f) {
		return nil
	}

	id, ok := f.Query().Int("peer_id")
	if !ok {
		return nil
	}
	m := c.find(types.MemberID(id))
	if m == nil {
		return nil
	}

	switch {
	case f.PathEquals(PathWait):
		// 排空失败不驱逐：通知留在队首，由下一次 /wait 重试或超时清扫
		if err := m.setWaiting(conn); err != nil {
			log.Warn("排空积压通知失败", "member", m.id, "conn", conn.ID(), "err", err)
		}
	case f.PathEquals(PathSignOut):
		m.setDisconnected(types.LeaveReasonSignOut)
	}
	return m
}

// TargetedRequest 按 to 参数解析目标成员
//
// 已登出但连接尚未关闭的成员视为不存在。
func (c *Channel) TargetedRequest(conn Conn) *Member {
	id, ok := conn.Frame().Query().Int("to")
	if !ok {
		return nil
	}
	m := c.find(types.MemberID(id))
	if m == nil || !m.connected {
		return nil
	}
	return m
}

// find 线性查找
func (c *Channel) find(id types.MemberID) *Member {
	for _, m := range c.members {
		if m.id == id {
			return m
		}
	}
	return nil
}

func (c *Channel) indexOf(m *Member) int {
	for i, x := range c.members {
		if x == m {
			return i
		}
	}
	return -1
}

// ============================================================================
//                              成员变更
// ============================================================================

// AddMember 由 /sign_in 请求创建成员
//
// 先向现有成员广播加入，再追加到列表末尾，最后应答 "200 Added"，
// 请求体为新成员条目加其余成员条目。
func (c *Channel) AddMember(conn Conn) (*Member, error) {
	if c.closed {
		return nil, ErrClosed
	}
	f := conn.Frame()
	if f.Method() != frame.MethodGet || !f.PathEquals(PathSignIn) {
		return nil, ErrNotPeerConnection
	}

	c.lastID++
	m := newMember(c.lastID, f.Arguments(), c.opts.MaxNameLength, c.opts.MaxQueueDepth, c.clk)

	c.cascade(c.broadcast(m))
	c.members = append(c.members, m)

	log.Info("新成员加入", "id", m.id, "name", m.name, "total", len(c.members))
	c.events.emit(c.events.joined, &types.EvtMemberJoined{
		BaseEvent: types.NewBaseEvent(types.EventTypeMemberJoined, c.clk.Now()),
		Member:    m.Entry(),
		Total:     len(c.members),
	})

	resp := frame.Response{
		Status:       frame.StatusAdded,
		ContentType:  frame.DefaultContentType,
		ExtraHeaders: m.PeerIDHeader(),
		Body:         []byte(c.rosterFor(m)),
	}
	if err := conn.Send(resp); err != nil {
		// 成员保留，未轮询将按空闲超时移除
		return m, ErrDeliveryFailed
	}
	return m, nil
}

// rosterFor 新成员条目在前，其后按加入顺序列出其他在线成员
func (c *Channel) rosterFor(m *Member) string {
	roster := m.Entry().String()
	for _, other := range c.members {
		if other != m && other.connected {
			roster += other.Entry().String()
		}
	}
	return roster
}

// Forward 把 from 的请求体转发给 to
//
// 目标为自身时在源连接上回显；否则投递给目标并向源连接应答空的 200。
func (c *Channel) Forward(conn Conn, from, to *Member) {
	f := conn.Frame()
	body := append([]byte(nil), f.Body()...)

	if from == to {
		if err := conn.Send(frame.Response{
			Status:       frame.StatusOK,
			ContentType:  f.ContentType(),
			ExtraHeaders: from.PeerIDHeader(),
			Body:         body,
		}); err != nil {
			log.Debug("回显失败", "member", from.id, "err", err)
		}
		c.emitRelayed(from, to, f.ContentType(), len(body))
		return
	}

	log.Debug("转发消息", "from", from.id, "to", to.id, "bytes", len(body))
	dropped, err := to.deliver(frame.Response{
		Status:       frame.StatusOK,
		ContentType:  f.ContentType(),
		ExtraHeaders: from.PeerIDHeader(),
		Body:         body,
	})
	c.noteOverflow(to, dropped)
	if err != nil {
		c.failDelivery(to, err)
		c.cascade([]*Member{to})
	} else {
		c.emitRelayed(from, to, f.ContentType(), len(body))
	}

	if err := conn.Send(frame.Text(frame.StatusOK, "")); err != nil {
		log.Debug("应答发送方失败", "member", from.id, "err", err)
	}
}

// OnClosing 连接关闭时调用
//
// 清空匹配的挂起槽，然后移除所有已标记离线的成员并广播离开。
func (c *Channel) OnClosing(conn Conn) {
	var gone []*Member
	for _, m := range c.members {
		m.onClosing(conn)
		if !m.connected {
			gone = append(gone, m)
		}
	}
	if len(gone) == 0 {
		return
	}
	c.cascade(gone)
	log.Info("当前在线成员", "total", len(c.members))
}

// CheckForTimeout 驱逐所有空闲超时的成员
func (c *Channel) CheckForTimeout() int {
	var idle []*Member
	for _, m := range c.members {
		if m.TimedOut(c.opts.MemberTimeout) {
			log.Info("成员超时", "id", m.id, "name", m.name)
			m.setDisconnected(types.LeaveReasonTimeout)
			idle = append(idle, m)
		}
	}
	if len(idle) > 0 {
		c.cascade(idle)
	}
	return len(idle)
}

// CloseAll 向所有成员投递关闭通知后清空注册表
func (c *Channel) CloseAll() error {
	if c.closed {
		return nil
	}
	c.closed = true

	for _, m := range c.members {
		_, _ = m.deliver(frame.Text(frame.StatusOK, c.opts.ShutdownMessage))
		m.setDisconnected(types.LeaveReasonShutdown)
		c.emitLeft(m)
		m.release()
	}
	log.Info("注册表已关闭", "members", len(c.members))
	c.members = nil
	return c.events.close()
}

// ============================================================================
//                              广播与级联驱逐
// ============================================================================

// broadcast 向除 subject 外的所有成员投递 subject 的状态
//
// 遍历快照，不修改成员列表；失败者标记离线后返回。
func (c *Channel) broadcast(subject *Member) []*Member {
	if !subject.connected {
		log.Info("成员离开", "id", subject.id, "name", subject.name, "reason", subject.reason.String())
	}

	var failures []*Member
	snapshot := append([]*Member(nil), c.members...)
	for _, m := range snapshot {
		if m == subject || !m.connected {
			continue
		}
		dropped, err := m.notifyOfOtherMember(subject)
		c.noteOverflow(m, dropped)
		if err != nil {
			c.failDelivery(m, err)
			failures = append(failures, m)
		}
	}
	return failures
}

// cascade 移除工作列表中的成员并广播离开，新产生的失败者追加到工作列表
//
// 每次失败都永久移除一个成员，循环次数不超过成员总数。
func (c *Channel) cascade(work []*Member) {
	for len(work) > 0 {
		m := work[0]
		work = work[1:]

		i := c.indexOf(m)
		if i >= 0 {
			c.members = append(c.members[:i], c.members[i+1:]...)
		}
		work = append(work, c.broadcast(m)...)
		c.emitLeft(m)
		m.release()
	}
}

func (c *Channel) failDelivery(m *Member, err error) {
	log.Warn("投递失败，驱逐成员", "id", m.id, "name", m.name, "err", err)
	m.setDisconnected(types.LeaveReasonDeliveryFailure)
	c.events.emit(c.events.failed, &types.EvtDeliveryFailed{
		BaseEvent: types.NewBaseEvent(types.EventTypeDeliveryFailed, c.clk.Now()),
		Member:    m.id,
		Err:       err,
	})
}

func (c *Channel) noteOverflow(m *Member, dropped int) {
	if dropped == 0 {
		return
	}
	log.Warn("积压队列已满，丢弃最旧通知", "id", m.id, "dropped", dropped, "max", c.opts.MaxQueueDepth)
	c.events.emit(c.events.overflow, &types.EvtQueueOverflow{
		BaseEvent: types.NewBaseEvent(types.EventTypeQueueOverflow, c.clk.Now()),
		Member:    m.id,
		Dropped:   dropped,
	})
}

func (c *Channel) emitLeft(m *Member) {
	c.events.emit(c.events.left, &types.EvtMemberLeft{
		BaseEvent: types.NewBaseEvent(types.EventTypeMemberLeft, c.clk.Now()),
		Member:    m.Entry(),
		Reason:    m.reason,
		Total:     len(c.members),
	})
}

func (c *Channel) emitRelayed(from, to *Member, contentType string, n int) {
	c.events.emit(c.events.relayed, &types.EvtMessageRelayed{
		BaseEvent:   types.NewBaseEvent(types.EventTypeMessageRelayed, c.clk.Now()),
		From:        from.id,
		To:          to.id,
		ContentType: contentType,
		Bytes:       n,
		Echo:        from == to,
	})
}

// ============================================================================
//                              查询
// ============================================================================

// Len 返回成员数
func (c *Channel) Len() int { return len(c.members) }

// Roster 返回按加入顺序排列的名册
func (c *Channel) Roster() []types.Entry {
	out := make([]types.Entry, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, m.Entry())
	}
	return out
}

// MemberInfo 诊断用的成员快照
type MemberInfo struct {
	ID           types.MemberID `json:"id"`
	Name         string         `json:"name"`
	Connected    bool           `json:"connected"`
	Waiting      bool           `json:"waiting"`
	Queued       int            `json:"queued"`
	LastActivity time.Time      `json:"last_activity"`
}

// Snapshot 返回全部成员的诊断快照
func (c *Channel) Snapshot() []MemberInfo {
	out := make([]MemberInfo, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, MemberInfo{
			ID:           m.id,
			Name:         m.name,
			Connected:    m.connected,
			Waiting:      m.Waiting(),
			Queued:       m.QueueLen(),
			LastActivity: m.lastActivity,
		})
	}
	return out
}
