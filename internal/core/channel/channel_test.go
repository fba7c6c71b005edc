package channel

import (
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-signal/internal/core/eventbus"
	"github.com/dep2p/go-signal/internal/core/frame"
	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
	"github.com/dep2p/go-signal/pkg/types"
)

func newTestChannel(t *testing.T, opts Options) (*Channel, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	ch, err := New(opts, clk, nil)
	require.NoError(t, err)
	return ch, clk
}

// TestChannel_EndToEnd 测试完整的注册、通知、转发、登出流程
func TestChannel_EndToEnd(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())

	// A 注册：id=1，名册只有自己
	ca := get(t, "/sign_in?A")
	require.Equal(t, KindSignIn, ch.Handle(ca))
	resp := ca.last(t)
	assert.Equal(t, frame.StatusAdded, resp.Status)
	assert.Equal(t, "Pragma: 1\r\n", resp.ExtraHeaders)
	assert.Equal(t, "A,1,1\n", string(resp.Body))

	// B 注册：id=2，名册为 B 在前、A 在后
	cb := get(t, "/sign_in?B")
	ch.Handle(cb)
	resp = cb.last(t)
	assert.Equal(t, "Pragma: 2\r\n", resp.ExtraHeaders)
	entries, err := types.ParseRoster(string(resp.Body))
	require.NoError(t, err)
	assert.Equal(t, []types.Entry{{Name: "B", ID: 2, Connected: true}, {Name: "A", ID: 1, Connected: true}}, entries)

	// A 的下一次 /wait 立即拿到 B 的加入通知
	wa := wait(t, ch, 1)
	resp = wa.last(t)
	assert.Equal(t, frame.StatusOK, resp.Status)
	assert.Equal(t, "B,2,1\n", string(resp.Body))
	assert.Equal(t, "Pragma: 2\r\n", resp.ExtraHeaders)

	// B 挂起，A 发消息
	wb := wait(t, ch, 2)
	assert.Empty(t, wb.sent)

	msg := post(t, "/message?peer_id=1&to=2", "application/json", "hello")
	assert.Equal(t, KindMessage, ch.Handle(msg))

	resp = wb.last(t)
	assert.Equal(t, "hello", string(resp.Body))
	assert.Equal(t, "Pragma: 1\r\n", resp.ExtraHeaders)
	assert.Equal(t, "application/json", resp.ContentType)

	ack := msg.last(t)
	assert.Equal(t, frame.StatusOK, ack.Status)
	assert.Empty(t, ack.Body)

	// B 登出；移除在连接关闭时完成
	so := get(t, "/sign_out?peer_id=2")
	assert.Equal(t, KindSignOut, ch.Handle(so))
	assert.Equal(t, frame.StatusOK, so.last(t).Status)
	assert.Equal(t, 2, ch.Len())
	ch.OnClosing(so)
	assert.Equal(t, 1, ch.Len())

	wa = wait(t, ch, 1)
	resp = wa.last(t)
	assert.Equal(t, "B,2,0\n", string(resp.Body))
	assert.Equal(t, "Pragma: 2\r\n", resp.ExtraHeaders)
}

// TestChannel_MonotonicIDs 测试标识单调递增且不复用
func TestChannel_MonotonicIDs(t *testing.T) {
	ch, clk := newTestChannel(t, DefaultOptions())

	var last types.MemberID
	for i := 0; i < 5; i++ {
		id := signIn(t, ch, "")
		assert.Greater(t, id, last)
		last = id
	}

	clk.Add(time.Minute)
	assert.Equal(t, 5, ch.CheckForTimeout())
	assert.Zero(t, ch.Len())

	id := signIn(t, ch, "")
	assert.Equal(t, types.MemberID(6), id)
}

// TestChannel_DefaultNameAndSanitize 测试默认名称与逗号替换
func TestChannel_DefaultNameAndSanitize(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	signIn(t, ch, "")
	signIn(t, ch, "x,y")

	roster := ch.Roster()
	require.Len(t, roster, 2)
	assert.Equal(t, "peer_1", roster[0].Name)
	assert.Equal(t, "x_y", roster[1].Name)
}

// TestChannel_EchoToSelf 测试目标为自身时回显
func TestChannel_EchoToSelf(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	id := signIn(t, ch, "A")

	msg := post(t, "/message?peer_id=1&to=1", "application/sdp", "offer")
	assert.Equal(t, KindMessage, ch.Handle(msg))
	require.Len(t, msg.sent, 1)
	resp := msg.last(t)
	assert.Equal(t, "offer", string(resp.Body))
	assert.Equal(t, "application/sdp", resp.ContentType)
	assert.Equal(t, PeerIDHeader(id), resp.ExtraHeaders)
}

// TestChannel_Rejections 测试无法解析的引用
func TestChannel_Rejections(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	signIn(t, ch, "A")

	tests := []struct {
		name   string
		conn   *fakeConn
		kind   RequestKind
		status string
	}{
		{"unknown target", post(t, "/message?peer_id=1&to=9", "text/plain", "x"), KindUnknownPeer, frame.StatusError},
		{"unknown sender", post(t, "/message?peer_id=9&to=1", "text/plain", "x"), KindUnknownPeer, frame.StatusError},
		{"unknown wait", get(t, "/wait?peer_id=9"), KindUnknownPeer, frame.StatusError},
		{"unknown sign out", get(t, "/sign_out?peer_id=9"), KindUnknownPeer, frame.StatusError},
		{"sign out no id", get(t, "/sign_out"), KindUnknownPeer, frame.StatusError},
		{"browser", get(t, "/index.html"), KindNotFound, frame.StatusNotFound},
		{"options", newConn(t, "OPTIONS /sign_in HTTP/1.1\r\n\r\n"), KindOptions, frame.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, ch.Handle(tt.conn))
			assert.Equal(t, tt.status, tt.conn.last(t).Status)
			assert.True(t, tt.conn.closed)
		})
	}

	assert.Equal(t, []types.Entry{{Name: "A", ID: 1, Connected: true}}, ch.Roster())
	assert.Equal(t, "Peer most likely gone.", string(tests[0].conn.last(t).Body))
}

// TestChannel_SignOutTwice 测试重复登出为无副作用的拒绝
func TestChannel_SignOutTwice(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	signIn(t, ch, "A")
	signIn(t, ch, "B")

	so := get(t, "/sign_out?peer_id=2")
	ch.Handle(so)
	ch.OnClosing(so)
	require.Equal(t, 1, ch.Len())

	again := get(t, "/sign_out?peer_id=2")
	assert.Equal(t, KindUnknownPeer, ch.Handle(again))
	ch.OnClosing(again)
	assert.Equal(t, []types.Entry{{Name: "A", ID: 1, Connected: true}}, ch.Roster())
}

// TestChannel_SignedOutBeforeClose 测试登出后、连接关闭前该成员已不可见
func TestChannel_SignedOutBeforeClose(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	signIn(t, ch, "A")
	signIn(t, ch, "B")

	so := get(t, "/sign_out?peer_id=2")
	require.Equal(t, KindSignOut, ch.Handle(so))

	// 新成员的名册不含已登出的 B
	cc := get(t, "/sign_in?C")
	require.Equal(t, KindSignIn, ch.Handle(cc))
	assert.Equal(t, "C,3,1\nA,1,1\n", string(cc.last(t).Body))

	// 发往 B 的消息被拒绝，不入队
	msg := post(t, "/message?peer_id=1&to=2", "text/plain", "late")
	assert.Equal(t, KindUnknownPeer, ch.Handle(msg))
	ack := msg.last(t)
	assert.Equal(t, frame.StatusError, ack.Status)
	assert.Equal(t, "Peer most likely gone.", string(ack.Body))

	ch.OnClosing(so)
	assert.Equal(t, []types.Entry{
		{Name: "A", ID: 1, Connected: true},
		{Name: "C", ID: 3, Connected: true},
	}, ch.Roster())
}

// TestChannel_WaitDrainFailureKeepsMember 测试 /wait 排空失败时成员保留，通知在下次 /wait 送达
func TestChannel_WaitDrainFailureKeepsMember(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	signIn(t, ch, "A")
	signIn(t, ch, "B")

	broken := get(t, "/wait?peer_id=1")
	broken.failSend = true
	assert.Equal(t, KindWait, ch.Handle(broken))
	ch.OnClosing(broken)
	require.Equal(t, 2, ch.Len())

	wa := wait(t, ch, 1)
	assert.Equal(t, "B,2,1\n", string(wa.last(t).Body))
}

// TestChannel_TimeoutSweep 测试超时清扫只驱逐未挂起的成员
func TestChannel_TimeoutSweep(t *testing.T) {
	ch, clk := newTestChannel(t, DefaultOptions())
	signIn(t, ch, "idle")
	parked := signIn(t, ch, "parked")

	// parked 先排空自身积压（无），然后挂起
	w := wait(t, ch, parked)
	require.Empty(t, w.sent)

	clk.Add(30 * time.Second)
	assert.Zero(t, ch.CheckForTimeout())

	clk.Add(time.Second)
	assert.Equal(t, 1, ch.CheckForTimeout())
	require.Equal(t, 1, ch.Len())
	assert.Equal(t, parked, ch.Roster()[0].ID)

	// 挂起的 parked 收到 idle 的离开通知
	assert.Equal(t, "idle,1,0\n", string(w.last(t).Body))

	clk.Add(time.Hour)
	assert.Equal(t, 1, ch.CheckForTimeout(), "通知送达后挂起结束，重新进入空闲计时")
}

// TestChannel_ParkedForeverNotEvicted 测试挂起的成员永不超时
func TestChannel_ParkedForeverNotEvicted(t *testing.T) {
	ch, clk := newTestChannel(t, DefaultOptions())
	id := signIn(t, ch, "A")
	wait(t, ch, id)

	for i := 0; i < 10; i++ {
		clk.Add(time.Hour)
		assert.Zero(t, ch.CheckForTimeout())
	}
	assert.Equal(t, 1, ch.Len())
}

// TestChannel_ClosingParkedKeepsMember 测试挂起连接关闭只释放挂起槽
func TestChannel_ClosingParkedKeepsMember(t *testing.T) {
	ch, clk := newTestChannel(t, DefaultOptions())
	id := signIn(t, ch, "A")
	w := wait(t, ch, id)

	clk.Add(time.Hour)
	ch.OnClosing(w)
	require.Equal(t, 1, ch.Len())

	snap := ch.Snapshot()
	require.Len(t, snap, 1)
	assert.False(t, snap[0].Waiting)
	assert.Equal(t, clk.Now(), snap[0].LastActivity)
	assert.Zero(t, ch.CheckForTimeout())
}

// TestChannel_DeliveryFailureCascade 测试广播失败级联驱逐
func TestChannel_DeliveryFailureCascade(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	a := signIn(t, ch, "A")
	b := signIn(t, ch, "B")
	signIn(t, ch, "C")

	// B 先取走 C 的加入通知，再以坏连接挂起
	first := wait(t, ch, b)
	assert.Equal(t, "C,3,1\n", string(first.last(t).Body))
	broken := get(t, "/wait?peer_id=2")
	broken.failSend = true
	ch.Handle(broken)

	d := get(t, "/sign_in?D")
	ch.Handle(d)

	roster, err := types.ParseRoster(string(d.last(t).Body))
	require.NoError(t, err)
	ids := make([]types.MemberID, 0, len(roster))
	for _, e := range roster {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []types.MemberID{4, 1, 3}, ids)

	// A 的积压：B 加入、C 加入、D 加入、B 离开
	var bodies []string
	for i := 0; i < 4; i++ {
		bodies = append(bodies, string(wait(t, ch, a).last(t).Body))
	}
	assert.Equal(t, []string{"B,2,1\n", "C,3,1\n", "D,4,1\n", "B,2,0\n"}, bodies)
}

// TestChannel_ForwardFailureEvictsTarget 测试转发失败驱逐目标
func TestChannel_ForwardFailureEvictsTarget(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	a := signIn(t, ch, "A")
	b := signIn(t, ch, "B")
	wait(t, ch, a) // 取走 B 的加入通知

	broken := get(t, "/wait?peer_id="+b.String())
	broken.failSend = true
	ch.Handle(broken)

	msg := post(t, "/message?peer_id=1&to=2", "text/plain", "hi")
	assert.Equal(t, KindMessage, ch.Handle(msg))
	assert.Equal(t, frame.StatusOK, msg.last(t).Status)

	assert.Equal(t, 1, ch.Len())
	assert.Equal(t, "B,2,0\n", string(wait(t, ch, a).last(t).Body))
}

// TestChannel_RemovalClosesParked 测试移除成员时关闭其挂起连接
func TestChannel_RemovalClosesParked(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	id := signIn(t, ch, "A")
	w := wait(t, ch, id)

	so := get(t, "/sign_out?peer_id=1")
	ch.Handle(so)
	ch.OnClosing(so)

	assert.Zero(t, ch.Len())
	assert.True(t, w.closed)
	assert.Empty(t, w.sent)
}

// TestChannel_CloseAll 测试关闭时通知所有成员
func TestChannel_CloseAll(t *testing.T) {
	ch, _ := newTestChannel(t, DefaultOptions())
	a := signIn(t, ch, "A")
	signIn(t, ch, "B")
	wait(t, ch, a) // 取走 B 的加入通知
	w := wait(t, ch, a)

	require.NoError(t, ch.CloseAll())
	assert.Zero(t, ch.Len())
	assert.Equal(t, DefaultShutdownMessage, string(w.last(t).Body))

	c := get(t, "/sign_in?late")
	assert.Equal(t, KindSignIn, ch.Handle(c))
	assert.Equal(t, frame.StatusError, c.last(t).Status)
	assert.NoError(t, ch.CloseAll())
}

// TestChannel_JoinOrderConverges 测试不同加入顺序下成员集合收敛
func TestChannel_JoinOrderConverges(t *testing.T) {
	names := [][]string{{"A", "B", "C"}, {"C", "A", "B"}, {"B", "C", "A"}}

	var views []map[string][]string
	for _, order := range names {
		ch, _ := newTestChannel(t, DefaultOptions())
		known := map[string][]string{}
		idToName := map[types.MemberID]string{}

		for _, n := range order {
			conn := get(t, "/sign_in?"+n)
			ch.Handle(conn)
			roster, err := types.ParseRoster(string(conn.last(t).Body))
			require.NoError(t, err)
			idToName[roster[0].ID] = n
			for _, e := range roster[1:] {
				known[n] = append(known[n], e.Name)
			}
		}
		for id, n := range idToName {
			for ch.find(id).QueueLen() > 0 {
				e, err := types.ParseEntry(string(wait(t, ch, id).last(t).Body))
				require.NoError(t, err)
				known[n] = append(known[n], e.Name)
			}
		}
		for n := range known {
			sort.Strings(known[n])
		}
		views = append(views, known)
	}

	want := map[string][]string{
		"A": {"B", "C"},
		"B": {"A", "C"},
		"C": {"A", "B"},
	}
	for _, v := range views {
		assert.Equal(t, want, v)
	}
}

// TestChannel_Events 测试事件发射
func TestChannel_Events(t *testing.T) {
	bus := eventbus.NewBus()
	defer bus.Close()

	joined, err := bus.Subscribe(new(types.EvtMemberJoined), pkgif.BufSize(8))
	require.NoError(t, err)
	left, err := bus.Subscribe(new(types.EvtMemberLeft), pkgif.BufSize(8))
	require.NoError(t, err)
	relayed, err := bus.Subscribe(new(types.EvtMessageRelayed), pkgif.BufSize(8))
	require.NoError(t, err)
	overflow, err := bus.Subscribe(new(types.EvtQueueOverflow), pkgif.BufSize(8))
	require.NoError(t, err)

	clk := clock.NewMock()
	opts := DefaultOptions()
	opts.MaxQueueDepth = 1
	ch, err := New(opts, clk, bus)
	require.NoError(t, err)

	signIn(t, ch, "A")
	signIn(t, ch, "B")
	ch.Handle(post(t, "/message?peer_id=2&to=1", "text/plain", "hi"))

	require.Len(t, joined.Out(), 2)
	evt := (<-joined.Out()).(*types.EvtMemberJoined)
	assert.Equal(t, "A", evt.Member.Name)
	assert.Equal(t, 1, evt.Total)

	rel := (<-relayed.Out()).(*types.EvtMessageRelayed)
	assert.Equal(t, types.MemberID(2), rel.From)
	assert.Equal(t, types.MemberID(1), rel.To)
	assert.Equal(t, 2, rel.Bytes)

	// A 的队列上限为 1，消息挤掉了 B 的加入通知
	ov := (<-overflow.Out()).(*types.EvtQueueOverflow)
	assert.Equal(t, types.MemberID(1), ov.Member)
	assert.Equal(t, 1, ov.Dropped)

	clk.Add(time.Minute)
	ch.CheckForTimeout()
	require.Len(t, left.Out(), 2)
	lv := (<-left.Out()).(*types.EvtMemberLeft)
	assert.Equal(t, types.LeaveReasonTimeout, lv.Reason)
	assert.False(t, lv.Member.Connected)

	require.NoError(t, ch.CloseAll())
}
