package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/core/channel"
	"github.com/dep2p/go-signal/internal/core/frame"
	"github.com/dep2p/go-signal/internal/core/limiter"
	"github.com/dep2p/go-signal/internal/core/metrics"
	"github.com/dep2p/go-signal/internal/util/logger"
)

var log = logger.Logger("core/server")

// 非注册表请求的分类
const (
	kindMalformed   = "malformed"
	kindRateLimited = "rate_limited"
)

// 错误应答内容
const (
	bodyBadRequest      = "Bad request."
	bodyTooManyRequests = "Too many requests."
)

// DefaultSweepInterval 默认超时清扫周期
const DefaultSweepInterval = 5 * time.Second

// ============================================================================
//                              事件
// ============================================================================

type eventKind int

const (
	evOpen eventKind = iota
	evData
	evClosed
)

// event 读协程投递给分发协程的事件
type event struct {
	kind eventKind
	conn *conn
	data []byte
	err  error
}

// ============================================================================
//                              Server
// ============================================================================

// Deps 服务依赖；Limiter、Collector、Traffic 可为 nil
type Deps struct {
	Config        config.ServerConfig
	SweepInterval time.Duration
	Channel       *channel.Channel
	Clock         clock.Clock
	Limiter       *limiter.Limiter
	Collector     *metrics.Collector
	Traffic       *metrics.Traffic
}

// Server 信令服务
type Server struct {
	cfg     config.ServerConfig
	sweep   time.Duration
	ch      *channel.Channel
	clk     clock.Clock
	lim     *limiter.Limiter
	stats   *metrics.Collector
	traffic *metrics.Traffic

	// events 无缓冲：分发协程退出后投递必然落到 done 分支
	events chan event
	calls  chan func()
	done   chan struct{}

	mu      sync.Mutex
	ln      net.Listener
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool
	closed  atomic.Bool
	readers sync.WaitGroup

	// conns 仅分发协程访问
	conns map[*conn]struct{}
}

// New 创建服务
func New(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.SweepInterval <= 0 {
		d.SweepInterval = DefaultSweepInterval
	}
	if d.Config.ReadBufferSize <= 0 {
		d.Config.ReadBufferSize = config.DefaultServerConfig().ReadBufferSize
	}
	return &Server{
		cfg:     d.Config,
		sweep:   d.SweepInterval,
		ch:      d.Channel,
		clk:     d.Clock,
		lim:     d.Limiter,
		stats:   d.Collector,
		traffic: d.Traffic,
		events:  make(chan event),
		calls:   make(chan func()),
		done:    make(chan struct{}),
		conns:   make(map[*conn]struct{}),
	}
}

// Start 开始监听并启动分发协程
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrServerClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}

	ln, err := listen(s.cfg)
	if err != nil {
		return err
	}
	s.ln = ln

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	s.group = g
	g.Go(func() error { return s.acceptLoop(gctx) })
	g.Go(func() error { return s.dispatchLoop(gctx) })

	s.started = true
	log.Info("信令服务已启动", "addr", ln.Addr().String())
	return nil
}

// Stop 停止服务
//
// 关闭监听器，注册表向所有成员投递关闭通知，然后关闭全部连接并等待读协程退出。
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed.Swap(true) || !s.started {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	lnErr := s.ln.Close()
	if errors.Is(lnErr, net.ErrClosed) {
		lnErr = nil
	}
	g := s.group
	s.mu.Unlock()

	waitDone := make(chan error, 1)
	go func() {
		err := g.Wait()
		s.readers.Wait()
		waitDone <- err
	}()

	select {
	case err := <-waitDone:
		log.Info("信令服务已停止")
		return multierr.Combine(err, lnErr)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr 返回实际监听地址
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Done 分发协程退出后关闭
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// post 把事件交给分发协程，分发协程已退出时返回 false
func (s *Server) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Call 在分发协程中执行 fn 并等待完成
func (s *Server) Call(ctx context.Context, fn func(ch *channel.Channel)) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return ErrServerClosed
	}

	finished := make(chan struct{})
	select {
	case s.calls <- func() { fn(s.ch); close(finished) }:
	case <-s.done:
		return ErrServerClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Members 返回注册表快照
func (s *Server) Members(ctx context.Context) ([]channel.MemberInfo, error) {
	var out []channel.MemberInfo
	err := s.Call(ctx, func(ch *channel.Channel) {
		out = ch.Snapshot()
	})
	return out, err
}

// Traffic 返回连接读写统计
func (s *Server) Traffic() metrics.Stats {
	return s.traffic.Totals()
}

// ============================================================================
//                              分发协程
// ============================================================================

func (s *Server) dispatchLoop(ctx context.Context) error {
	defer close(s.done)

	ticker := s.clk.Ticker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case fn := <-s.calls:
			fn()
		case <-ticker.C:
			if n := s.ch.CheckForTimeout(); n > 0 {
				log.Debug("超时清扫完成", "evicted", n, "remaining", s.ch.Len())
			}
		case <-ctx.Done():
			return s.shutdown()
		}
	}
}

func (s *Server) handleEvent(ev event) {
	switch ev.kind {
	case evOpen:
		s.conns[ev.conn] = struct{}{}
		s.stats.ConnOpened()
		log.Debug("新连接", "conn", ev.conn.id, "remote", ev.conn.remoteAddr())
	case evData:
		s.handleData(ev.conn, ev.data)
	case evClosed:
		s.handleClosed(ev.conn, ev.err)
	}
}

// handleData 把字节喂给请求帧，请求完整后交给注册表
func (s *Server) handleData(c *conn, data []byte) {
	if c.closed {
		return
	}
	if c.frame.Complete() {
		log.Debug("忽略请求完成后的数据", "conn", c.id, "bytes", len(data))
		return
	}

	done, err := c.frame.Feed(data)
	if err != nil {
		log.Warn("畸形请求，关闭连接", "conn", c.id, "remote", c.remoteAddr(), "err", err)
		s.reply(c, frame.Text(frame.StatusBadRequest, bodyBadRequest))
		s.stats.ObserveRequest(kindMalformed)
		return
	}
	if done {
		s.serve(c)
	}
}

// serve 处理一个完整请求
func (s *Server) serve(c *conn) {
	f := c.frame
	key := limiter.KeyFromAddr(c.remoteAddr())
	if err := s.lim.Allow(key, f.PathEquals(channel.PathSignIn)); err != nil {
		log.Debug("请求被限速", "conn", c.id, "remote", key, "path", f.Path())
		s.reply(c, frame.Text(frame.StatusTooManyRequests, bodyTooManyRequests))
		s.stats.ObserveRequest(kindRateLimited)
		return
	}

	kind := s.ch.Handle(c)
	s.stats.ObserveRequest(string(kind))
}

// handleClosed 连接关闭，触发注册表关闭钩子
func (s *Server) handleClosed(c *conn, err error) {
	if _, ok := s.conns[c]; !ok {
		return
	}
	delete(s.conns, c)
	_ = c.Close()
	s.stats.ConnClosed()

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		log.Debug("连接读取出错", "conn", c.id, "err", err)
	}
	s.ch.OnClosing(c)
}

func (s *Server) reply(c *conn, resp frame.Response) {
	if err := c.Send(resp); err != nil {
		log.Debug("应答失败", "conn", c.id, "err", err)
	}
}

// shutdown 分发协程退出前关闭注册表与全部连接
func (s *Server) shutdown() error {
	err := s.ch.CloseAll()
	for c := range s.conns {
		if cerr := c.Close(); cerr != nil {
			log.Debug("关闭连接出错", "conn", c.id, "err", cerr)
		}
		s.stats.ConnClosed()
	}
	s.conns = make(map[*conn]struct{})
	return err
}
