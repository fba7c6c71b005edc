package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/core/channel"
	"github.com/dep2p/go-signal/internal/core/limiter"
	"github.com/dep2p/go-signal/internal/core/metrics"
	"github.com/dep2p/go-signal/pkg/types"
)

// reply 客户端读到的响应
type reply struct {
	resp *http.Response
	body string
	err  error
}

func (r reply) pragma() string { return r.resp.Header.Get("Pragma") }

type testEnv struct {
	srv  *Server
	addr string
	clk  clock.Clock
}

func startServer(t *testing.T, clk clock.Clock, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	if mutate != nil {
		mutate(cfg)
	}

	ch, err := channel.New(channel.OptionsFromConfig(cfg.Channel), clk, nil)
	require.NoError(t, err)

	srv := New(Deps{
		Config:        cfg.Server,
		SweepInterval: cfg.Channel.SweepInterval.Duration(),
		Channel:       ch,
		Clock:         clk,
		Limiter:       limiter.New(cfg.Limits, clk),
		Collector:     metrics.NewCollector(nil),
		Traffic:       metrics.NewTraffic(clk),
	})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return &testEnv{srv: srv, addr: srv.Addr().String(), clk: clk}
}

// exchange 建立新连接发送原始请求并读取响应
func exchange(addr, raw string) reply {
	c, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return reply{err: err}
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(c, raw); err != nil {
		return reply{err: err}
	}
	resp, err := http.ReadResponse(bufio.NewReader(c), nil)
	if err != nil {
		return reply{err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return reply{resp: resp, body: string(body), err: err}
}

func (e *testEnv) get(t *testing.T, target string) reply {
	t.Helper()
	r := exchange(e.addr, "GET "+target+" HTTP/1.1\r\nHost: test\r\n\r\n")
	require.NoError(t, r.err)
	return r
}

func (e *testEnv) post(t *testing.T, target, contentType, body string) reply {
	t.Helper()
	r := exchange(e.addr, fmt.Sprintf(
		"POST %s HTTP/1.1\r\nHost: test\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n%s",
		target, contentType, len(body), body))
	require.NoError(t, r.err)
	return r
}

// park 异步发起 /wait，返回结果通道
func (e *testEnv) park(t *testing.T, id types.MemberID) <-chan reply {
	t.Helper()
	out := make(chan reply, 1)
	go func() {
		out <- exchange(e.addr, "GET /wait?peer_id="+id.String()+" HTTP/1.1\r\nHost: test\r\n\r\n")
	}()
	e.waitFor(t, func(members []channel.MemberInfo) bool {
		for _, m := range members {
			if m.ID == id && m.Waiting {
				return true
			}
		}
		return false
	})
	return out
}

// waitFor 轮询注册表快照直到 cond 成立
func (e *testEnv) waitFor(t *testing.T, cond func([]channel.MemberInfo) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		members, err := e.srv.Members(context.Background())
		return err == nil && cond(members)
	}, 3*time.Second, 5*time.Millisecond)
}

func recv(t *testing.T, ch <-chan reply) reply {
	t.Helper()
	select {
	case r := <-ch:
		require.NoError(t, r.err)
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("long-poll 未返回")
		return reply{}
	}
}

// TestServer_EndToEnd 测试两个成员的完整信令流程
func TestServer_EndToEnd(t *testing.T) {
	env := startServer(t, nil, nil)

	a := env.get(t, "/sign_in?alice")
	assert.Equal(t, 200, a.resp.StatusCode)
	assert.Equal(t, "200 Added", a.resp.Status)
	assert.Equal(t, "1", a.pragma())
	assert.Equal(t, "alice,1,1\n", a.body)

	b := env.get(t, "/sign_in?bob")
	assert.Equal(t, "2", b.pragma())
	assert.Equal(t, "bob,2,1\nalice,1,1\n", b.body)

	// 积压的加入通知在下一次 /wait 上立即返回
	w := env.get(t, "/wait?peer_id=1")
	assert.Equal(t, "bob,2,1\n", w.body)
	assert.Equal(t, "2", w.pragma())

	parked := env.park(t, 2)
	ack := env.post(t, "/message?peer_id=1&to=2", "application/json", "hello")
	assert.Equal(t, 200, ack.resp.StatusCode)
	assert.Empty(t, ack.body)

	got := recv(t, parked)
	assert.Equal(t, "hello", got.body)
	assert.Equal(t, "1", got.pragma())
	assert.Equal(t, "application/json", got.resp.Header.Get("Content-Type"))
	assert.Equal(t, "close", got.resp.Header.Get("Connection"))

	out := env.get(t, "/sign_out?peer_id=2")
	assert.Equal(t, 200, out.resp.StatusCode)
	assert.Empty(t, out.body)

	// 离开通知可能先于 /wait 到达（立即返回），也可能在挂起期间到达
	left := env.get(t, "/wait?peer_id=1")
	assert.Equal(t, "bob,2,0\n", left.body)
	assert.Equal(t, "2", left.pragma())

	env.waitFor(t, func(m []channel.MemberInfo) bool { return len(m) == 1 })
}

// TestServer_Rejections 测试非成员请求的应答
func TestServer_Rejections(t *testing.T) {
	env := startServer(t, nil, nil)

	t.Run("options", func(t *testing.T) {
		r := exchange(env.addr, "OPTIONS /sign_in HTTP/1.1\r\nHost: test\r\n\r\n")
		require.NoError(t, r.err)
		assert.Equal(t, 200, r.resp.StatusCode)
		assert.Empty(t, r.body)
		assert.Equal(t, "*", r.resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("browser", func(t *testing.T) {
		r := env.get(t, "/index.html")
		assert.Equal(t, 404, r.resp.StatusCode)
		assert.Equal(t, "Not found.", r.body)
	})

	t.Run("unknown peer", func(t *testing.T) {
		r := env.get(t, "/wait?peer_id=42")
		assert.Equal(t, 500, r.resp.StatusCode)
		assert.Equal(t, "Peer most likely gone.", r.body)
	})

	t.Run("malformed", func(t *testing.T) {
		r := exchange(env.addr, "BREW /pot HTTP/1.1\r\n\r\n")
		require.NoError(t, r.err)
		assert.Equal(t, 400, r.resp.StatusCode)
	})

	t.Run("body too large", func(t *testing.T) {
		r := exchange(env.addr, "POST /message?peer_id=1&to=1 HTTP/1.1\r\nContent-Length: 99999999\r\n\r\n")
		require.NoError(t, r.err)
		assert.Equal(t, 400, r.resp.StatusCode)
	})
}

// TestServer_SplitRequest 测试分多次到达的请求
func TestServer_SplitRequest(t *testing.T) {
	env := startServer(t, nil, nil)

	c, err := net.Dial("tcp", env.addr)
	require.NoError(t, err)
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))

	for _, part := range []string{"GET /sign_in?", "carol HTTP/1.1\r\n", "Host: test\r\n", "\r\n"} {
		_, err := io.WriteString(c, part)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.ReadResponse(bufio.NewReader(c), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "carol,1,1\n", string(body))
}

// TestServer_RateLimit 测试按来源 IP 限速
func TestServer_RateLimit(t *testing.T) {
	env := startServer(t, clock.NewMock(), func(cfg *config.Config) {
		cfg.Limits.EnableRateLimit = true
		cfg.Limits.RequestRPS = 0.001
		cfg.Limits.RequestBurst = 2
	})

	assert.Equal(t, 404, env.get(t, "/").resp.StatusCode)
	assert.Equal(t, 404, env.get(t, "/").resp.StatusCode)

	r := env.get(t, "/")
	assert.Equal(t, 429, r.resp.StatusCode)
	assert.Equal(t, "Too many requests.", r.body)
}

// TestServer_TimeoutSweep 测试清扫协程驱逐空闲成员但保留挂起成员
func TestServer_TimeoutSweep(t *testing.T) {
	clk := clock.NewMock()
	env := startServer(t, clk, nil)

	env.get(t, "/sign_in?idle")
	env.get(t, "/sign_in?parked")
	// 先排空加入通知
	env.get(t, "/wait?peer_id=1")
	parked := env.park(t, 2)

	env.waitFor(t, func(m []channel.MemberInfo) bool {
		clk.Add(5 * time.Second)
		return len(m) == 1 && m[0].ID == 2
	})

	r := recv(t, parked)
	assert.Equal(t, "idle,1,0\n", r.body)
}

// TestServer_StopNotifiesParked 测试关闭时挂起连接收到关闭通知
func TestServer_StopNotifiesParked(t *testing.T) {
	env := startServer(t, nil, nil)

	env.get(t, "/sign_in?alice")
	parked := env.park(t, 1)

	require.NoError(t, env.srv.Stop(context.Background()))

	r := recv(t, parked)
	assert.Equal(t, channel.DefaultShutdownMessage, r.body)

	_, err := env.srv.Members(context.Background())
	assert.ErrorIs(t, err, ErrServerClosed)
	assert.ErrorIs(t, env.srv.Start(context.Background()), ErrServerClosed)
	require.NoError(t, env.srv.Stop(context.Background()))
}

// TestServer_Traffic 测试读写字节计数
func TestServer_Traffic(t *testing.T) {
	env := startServer(t, nil, nil)

	env.get(t, "/sign_in?alice")
	require.Eventually(t, func() bool {
		s := env.srv.Traffic()
		return s.TotalIn > 0 && s.TotalOut > 0
	}, 3*time.Second, 5*time.Millisecond)
}
