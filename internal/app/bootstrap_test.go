package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-signal/config"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	return cfg
}

// TestBootstrap_StartStop 测试完整组装、注册与关闭
func TestBootstrap_StartStop(t *testing.T) {
	b := NewBootstrap(testConfig(), WithClock(clock.NewMock()))
	rt, err := b.Start(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rt.Server)
	require.NotNil(t, rt.Collector)
	assert.NotEmpty(t, b.Config().InstanceID)

	c, err := net.Dial("tcp", rt.Server.Addr().String())
	require.NoError(t, err)
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	_, err = io.WriteString(c, "GET /sign_in?alice HTTP/1.1\r\nHost: t\r\n\r\n")
	require.NoError(t, err)
	raw, err := io.ReadAll(c)
	require.NoError(t, err)
	c.Close()
	assert.True(t, strings.HasPrefix(string(raw), "HTTP/1.1 200 Added\r\n"))
	assert.True(t, strings.HasSuffix(string(raw), "alice,1,1\n"))

	require.Eventually(t, func() bool {
		members, err := rt.Server.Members(context.Background())
		return err == nil && len(members) == 1
	}, 3*time.Second, 5*time.Millisecond)

	require.NoError(t, rt.Stop(context.Background()))
}

// TestBootstrap_InvalidConfig 测试无效配置
func TestBootstrap_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ListenAddr = "not-an-address"

	b := NewBootstrap(cfg)
	_, err := b.Start(context.Background())
	assert.Error(t, err)
	assert.NoError(t, b.Stop(context.Background()))
}

// TestBootstrap_Diagnostics 测试诊断服务随应用启动
func TestBootstrap_Diagnostics(t *testing.T) {
	cfg := testConfig()
	cfg.Diagnostics.EnableDiagnostics = true
	cfg.Diagnostics.DiagnosticsAddr = "127.0.0.1:0"

	b := NewBootstrap(cfg)
	rt, err := b.Start(context.Background())
	require.NoError(t, err)
	defer rt.Stop(context.Background())

	resp, err := http.Get("http://" + rt.Introspect.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "signal_members")
}

// TestRun_ContextCancel 测试上下文取消后退出
func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, NewBootstrap(testConfig()))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run 未退出")
	}
}

// TestConfigWatcher_Reload 测试配置文件变化触发重新加载
func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	reloaded := make(chan *config.Config, 16)
	w, err := watchConfig(path, func(c *config.Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))

	// 截断与写入可能各触发一次事件
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-reloaded:
			if c.Log.Level == "warn" {
				require.NoError(t, w.Close())
				return
			}
		case <-deadline:
			t.Fatal("未收到重新加载")
		}
	}
}

// TestConfigWatcher_InvalidFile 测试无效配置保持当前值
func TestConfigWatcher_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log":{"level":"info"}}`), 0o644))

	w, err := watchConfig(path, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`{"log":`), 0o644))
	w.reload()
	assert.Equal(t, "info", w.baseline.Log.Level)
}

func TestRestartRequired(t *testing.T) {
	a := config.NewConfig()
	b := config.CloneConfig(a)
	b.Log.Level = "debug"
	assert.False(t, restartRequired(a, b))

	b.Server.ListenAddr = "0.0.0.0:9999"
	assert.True(t, restartRequired(a, b))
}
