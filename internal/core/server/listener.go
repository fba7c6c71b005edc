package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	temperrcatcher "github.com/jbenet/go-temp-err-catcher"
	"golang.org/x/net/netutil"

	"github.com/dep2p/go-signal/config"
)

// listen 创建 TCP 监听器，max_connections > 0 时限制并发连接数
func listen(cfg config.ServerConfig) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}
	return ln, nil
}

// acceptLoop 接受连接循环
//
// 临时错误按退避重试；监听器关闭后正常退出。
func (s *Server) acceptLoop(ctx context.Context) error {
	var catcher temperrcatcher.TempErrCatcher

	for {
		raw, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if catcher.IsTemporary(err) {
				log.Warn("接受连接出现临时错误", "err", err)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		c := newConn(s, raw)
		if !s.post(event{kind: evOpen, conn: c}) {
			_ = raw.Close()
			return nil
		}
		s.readers.Add(1)
		go s.readLoop(c)
	}
}

// readLoop 连接读协程
//
// 只读取字节并投递给分发协程，读到错误时投递 closed 事件后退出。
func (s *Server) readLoop(c *conn) {
	defer s.readers.Done()

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := c.raw.Read(buf)
		if n > 0 {
			s.traffic.LogRecv(n)
			data := append([]byte(nil), buf[:n]...)
			if !s.post(event{kind: evData, conn: c, data: data}) {
				_ = c.raw.Close()
				return
			}
		}
		if err != nil {
			s.post(event{kind: evClosed, conn: c, err: err})
			return
		}
	}
}
