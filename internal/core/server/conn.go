package server

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-signal/internal/core/channel"
	"github.com/dep2p/go-signal/internal/core/frame"
)

// conn 客户端连接
//
// 除 raw 的读取外，所有字段只在分发协程中访问。
type conn struct {
	id    string
	raw   net.Conn
	frame *frame.Frame
	srv   *Server

	closed bool
}

var _ channel.Conn = (*conn)(nil)

func newConn(srv *Server, raw net.Conn) *conn {
	return &conn{
		id:  uuid.NewString(),
		raw: raw,
		frame: frame.New(frame.Limits{
			MaxHeaderBytes: srv.cfg.MaxHeaderBytes,
			MaxBodyBytes:   srv.cfg.MaxBodyBytes,
		}),
		srv: srv,
	}
}

// ID 返回连接标识
func (c *conn) ID() string { return c.id }

// Frame 返回请求帧
func (c *conn) Frame() *frame.Frame { return c.frame }

// Send 写出响应
//
// 写出受 write_timeout 限制；KeepAlive 为 false 时写出后关闭连接，
// 否则清空请求帧等待下一个请求。信令应答目前都不保持连接，
// 每次交换后客户端重新连接。
func (c *conn) Send(resp frame.Response) error {
	if c.closed {
		return ErrConnClosed
	}
	if resp.Server == "" {
		resp.Server = c.srv.cfg.ServerName
	}
	data := resp.Marshal()

	if timeout := c.srv.cfg.WriteTimeout.Duration(); timeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(timeout))
	}
	n, err := c.raw.Write(data)
	c.srv.traffic.LogSent(n)
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("write %s: %w", c.id, err)
	}

	if !resp.KeepAlive {
		return c.Close()
	}
	c.frame.Reset()
	return nil
}

// Close 关闭连接，可重复调用
//
// 读协程随后读到错误并投递 closed 事件。
func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.raw.Close()
}

// remoteAddr 远端地址
func (c *conn) remoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
