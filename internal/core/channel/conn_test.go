package channel

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-signal/internal/core/frame"
	"github.com/dep2p/go-signal/pkg/types"
)

var errBrokenPipe = errors.New("broken pipe")

// fakeConn 内存连接
type fakeConn struct {
	id       string
	f        *frame.Frame
	sent     []frame.Response
	failSend bool
	closed   bool
}

var connSeq int

func newConn(t *testing.T, raw string) *fakeConn {
	t.Helper()
	f := frame.New(frame.Limits{})
	done, err := f.Feed([]byte(raw))
	require.NoError(t, err)
	require.True(t, done, "incomplete request: %q", raw)
	connSeq++
	return &fakeConn{id: fmt.Sprintf("c%d", connSeq), f: f}
}

func get(t *testing.T, target string) *fakeConn {
	return newConn(t, "GET "+target+" HTTP/1.1\r\nHost: test\r\n\r\n")
}

func post(t *testing.T, target, contentType, body string) *fakeConn {
	return newConn(t, fmt.Sprintf("POST %s HTTP/1.1\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n%s",
		target, contentType, len(body), body))
}

func (c *fakeConn) ID() string          { return c.id }
func (c *fakeConn) Frame() *frame.Frame { return c.f }
func (c *fakeConn) Close() error        { c.closed = true; return nil }

func (c *fakeConn) Send(resp frame.Response) error {
	if c.failSend {
		return errBrokenPipe
	}
	c.sent = append(c.sent, resp)
	if !resp.KeepAlive {
		c.closed = true
	}
	return nil
}

// last 返回最后一次发送的响应
func (c *fakeConn) last(t *testing.T) frame.Response {
	t.Helper()
	require.NotEmpty(t, c.sent, "conn %s sent nothing", c.id)
	return c.sent[len(c.sent)-1]
}

// signIn 注册并返回成员标识
func signIn(t *testing.T, ch *Channel, name string) types.MemberID {
	t.Helper()
	conn := get(t, "/sign_in?"+name)
	require.Equal(t, KindSignIn, ch.Handle(conn))
	resp := conn.last(t)
	require.Equal(t, frame.StatusAdded, resp.Status)
	id, err := types.ParseMemberID(strings.TrimSpace(strings.TrimPrefix(resp.ExtraHeaders, "Pragma:")))
	require.NoError(t, err)
	return id
}

// wait 发起 /wait
func wait(t *testing.T, ch *Channel, id types.MemberID) *fakeConn {
	t.Helper()
	conn := get(t, "/wait?peer_id="+id.String())
	require.Equal(t, KindWait, ch.Handle(conn))
	return conn
}
