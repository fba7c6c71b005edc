package channel

import (
	"errors"

	"github.com/dep2p/go-signal/internal/core/frame"
)

// RequestKind 请求分类，用于日志与指标
type RequestKind string

const (
	KindOptions     RequestKind = "options"
	KindSignIn      RequestKind = "sign_in"
	KindWait        RequestKind = "wait"
	KindSignOut     RequestKind = "sign_out"
	KindMessage     RequestKind = "message"
	KindUnknownPeer RequestKind = "unknown_peer"
	KindNotFound    RequestKind = "not_found"
)

// 错误应答内容
const (
	bodyPeerGone    = "Peer most likely gone."
	bodyFailedToAdd = "Failed to add member."
	bodyNotFound    = "Not found."
)

// Handle 分发一个完整请求
//
// /wait 命中成员时连接保持挂起，其余情况都会同步应答并在发送后关闭连接。
func (c *Channel) Handle(conn Conn) RequestKind {
	f := conn.Frame()

	if f.Method() == frame.MethodOptions {
		c.reply(conn, frame.Response{Status: frame.StatusOK})
		return KindOptions
	}

	if m := c.Lookup(conn); m != nil {
		if m.IsWaitRequest(conn) {
			return KindWait
		}
		if target := c.TargetedRequest(conn); target != nil {
			c.Forward(conn, m, target)
			return KindMessage
		}
		if f.PathEquals(PathSignOut) {
			c.reply(conn, frame.Text(frame.StatusOK, ""))
			return KindSignOut
		}
		log.Debug("找不到转发目标", "path", f.Path(), "conn", conn.ID())
		c.reply(conn, frame.Text(frame.StatusError, bodyPeerGone))
		return KindUnknownPeer
	}

	if IsPeerConnection(f) {
		if f.PathEquals(PathSignIn) {
			if _, err := c.AddMember(conn); err != nil && !errors.Is(err, ErrDeliveryFailed) {
				log.Warn("添加成员失败", "conn", conn.ID(), "err", err)
				c.reply(conn, frame.Text(frame.StatusError, bodyFailedToAdd))
			}
			return KindSignIn
		}
		log.Debug("未找到成员", "path", f.Path(), "conn", conn.ID())
		c.reply(conn, frame.Text(frame.StatusError, bodyPeerGone))
		return KindUnknownPeer
	}

	if isActionPath(f) {
		log.Debug("未找到成员", "path", f.Path(), "conn", conn.ID())
		c.reply(conn, frame.Text(frame.StatusError, bodyPeerGone))
		return KindUnknownPeer
	}

	c.reply(conn, frame.Text(frame.StatusNotFound, bodyNotFound))
	return KindNotFound
}

func (c *Channel) reply(conn Conn, resp frame.Response) {
	if err := conn.Send(resp); err != nil {
		log.Debug("应答失败", "conn", conn.ID(), "err", err)
	}
}
