// Package interfaces 定义信令服务的公共接口
//
// 本包只包含跨模块共享的抽象，实现位于 internal/ 下：
//   - eventbus.go - 事件总线（成员加入/离开、消息转发等通知）
package interfaces
