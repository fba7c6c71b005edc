// Package channel 实现信令成员注册表
//
// Channel 维护按加入顺序排列的成员列表，负责：
//   - 注册（/sign_in）与名册应答
//   - 长轮询挂起（/wait）与通知投递
//   - 点对点消息转发（to=<id>）
//   - 加入/离开广播，投递失败级联驱逐
//   - 空闲超时清扫
//
// # 并发模型
//
// Channel 与 Member 均不加锁。服务端在单一分发协程中调用全部方法，
// 连接读取协程只负责把字节和关闭事件投递给该协程。
//
// # 投递约定
//
// 挂起连接上的投递和即时应答走同一个 Conn.Send；Response.KeepAlive 为 false
// 时传输层在发送后关闭连接，随后的关闭事件回到 OnClosing。
package channel
