// Package server 实现信令服务的 TCP 传输层
//
// 结构：
//
//	acceptLoop ──┐
//	readLoop × N ─┼──> events ──> dispatchLoop（唯一持有 Frame 与 Channel 的协程）
//	sweep ticker ─┘
//
// 读协程只负责读取字节并投递 data/closed 事件；请求解析、限流、
// 注册表操作和所有响应写出都在分发协程中完成，写出带 write_timeout 截止时间，
// 超时或失败即视为投递失败。Connection: close 的响应写出后立即关闭连接，
// 随后的 closed 事件触发注册表的关闭钩子。
//
// 诊断接口通过 Call 把查询投递到分发协程执行，因此不需要任何锁。
package server
