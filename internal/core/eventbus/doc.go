// Package eventbus 实现进程内事件总线
//
// 注册表在分发循环中发射成员与消息事件，指标、诊断等模块订阅这些事件。
// 发射永不阻塞分发循环：订阅者缓冲区满时事件被丢弃并计数。
//
// 使用示例：
//
//	bus := eventbus.NewBus()
//	sub, _ := bus.Subscribe(new(types.EvtMemberJoined), eventbus.BufSize(64))
//	em, _ := bus.Emitter(new(types.EvtMemberJoined))
//	_ = em.Emit(&types.EvtMemberJoined{...})
//	evt := (<-sub.Out()).(*types.EvtMemberJoined)
package eventbus
