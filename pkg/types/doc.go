// Package types 定义信令服务的公共数据结构
//
// 这是系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - ids.go    - MemberID 成员标识
//   - roster.go - 名册条目（name,id,connected）的编解码
//   - events.go - 成员加入/离开/转发等事件，经事件总线分发
package types
