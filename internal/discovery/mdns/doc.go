// Package mdns 在局域网内通告信令服务
//
// 服务以 <instance>.<service>.<domain> 的形式发布，TXT 记录：
//
//	id=<实例标识>
//	path=/sign_in
//
// 客户端可用 Browse 查找同一网段内的信令服务，然后直接连接
// ServerInfo.Addr() 发起注册。
package mdns
