// Package frame 实现增量 HTTP 请求帧解析与响应序列化
//
// Frame 从任意切分的字节片段中重建一个完整请求：
//
//	f := frame.New(frame.Limits{MaxHeaderBytes: 8 << 10, MaxBodyBytes: 1 << 20})
//	for {
//	    n, _ := conn.Read(buf)
//	    done, err := f.Feed(buf[:n])
//	    if err != nil { /* 畸形请求，关闭连接 */ }
//	    if done { break }
//	}
//
// 仅支持 GET/POST/OPTIONS，方法名区分大小写；Content-Length 与
// Content-Type 头名不区分大小写。查询串不做 URL 解码。
//
// Frame 不是并发安全的，由持有连接的单一协程使用。
package frame
