package frame

import (
	"bytes"
	"strconv"
	"strings"
)

// 状态行
const (
	StatusOK              = "200 OK"
	StatusAdded           = "200 Added"
	StatusBadRequest      = "400 Bad Request"
	StatusNotFound        = "404 Not Found"
	StatusTooManyRequests = "429 Too Many Requests"
	StatusError           = "500 Error"
)

// CrossOriginHeaders 每个响应都携带的固定 CORS 头
const CrossOriginHeaders = "Access-Control-Allow-Origin: *\r\n" +
	"Access-Control-Allow-Credentials: true\r\n" +
	"Access-Control-Allow-Methods: POST, GET, OPTIONS\r\n" +
	"Access-Control-Allow-Headers: Content-Type, Content-Length, Connection, Cache-Control\r\n" +
	"Access-Control-Expose-Headers: Content-Length\r\n"

// Response 待发送的响应
type Response struct {
	// Status 状态行，例如 "200 OK"
	Status string

	// KeepAlive 为 false 时发送后关闭连接
	KeepAlive bool

	ContentType string

	// ExtraHeaders 原样写出的附加头，每行以 "\r\n" 结尾
	ExtraHeaders string

	Body []byte

	// Server 可选的 Server 头
	Server string
}

// Marshal 序列化为 HTTP/1.1 响应
//
// Content-Length 为请求体字节数。
func (r Response) Marshal() []byte {
	var b bytes.Buffer
	b.Grow(256 + len(r.ExtraHeaders) + len(r.Body))

	b.WriteString("HTTP/1.1 ")
	b.WriteString(r.Status)
	b.WriteString("\r\n")
	if r.Server != "" {
		b.WriteString("Server: ")
		b.WriteString(r.Server)
		b.WriteString("\r\n")
	}
	b.WriteString("Cache-Control: no-cache\r\n")
	if r.ContentType != "" {
		b.WriteString("Content-Type: ")
		b.WriteString(r.ContentType)
		b.WriteString("\r\n")
	}
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(r.Body)))
	b.WriteString("\r\n")
	if r.ExtraHeaders != "" {
		b.WriteString(r.ExtraHeaders)
		if !strings.HasSuffix(r.ExtraHeaders, "\r\n") {
			b.WriteString("\r\n")
		}
	}
	b.WriteString(CrossOriginHeaders)
	if r.KeepAlive {
		b.WriteString("Connection: keep-alive\r\n")
	} else {
		b.WriteString("Connection: close\r\n")
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

// Text 构造 text/plain 响应
func Text(status, body string) Response {
	return Response{Status: status, ContentType: DefaultContentType, Body: []byte(body)}
}
