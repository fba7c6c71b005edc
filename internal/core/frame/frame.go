package frame

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// DefaultContentType 未声明 Content-Type 时的默认值
const DefaultContentType = "text/plain"

var headerTerminator = []byte("\r\n\r\n")

// Limits 帧大小限制，0 表示不限制
type Limits struct {
	MaxHeaderBytes int
	MaxBodyBytes   int
}

// Frame 单个连接上的请求帧
type Frame struct {
	limits Limits

	// pending 头部结束前累积的字节
	pending []byte

	method        Method
	path          string
	headers       string
	contentLength int
	contentType   string
	body          []byte
}

// New 创建请求帧
func New(limits Limits) *Frame {
	return &Frame{limits: limits}
}

// Feed 追加新到达的字节
//
// 返回 done=true 表示请求已完整；返回错误表示请求畸形，调用方应关闭连接。
// 头部一旦解析完成便不再重新解析，之后的字节全部视为请求体。
func (f *Frame) Feed(p []byte) (done bool, err error) {
	if f.method == MethodNone {
		f.pending = append(f.pending, p...)
		idx := bytes.Index(f.pending, headerTerminator)
		if idx < 0 {
			if f.limits.MaxHeaderBytes > 0 && len(f.pending) > f.limits.MaxHeaderBytes {
				return false, ErrHeaderTooLarge
			}
			return false, nil
		}
		if f.limits.MaxHeaderBytes > 0 && idx > f.limits.MaxHeaderBytes {
			return false, ErrHeaderTooLarge
		}
		if err := f.parseHeaders(string(f.pending[:idx])); err != nil {
			return false, err
		}
		// 终止符之后的剩余字节属于请求体
		rest := f.pending[idx+len(headerTerminator):]
		f.body = append(f.body[:0], rest...)
		f.pending = nil
	} else {
		f.body = append(f.body, p...)
	}

	if f.limits.MaxBodyBytes > 0 && len(f.body) > f.limits.MaxBodyBytes {
		return false, ErrBodyTooLarge
	}
	return f.Complete(), nil
}

// parseHeaders 解析请求行和头部块（不含终止符）
func (f *Frame) parseHeaders(block string) error {
	requestLine, headers, _ := strings.Cut(block, "\r\n")

	methodStr, rest, ok := strings.Cut(requestLine, " ")
	if !ok {
		return fmt.Errorf("%w: request line %q", ErrMalformedRequest, requestLine)
	}
	method, ok := parseMethod(methodStr)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, methodStr)
	}
	path, version, ok := strings.Cut(rest, " ")
	if !ok || path == "" || version == "" {
		return fmt.Errorf("%w: request line %q", ErrMalformedRequest, requestLine)
	}

	contentLength := 0
	contentType := DefaultContentType
	for _, line := range strings.Split(headers, "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		switch {
		case strings.EqualFold(name, "Content-Length"):
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: content-length %q", ErrMalformedRequest, value)
			}
			contentLength = n
		case strings.EqualFold(name, "Content-Type"):
			if value != "" {
				contentType = value
			}
		}
	}
	if f.limits.MaxBodyBytes > 0 && contentLength > f.limits.MaxBodyBytes {
		return fmt.Errorf("%w: content-length %d", ErrBodyTooLarge, contentLength)
	}

	f.path = path
	f.headers = headers
	f.contentLength = contentLength
	f.contentType = contentType
	f.method = method
	return nil
}

// Reset 清空帧，供同一连接上的下一次交换复用
func (f *Frame) Reset() {
	f.pending = f.pending[:0]
	f.method = MethodNone
	f.path = ""
	f.headers = ""
	f.contentLength = 0
	f.contentType = ""
	f.body = f.body[:0]
}

// HeadersComplete 头部是否已解析
func (f *Frame) HeadersComplete() bool {
	return f.method != MethodNone
}

// BodyComplete 请求体是否已完整（非 POST 恒为 true）
func (f *Frame) BodyComplete() bool {
	return f.method != MethodPost || len(f.body) >= f.contentLength
}

// Complete 请求是否完整
func (f *Frame) Complete() bool {
	return f.HeadersComplete() && f.BodyComplete()
}

// Method 返回请求方法
func (f *Frame) Method() Method { return f.method }

// Path 返回请求目标（含查询串）
func (f *Frame) Path() string { return f.path }

// Headers 返回原始头部块
func (f *Frame) Headers() string { return f.headers }

// ContentLength 返回声明的请求体长度
func (f *Frame) ContentLength() int { return f.contentLength }

// ContentType 返回请求体类型
func (f *Frame) ContentType() string { return f.contentType }

// Body 返回请求体，超出 Content-Length 的字节不计入
func (f *Frame) Body() []byte {
	if f.HeadersComplete() && len(f.body) > f.contentLength {
		return f.body[:f.contentLength]
	}
	return f.body
}

// PathEquals 比较查询串之前的路径部分
func (f *Frame) PathEquals(path string) bool {
	p, _, _ := strings.Cut(f.path, "?")
	return p == path
}

// Arguments 返回 '?' 之后的原始查询串
func (f *Frame) Arguments() string {
	_, args, _ := strings.Cut(f.path, "?")
	return args
}

// Query 解析查询串
func (f *Frame) Query() Query {
	return ParseQuery(f.Arguments())
}
