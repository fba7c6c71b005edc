package frame

// Method 请求方法
type Method int

const (
	// MethodNone 头部尚未解析完成
	MethodNone Method = iota
	// MethodGet GET
	MethodGet
	// MethodPost POST
	MethodPost
	// MethodOptions OPTIONS
	MethodOptions
)

// String 返回方法名
func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodOptions:
		return "OPTIONS"
	default:
		return "NONE"
	}
}

// parseMethod 区分大小写地匹配方法名
func parseMethod(s string) (Method, bool) {
	switch s {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	case "OPTIONS":
		return MethodOptions, true
	default:
		return MethodNone, false
	}
}
