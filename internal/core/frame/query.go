package frame

import (
	"strconv"
	"strings"
)

// Param 查询参数
type Param struct {
	Key   string
	Value string
}

// Query 按出现顺序保存的查询参数，不做 URL 解码
type Query []Param

// ParseQuery 先按 '&' 再按第一个 '=' 切分
//
// 没有 '=' 的片段作为值为空的键保留。
func ParseQuery(raw string) Query {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "&")
	q := make(Query, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		q = append(q, Param{Key: k, Value: v})
	}
	return q
}

// Get 返回第一个同名参数的值
func (q Query) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Int 返回第一个同名参数的十进制整数值
func (q Query) Int(key string) (int, bool) {
	v, ok := q.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
