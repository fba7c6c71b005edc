package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxNameLength 名称最大字节数
const MaxNameLength = 512

// ErrInvalidEntry 无效的名册条目
var ErrInvalidEntry = errors.New("types: invalid roster entry")

// Entry 名册条目
//
// 线上格式为 "<name>,<id>,<0|1>\n"。名称在注册时已将逗号替换为下划线，
// 解析时按前两个逗号切分。
type Entry struct {
	Name      string
	ID        MemberID
	Connected bool
}

// String 返回线上格式（含结尾换行）
func (e Entry) String() string {
	return FormatEntry(e.Name, e.ID, e.Connected)
}

// FormatEntry 序列化一个名册条目，名称超长部分被截断
func FormatEntry(name string, id MemberID, connected bool) string {
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	c := 0
	if connected {
		c = 1
	}
	return fmt.Sprintf("%s,%d,%d\n", name, id, c)
}

// ParseEntry 解析单行名册条目（结尾换行可选）
func ParseEntry(line string) (Entry, error) {
	line = strings.TrimSuffix(line, "\n")

	name, rest, ok := strings.Cut(line, ",")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntry, line)
	}
	idStr, connStr, ok := strings.Cut(rest, ",")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntry, line)
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: bad id %q", ErrInvalidEntry, idStr)
	}

	var connected bool
	switch connStr {
	case "1":
		connected = true
	case "0":
	default:
		return Entry{}, fmt.Errorf("%w: bad connected flag %q", ErrInvalidEntry, connStr)
	}

	return Entry{Name: name, ID: MemberID(id), Connected: connected}, nil
}

// ParseRoster 解析以换行分隔的名册，忽略空行
func ParseRoster(body string) ([]Entry, error) {
	var entries []Entry
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		e, err := ParseEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SanitizeName 把注册参数规整为合法名称
//
// 空名称使用 "peer_<id>"；超长截断；逗号替换为下划线。
func SanitizeName(raw string, id MemberID, maxLen int) string {
	if maxLen <= 0 || maxLen > MaxNameLength {
		maxLen = MaxNameLength
	}
	name := raw
	if name == "" {
		name = "peer_" + id.String()
	} else if len(name) > maxLen {
		name = name[:maxLen]
	}
	return strings.ReplaceAll(name, ",", "_")
}
