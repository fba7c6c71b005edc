package types

import "strconv"

// MemberID 成员标识
//
// 由注册表在创建成员时分配，进程内单调递增，永不复用。
type MemberID int

// String 返回十进制字符串表示
func (id MemberID) String() string {
	return strconv.Itoa(int(id))
}

// ParseMemberID 解析十进制成员标识
func ParseMemberID(s string) (MemberID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return MemberID(n), nil
}
