package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// 编号生成
// ═══════════════════════════════════════════════════════════
//
// 人员编号：year(4) + roleCode(2) + dept(3) + seq(3)，如 202503CSE001
// 课程编号：<院系简称>-NNN，如 CSE-001
//
// 两个生成器都只做 "读当前最大值 + 1"，调用方必须：
//   1. 在最终写入所在的事务内调用（传入事务绑定的 repository）
//   2. 事先对编号前缀加锁（见 personIDLockKey / courseIDLockKey）
// 否则并发生成会得到相同编号。

const (
	seqDigits = 3
	maxSeq    = 999
)

var roleCodes = map[string]string{
	model.RoleAdmin:   "01",
	model.RoleTeacher: "02",
	model.RoleStudent: "03",
}

var roleByCode = map[string]string{
	"01": model.RoleAdmin,
	"02": model.RoleTeacher,
	"03": model.RoleStudent,
}

// RoleCode 角色对应的两位编码，未知角色为 99
func RoleCode(role string) string {
	if code, ok := roleCodes[role]; ok {
		return code
	}
	return "99"
}

// PersonIDPrefix 人员编号前缀 year+roleCode+dept
func PersonIDPrefix(year int, departmentCode, role string) (string, error) {
	if year < 1000 || year > 9999 {
		return "", invalidf("enrollment year must have 4 digits, got %d", year)
	}
	if len(departmentCode) != 3 {
		return "", invalidf("department code must be 3 characters, got %q", departmentCode)
	}
	return fmt.Sprintf("%04d%s%s", year, RoleCode(role), departmentCode), nil
}

// GeneratePersonID 生成下一个人员编号
func GeneratePersonID(ctx context.Context, repo repository.PersonRepository, year int, departmentCode, role string) (string, error) {
	prefix, err := PersonIDPrefix(year, departmentCode, role)
	if err != nil {
		return "", err
	}
	maxID, err := repo.MaxIDWithPrefix(ctx, prefix)
	if err != nil {
		return "", persistence("query max person id", err)
	}
	next, err := nextSequence(maxID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%0*d", prefix, seqDigits, next), nil
}

// GenerateCourseID 生成下一个课程编号
func GenerateCourseID(ctx context.Context, repo repository.CourseRepository, shortName string) (string, error) {
	if shortName == "" {
		return "", invalidf("department short name is empty")
	}
	maxID, err := repo.MaxIDWithPrefix(ctx, shortName)
	if err != nil {
		return "", persistence("query max course id", err)
	}
	next, err := nextSequence(maxID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%0*d", shortName, seqDigits, next), nil
}

// nextSequence 取 maxID 末 3 位加一；maxID 为空时从 1 开始
func nextSequence(maxID string) (int, error) {
	if maxID == "" {
		return 1, nil
	}
	if len(maxID) < seqDigits {
		return 0, fmt.Errorf("%w: malformed identifier %q", ErrPersistence, maxID)
	}
	n, err := strconv.Atoi(maxID[len(maxID)-seqDigits:])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed identifier %q", ErrPersistence, maxID)
	}
	if n+1 > maxSeq {
		return 0, ErrExhaustedSequence
	}
	return n + 1, nil
}

func personIDLockKey(prefix string) string { return "person-id:" + prefix }

func courseIDLockKey(shortName string) string { return "course-id:" + shortName }

// PersonIDParts 人员编号拆解结果
type PersonIDParts struct {
	Year           int    `json:"year"`
	RoleCode       string `json:"role_code"`
	Role           string `json:"role"` // 仅供排查，权限判断以库中 role 列为准
	DepartmentCode string `json:"department_code"`
	Sequence       int    `json:"sequence"`
}

// DecodePersonID 拆解人员编号，仅用于调试
func DecodePersonID(id string) (*PersonIDParts, error) {
	if len(id) != 12 {
		return nil, invalidf("person id must be 12 characters, got %q", id)
	}
	year, err := strconv.Atoi(id[:4])
	if err != nil {
		return nil, invalidf("person id %q has non-numeric year", id)
	}
	seq, err := strconv.Atoi(id[9:])
	if err != nil {
		return nil, invalidf("person id %q has non-numeric sequence", id)
	}
	parts := &PersonIDParts{
		Year:           year,
		RoleCode:       id[4:6],
		DepartmentCode: id[6:9],
		Sequence:       seq,
	}
	parts.Role = roleByCode[parts.RoleCode]
	if parts.Role == "" {
		parts.Role = "other"
	}
	return parts, nil
}
