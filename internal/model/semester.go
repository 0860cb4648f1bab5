package model

import (
	"fmt"
	"strings"
)

// Semester 学期枚举（FALL | SPRING），库内统一存大写
type Semester string

const (
	SemesterFall   Semester = "FALL"
	SemesterSpring Semester = "SPRING"
)

// ParseSemester 大小写不敏感地解析学期
func ParseSemester(s string) (Semester, error) {
	switch Semester(strings.ToUpper(strings.TrimSpace(s))) {
	case SemesterFall:
		return SemesterFall, nil
	case SemesterSpring:
		return SemesterSpring, nil
	}
	return "", fmt.Errorf("invalid semester %q, expected FALL or SPRING", s)
}

// Valid 是否为已知学期
func (s Semester) Valid() bool {
	return s == SemesterFall || s == SemesterSpring
}
