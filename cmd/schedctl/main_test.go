package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDecodeID(t *testing.T) {
	out, err := execute(t, "", "decode-id", "202503CSE017")
	if err != nil {
		t.Fatalf("执行失败: %v", err)
	}

	var parts struct {
		Year           int    `json:"year"`
		RoleCode       string `json:"role_code"`
		Role           string `json:"role"`
		DepartmentCode string `json:"department_code"`
		Sequence       int    `json:"sequence"`
	}
	if err := json.Unmarshal([]byte(out), &parts); err != nil {
		t.Fatalf("输出不是 JSON: %v\n%s", err, out)
	}
	if parts.Year != 2025 || parts.RoleCode != "03" || parts.Role != "student" || parts.DepartmentCode != "CSE" || parts.Sequence != 17 {
		t.Errorf("拆解结果不符: %+v", parts)
	}
}

func TestDecodeID_Invalid(t *testing.T) {
	if _, err := execute(t, "", "decode-id", "2025"); err == nil {
		t.Error("长度不足应报错")
	}
	if _, err := execute(t, "", "decode-id"); err == nil {
		t.Error("缺少参数应报错")
	}
}

func TestReadPlan(t *testing.T) {
	body := `{"group_code":"2025CSE","academic_year":2025,"semester":"FALL",
		"entries":[{"course_id":"CSE-001","day_of_week":0,"start_time":"09:00","end_time":"10:30"}]}`

	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(body))
	req, err := readPlan(cmd, "-")
	if err != nil {
		t.Fatalf("读取 stdin 失败: %v", err)
	}
	if req.GroupCode != "2025CSE" || len(req.Entries) != 1 || *req.Entries[0].DayOfWeek != 0 {
		t.Errorf("解析结果不符: %+v", req)
	}

	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readPlan(cmd, path); err != nil {
		t.Fatalf("读取文件失败: %v", err)
	}

	cmd.SetIn(strings.NewReader(`{"group_code":"2025CSE","extra":1}`))
	if _, err := readPlan(cmd, "-"); err == nil {
		t.Error("未知字段应报错")
	}
	if _, err := readPlan(cmd, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("文件不存在应报错")
	}
}

func TestShow_RequiresFlags(t *testing.T) {
	if _, err := execute(t, "", "show", "group", "2025CSE"); err == nil {
		t.Error("缺少 --year/--semester 应报错")
	}
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	if err := printEntries(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "ID") {
		t.Errorf("应输出表头，实际 %q", buf.String())
	}
}
