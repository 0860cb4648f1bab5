package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
	"github.com/jobayadurrasid/Smart-Campus/pkg/metrics"
)

// ── 测试辅助 ──

const (
	teacherT = "202402CS1001"
	teacherU = "202402CS1002"
)

func setupTestGroupScheduleService() (GroupScheduleService, *mockStore, *mockCache) {
	store := newMockStore()
	cache := newMockCache()
	svc := NewGroupScheduleService(store.repository(), cache, metrics.New(), zap.NewNop())
	return svc, store, cache
}

// seedGroup 种子数据：班组 2025CS1 两名学生，均只选 CS-101；CS-102 无人选
func seedGroup(store *mockStore) {
	store.addDepartment("CS1", "CS")
	store.addPerson(teacherT, model.RoleTeacher, "CS1")
	store.addPerson(teacherU, model.RoleTeacher, "CS1")
	store.addPerson("202503CS1001", model.RoleStudent, "CS1")
	store.addPerson("202503CS1002", model.RoleStudent, "CS1")
	// 其他年级同院系学生不属于该班组
	store.addPerson("202403CS1001", model.RoleStudent, "CS1")
	store.addCourse("CS-101", teacherT)
	store.addCourse("CS-102", teacherT)
	store.enroll("202503CS1001", "CS-101")
	store.enroll("202503CS1002", "CS-101")
	store.enroll("202403CS1001", "CS-102")
}

func day(d int) *int { return &d }

func entry(course string, d int, start, end string) dto.ScheduleEntryInput {
	return dto.ScheduleEntryInput{CourseID: course, DayOfWeek: day(d), StartTime: start, EndTime: end}
}

func groupReq(code string, entries ...dto.ScheduleEntryInput) *dto.ReconcileGroupScheduleRequest {
	return &dto.ReconcileGroupScheduleRequest{
		GroupCode:    code,
		AcademicYear: 2025,
		Semester:     "fall",
		Entries:      entries,
	}
}

// ── 请求校验 ──

func TestGroupScheduleService_Reconcile_InvalidRequest(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)

	tests := []struct {
		name string
		req  *dto.ReconcileGroupScheduleRequest
	}{
		{"空班组码", groupReq("", entry("CS-101", 0, "09:00", "10:00"))},
		{"空白班组码", groupReq("   ", entry("CS-101", 0, "09:00", "10:00"))},
		{"班组码过短", groupReq("2025", entry("CS-101", 0, "09:00", "10:00"))},
		{"年份非数字", groupReq("20X5CS1", entry("CS-101", 0, "09:00", "10:00"))},
		{"周六", groupReq("2025CS1", entry("CS-101", 5, "09:00", "10:00"))},
		{"结束早于开始", groupReq("2025CS1", entry("CS-101", 0, "10:00", "09:00"))},
		{"时间格式错误", groupReq("2025CS1", entry("CS-101", 0, "9am", "10:00"))},
		{"学期无效", func() *dto.ReconcileGroupScheduleRequest {
			r := groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))
			r.Semester = "SUMMER"
			return r
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Reconcile(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("期望 ErrInvalidRequest，实际 %v", err)
			}
		})
	}
	if store.entryCount() != 0 {
		t.Error("非法请求不应写入任何条目")
	}
}

func TestGroupScheduleService_Reconcile_EmptyGroup(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)

	_, err := svc.Reconcile(context.Background(), groupReq("2026CS1", entry("CS-101", 0, "09:00", "10:00")))
	if !errors.Is(err, ErrEmptyGroup) {
		t.Errorf("期望 ErrEmptyGroup，实际 %v", err)
	}
}

func TestGroupScheduleService_Reconcile_NoCommonCourses(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)

	_, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-102", 0, "09:00", "10:00")))
	if !errors.Is(err, ErrNoCommonCourses) {
		t.Errorf("期望 ErrNoCommonCourses，实际 %v", err)
	}
}

// 仅一名学生选修的课程不算共同课程
func TestGroupScheduleService_Reconcile_IntersectionNotUnion(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)
	store.enroll("202503CS1001", "CS-102")

	res, err := svc.Reconcile(context.Background(), groupReq("2025CS1",
		entry("CS-101", 0, "09:00", "10:00"),
		entry("CS-102", 1, "09:00", "10:00"),
	))
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if res.Applied != 1 || !reflect.DeepEqual(res.SkippedCourses, []string{"CS-102"}) {
		t.Errorf("期望只写入 CS-101 并跳过 CS-102，实际 %+v", res)
	}
}

func TestGroupScheduleService_Reconcile_UnassignedTeacher(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)
	store.addCourse("CS-103", "")
	store.enroll("202503CS1001", "CS-103")
	store.enroll("202503CS1002", "CS-103")

	_, err := svc.Reconcile(context.Background(), groupReq("2025CS1",
		entry("CS-101", 0, "09:00", "10:00"),
		entry("CS-103", 1, "09:00", "10:00"),
	))
	if !errors.Is(err, ErrUnassignedTeacher) {
		t.Errorf("期望 ErrUnassignedTeacher，实际 %v", err)
	}
	if store.entryCount() != 0 {
		t.Error("失败后不应留下任何条目")
	}
}

// ── 主流程场景 ──

// 2025CS1 两名学生只共同选修 CS-101；CS-102 被过滤
func TestGroupScheduleService_Reconcile_FiltersUncommonCourses(t *testing.T) {
	svc, store, cache := setupTestGroupScheduleService()
	seedGroup(store)

	res, err := svc.Reconcile(context.Background(), groupReq("2025CS1",
		entry("CS-101", 0, "09:00", "10:00"),
		entry("CS-102", 2, "11:00", "12:00"),
	))
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 0 || res.Applied != 1 {
		t.Errorf("期望插入 1 条，实际 %+v", res)
	}
	if !reflect.DeepEqual(res.SkippedCourses, []string{"CS-102"}) {
		t.Errorf("期望跳过 [CS-102]，实际 %v", res.SkippedCourses)
	}

	entries := store.entriesSorted()
	if len(entries) != 1 {
		t.Fatalf("期望 1 条条目，实际 %d", len(entries))
	}
	e := entries[0]
	if e.CourseID != "CS-101" || e.DayOfWeek != timeslot.Monday ||
		e.StartTime.String() != "09:00" || e.EndTime.String() != "10:00" ||
		!e.IsActive || e.GroupCode == nil || *e.GroupCode != "2025CS1" ||
		e.Semester != model.SemesterFall || e.AcademicYear != 2025 {
		t.Errorf("条目内容不符: %+v", e)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "2025CS1" {
		t.Errorf("成功后应清除班组缓存，实际 %v", cache.invalidated)
	}
}

// 教师 T 已为 A 组上 Mon 09:00-10:00，B 组申请 T 的 Mon 09:30-10:30 被拒
func TestGroupScheduleService_Reconcile_CrossGroupTeacherConflict(t *testing.T) {
	svc, store, cache := setupTestGroupScheduleService()
	seedGroup(store)
	// B 组：2025CS2，两名学生共同选修 CS-102
	store.addDepartment("CS2", "CS")
	store.addPerson("202503CS2001", model.RoleStudent, "CS2")
	store.addPerson("202503CS2002", model.RoleStudent, "CS2")
	store.enroll("202503CS2001", "CS-102")
	store.enroll("202503CS2002", "CS-102")

	if _, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))); err != nil {
		t.Fatalf("A 组提交失败: %v", err)
	}
	before := store.entriesSorted()

	_, err := svc.Reconcile(context.Background(), groupReq("2025CS2", entry("CS-102", 0, "09:30", "10:30")))
	if !errors.Is(err, ErrTeacherConflict) {
		t.Fatalf("期望 ErrTeacherConflict，实际 %v", err)
	}
	var conflict *TeacherConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("期望 *TeacherConflictError，实际 %T", err)
	}
	if conflict.TeacherID != teacherT {
		t.Errorf("期望冲突教师 %s，实际 %s", teacherT, conflict.TeacherID)
	}
	if err.Error() != "Teacher already has course at: Monday 09:00-10:00" {
		t.Errorf("错误文案不符: %q", err.Error())
	}

	after := store.entriesSorted()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("冲突后 A 组条目不应变化\nbefore=%+v\nafter=%+v", before, after)
	}
	for _, g := range cache.invalidated {
		if g == "2025CS2" {
			t.Error("失败的提交不应清除缓存")
		}
	}
}

// 首尾相接不算冲突
func TestGroupScheduleService_Reconcile_TouchingSlotsAllowed(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)
	store.addEntry("CS-102", 2025, model.SemesterFall, timeslot.Monday, "10:00", "11:00", "2024CS1", true)

	if _, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))); err != nil {
		t.Errorf("首尾相接不应冲突: %v", err)
	}
}

// 不同学期 / 学年 / 星期，以及已停用条目均不参与冲突检测
func TestGroupScheduleService_Reconcile_ConflictScope(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)
	store.addEntry("CS-102", 2025, model.SemesterSpring, timeslot.Monday, "09:00", "10:00", "X", true)
	store.addEntry("CS-102", 2024, model.SemesterFall, timeslot.Monday, "09:00", "10:00", "Y", true)
	store.addEntry("CS-102", 2025, model.SemesterFall, timeslot.Tuesday, "09:00", "10:00", "Z", true)
	store.addEntry("CS-102", 2025, model.SemesterFall, timeslot.Monday, "09:15", "09:45", "W", false)

	if _, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))); err != nil {
		t.Errorf("范围外 / 停用条目不应构成冲突: %v", err)
	}
}

// 同一请求内两条条目占用同一教师的重叠时段
func TestGroupScheduleService_Reconcile_ConflictWithinBatch(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)
	store.addCourse("CS-104", teacherT)
	store.enroll("202503CS1001", "CS-104")
	store.enroll("202503CS1002", "CS-104")

	_, err := svc.Reconcile(context.Background(), groupReq("2025CS1",
		entry("CS-101", 0, "09:00", "10:00"),
		entry("CS-104", 0, "09:30", "10:30"),
	))
	if !errors.Is(err, ErrTeacherConflict) {
		t.Fatalf("期望 ErrTeacherConflict，实际 %v", err)
	}
	if store.entryCount() != 0 {
		t.Errorf("冲突后应整体回滚，实际剩余 %d 条", store.entryCount())
	}
}

// 重复提交同一请求：第二次原地更新，不产生重复行
func TestGroupScheduleService_Reconcile_Idempotent(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)
	req := groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))

	first, err := svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("首次提交失败: %v", err)
	}
	state1 := store.entriesSorted()

	second, err := svc.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("重复提交失败: %v", err)
	}
	state2 := store.entriesSorted()

	if first.Inserted != 1 || second.Inserted != 0 || second.Updated != 1 {
		t.Errorf("期望首次插入、二次更新，实际 first=%+v second=%+v", first, second)
	}
	if !reflect.DeepEqual(state1, state2) {
		t.Errorf("两次提交后状态应一致\n1=%+v\n2=%+v", state1, state2)
	}
}

// 原地更新时间不与自身冲突
func TestGroupScheduleService_Reconcile_UpdateInPlaceExcludesSelf(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)

	if _, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))); err != nil {
		t.Fatalf("首次提交失败: %v", err)
	}
	res, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-101", 0, "09:30", "10:30")))
	if err != nil {
		t.Fatalf("平移时间不应与自身冲突: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("期望更新 1 条，实际 %+v", res)
	}
	entries := store.entriesSorted()
	if len(entries) != 1 || entries[0].StartTime.String() != "09:30" || entries[0].EndTime.String() != "10:30" {
		t.Errorf("期望唯一条目改为 09:30-10:30，实际 %+v", entries)
	}
}

// 停用后再次提交同键条目会重新启用
func TestGroupScheduleService_Reconcile_ReactivatesDeactivated(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)
	id := store.addEntry("CS-101", 2025, model.SemesterFall, timeslot.Monday, "08:00", "09:00", "2025CS1", false)

	res, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00")))
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if res.Updated != 1 || res.Inserted != 0 {
		t.Errorf("期望原地更新，实际 %+v", res)
	}
	e := store.entries[id]
	if !e.IsActive || e.StartTime.String() != "09:00" {
		t.Errorf("条目应被重新启用并更新时间，实际 %+v", e)
	}
}

// 第 k 条写入失败时整批不落库
func TestGroupScheduleService_Reconcile_AtomicOnInjectedFailure(t *testing.T) {
	for k := 1; k <= 2; k++ {
		svc, store, cache := setupTestGroupScheduleService()
		seedGroup(store)
		store.addCourse("CS-104", teacherU)
		store.addCourse("CS-105", teacherU)
		for _, sid := range []string{"202503CS1001", "202503CS1002"} {
			store.enroll(sid, "CS-104", "CS-105")
		}
		// 预置一条待原地更新的条目，确认更新也会回滚
		preID := store.addEntry("CS-104", 2025, model.SemesterFall, timeslot.Tuesday, "08:00", "09:00", "2025CS1", true)
		before := store.entriesSorted()
		store.failEntryWriteAt = k

		_, err := svc.Reconcile(context.Background(), groupReq("2025CS1",
			entry("CS-101", 0, "09:00", "10:00"),
			entry("CS-104", 1, "10:00", "11:00"),
			entry("CS-105", 2, "13:00", "14:00"),
		))
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("k=%d 期望 ErrPersistence，实际 %v", k, err)
		}
		if !errors.Is(err, errInjected) {
			t.Errorf("k=%d 应保留原始错误，实际 %v", k, err)
		}
		if after := store.entriesSorted(); !reflect.DeepEqual(before, after) {
			t.Errorf("k=%d 注入失败后状态应不变\nbefore=%+v\nafter=%+v", k, before, after)
		}
		if store.entries[preID].StartTime.String() != "08:00" {
			t.Errorf("k=%d 原地更新应被回滚", k)
		}
		if len(cache.invalidated) != 0 {
			t.Errorf("k=%d 失败时不应清除缓存", k)
		}
	}
}

func TestGroupScheduleService_Reconcile_LocksTeacherWindows(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)

	if _, err := svc.Reconcile(context.Background(), groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))); err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	want := "teacher-window:" + teacherT + ":2025:FALL:0"
	found := false
	for _, k := range store.lockedKeys {
		if k == want {
			found = true
		}
	}
	if !found {
		t.Errorf("期望锁定 %s，实际 %v", want, store.lockedKeys)
	}
}

func TestGroupScheduleService_Reconcile_SemesterCaseInsensitive(t *testing.T) {
	svc, store, _ := setupTestGroupScheduleService()
	seedGroup(store)

	for _, sem := range []string{"FALL", "Fall", "fall"} {
		r := groupReq("2025CS1", entry("CS-101", 0, "09:00", "10:00"))
		r.Semester = sem
		if _, err := svc.Reconcile(context.Background(), r); err != nil {
			t.Errorf("semester=%s 不应报错: %v", sem, err)
		}
	}
	if store.entryCount() != 1 {
		t.Errorf("不同大小写应指向同一条目，实际 %d 条", store.entryCount())
	}
}

// ── DeactivateEntry ──

func TestGroupScheduleService_DeactivateEntry(t *testing.T) {
	svc, store, cache := setupTestGroupScheduleService()
	seedGroup(store)
	id := store.addEntry("CS-101", 2025, model.SemesterFall, timeslot.Monday, "09:00", "10:00", "2025CS1", true)

	resp, err := svc.DeactivateEntry(context.Background(), id)
	if err != nil {
		t.Fatalf("停用失败: %v", err)
	}
	if resp.IsActive {
		t.Error("响应中 is_active 应为 false")
	}
	e := store.entries[id]
	if e.IsActive || e.DeactivatedAt == nil {
		t.Errorf("条目应被停用并记录时间，实际 %+v", e)
	}
	if store.entryCount() != 1 {
		t.Error("停用不应删除条目")
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "2025CS1" {
		t.Errorf("停用后应清除班组缓存，实际 %v", cache.invalidated)
	}

	// 停用后同一教师的同一时段可被其他班组使用
	store.addDepartment("CS2", "CS")
	store.addPerson("202503CS2001", model.RoleStudent, "CS2")
	store.enroll("202503CS2001", "CS-102")
	if _, err := svc.Reconcile(context.Background(), groupReq("2025CS2", entry("CS-102", 0, "09:00", "10:00"))); err != nil {
		t.Errorf("停用条目不应阻塞排课: %v", err)
	}
}

func TestGroupScheduleService_DeactivateEntry_NotFound(t *testing.T) {
	svc, _, _ := setupTestGroupScheduleService()

	_, err := svc.DeactivateEntry(context.Background(), 42)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("期望 ErrEntryNotFound，实际 %v", err)
	}
}

// ── 纯函数 ──

func TestIntersectCourses(t *testing.T) {
	enrolled := map[string][]string{
		"a": {"C1", "C2", "C3"},
		"b": {"C2", "C3", "C4"},
		"c": {"C3", "C2"},
	}
	got := intersectCourses([]string{"a", "b", "c"}, enrolled)
	if len(got) != 2 {
		t.Fatalf("期望交集 {C2,C3}，实际 %v", got)
	}
	for _, c := range []string{"C2", "C3"} {
		if _, ok := got[c]; !ok {
			t.Errorf("交集缺少 %s", c)
		}
	}

	// 任一学生未选课时交集为空
	if got := intersectCourses([]string{"a", "nobody"}, enrolled); len(got) != 0 {
		t.Errorf("期望空交集，实际 %v", got)
	}
}

func TestFilterEntries_PreservesOrder(t *testing.T) {
	slot := timeslot.Slot{Day: timeslot.Monday, Start: timeslot.MustParseClock("09:00"), End: timeslot.MustParseClock("10:00")}
	in := []desiredEntry{{"B", slot}, {"X", slot}, {"A", slot}, {"X", slot}, {"Y", slot}}
	common := map[string]struct{}{"A": {}, "B": {}}

	kept, skipped := filterEntries(in, common)
	var ids []string
	for _, e := range kept {
		ids = append(ids, e.CourseID)
	}
	if strings.Join(ids, ",") != "B,A" {
		t.Errorf("期望保留 B,A，实际 %v", ids)
	}
	if strings.Join(skipped, ",") != "X,Y" {
		t.Errorf("期望跳过 X,Y，实际 %v", skipped)
	}
}
