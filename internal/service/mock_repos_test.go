package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
	"github.com/jobayadurrasid/Smart-Campus/pkg/redis"
)

// errInjected 注入的存储故障
var errInjected = errors.New("injected storage failure")

// ── 内存存储 ──
// 所有 mock repo 共享一个 mockStore；事务通过快照 / 回滚模拟，并用 txMu 串行化

type mockStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	departments map[string]model.Department
	persons     map[string]model.Person
	courses     map[string]model.Course
	enrollments map[uint]model.Enrollment
	entries     map[uint]model.ScheduleEntry

	nextEnrollmentID uint
	nextEntryID      uint

	// failEntryWriteAt 第 k 次课表写入（Create / UpdateTimes）返回 errInjected，0 表示不注入
	failEntryWriteAt int
	entryWrites      int
	// failLists 非空时 ListByGroup 返回该错误
	failLists error
	// failEnrollFor 为该学生写选课记录时返回 errInjected
	failEnrollFor string

	lockedKeys []string
	txCount    int
}

func newMockStore() *mockStore {
	return &mockStore{
		departments:      make(map[string]model.Department),
		persons:          make(map[string]model.Person),
		courses:          make(map[string]model.Course),
		enrollments:      make(map[uint]model.Enrollment),
		entries:          make(map[uint]model.ScheduleEntry),
		nextEnrollmentID: 1,
		nextEntryID:      1,
	}
}

type storeSnapshot struct {
	departments      map[string]model.Department
	persons          map[string]model.Person
	courses          map[string]model.Course
	enrollments      map[uint]model.Enrollment
	entries          map[uint]model.ScheduleEntry
	nextEnrollmentID uint
	nextEntryID      uint
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *mockStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeSnapshot{
		departments:      copyMap(s.departments),
		persons:          copyMap(s.persons),
		courses:          copyMap(s.courses),
		enrollments:      copyMap(s.enrollments),
		entries:          copyMap(s.entries),
		nextEnrollmentID: s.nextEnrollmentID,
		nextEntryID:      s.nextEntryID,
	}
}

func (s *mockStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments = snap.departments
	s.persons = snap.persons
	s.courses = snap.courses
	s.enrollments = snap.enrollments
	s.entries = snap.entries
	s.nextEnrollmentID = snap.nextEnrollmentID
	s.nextEntryID = snap.nextEntryID
}

// repository 构造指向该存储的 Repository 聚合（含事务执行器）
func (s *mockStore) repository() *repository.Repository {
	repo := s.boundRepository()
	repo.Tx = &mockTxRunner{store: s}
	return repo
}

func (s *mockStore) boundRepository() *repository.Repository {
	return &repository.Repository{
		Person:        &mockPersonRepo{s: s},
		Department:    &mockDeptRepo{s: s},
		Course:        &mockCourseRepo{s: s},
		Enrollment:    &mockEnrollmentRepo{s: s},
		ScheduleEntry: &mockScheduleEntryRepo{s: s},
		Locker:        &mockLocker{s: s},
	}
}

// entryCount 课表条目总数
func (s *mockStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// entriesSorted 按 id 排序的全部条目
func (s *mockStore) entriesSorted() []model.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ScheduleEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleEntryID < out[j].ScheduleEntryID })
	return out
}

// ── 种子数据辅助 ──

func (s *mockStore) addDepartment(code, short string) {
	s.departments[code] = model.Department{Code: code, Name: code + " Department", ShortName: short}
}

func (s *mockStore) addPerson(id, role, dept string) {
	s.persons[id] = model.Person{
		PersonID:       id,
		Email:          strings.ToLower(id) + "@campus.test",
		FullName:       "Person " + id,
		Role:           role,
		DepartmentCode: dept,
	}
}

func (s *mockStore) addCourse(id, teacherID string) {
	c := model.Course{CourseID: id, Name: "Course " + id, Credits: 3, DepartmentCode: "CSE", Semester: model.SemesterFall}
	if teacherID != "" {
		t := teacherID
		c.TeacherID = &t
	}
	s.courses[id] = c
}

func (s *mockStore) enroll(studentID string, courseIDs ...string) {
	for _, c := range courseIDs {
		s.enrollments[s.nextEnrollmentID] = model.Enrollment{
			EnrollmentID: s.nextEnrollmentID,
			StudentID:    studentID,
			CourseID:     c,
			EnrolledAt:   time.Now(),
		}
		s.nextEnrollmentID++
	}
}

func (s *mockStore) addEntry(courseID string, year int, sem model.Semester, day timeslot.Weekday, start, end, group string, active bool) uint {
	id := s.nextEntryID
	s.nextEntryID++
	e := model.ScheduleEntry{
		ScheduleEntryID: id,
		CourseID:        courseID,
		AcademicYear:    year,
		Semester:        sem,
		DayOfWeek:       day,
		StartTime:       timeslot.MustParseClock(start),
		EndTime:         timeslot.MustParseClock(end),
		IsActive:        active,
	}
	if group != "" {
		g := group
		e.GroupCode = &g
	}
	s.entries[id] = e
	return id
}

// ── Mock TxRunner ──

type mockTxRunner struct {
	store *mockStore
}

func (t *mockTxRunner) RunInTx(_ context.Context, fn func(txRepo *repository.Repository) error) (err error) {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	t.store.txCount++
	snap := t.store.snapshot()
	defer func() {
		if r := recover(); r != nil {
			t.store.restore(snap)
			panic(r)
		}
	}()
	if err := fn(t.store.boundRepository()); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ── Mock KeyLocker ──

type mockLocker struct {
	s *mockStore
}

func (l *mockLocker) Lock(_ context.Context, key string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.lockedKeys = append(l.s.lockedKeys, key)
	return nil
}

// ── Mock DepartmentRepository ──

type mockDeptRepo struct {
	s *mockStore
}

func (m *mockDeptRepo) Create(_ context.Context, dept *model.Department) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.departments[dept.Code]; ok {
		return &pgconn.PgError{Code: "23505"}
	}
	m.s.departments[dept.Code] = *dept
	return nil
}

func (m *mockDeptRepo) GetByCode(_ context.Context, code string) (*model.Department, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d, ok := m.s.departments[code]; ok {
		return &d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDeptRepo) List(_ context.Context) ([]model.Department, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Department
	for _, d := range m.s.departments {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// ── Mock PersonRepository ──

type mockPersonRepo struct {
	s *mockStore
}

func (m *mockPersonRepo) Create(_ context.Context, person *model.Person) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.persons[person.PersonID]; ok {
		return &pgconn.PgError{Code: "23505"}
	}
	for _, p := range m.s.persons {
		if p.Email == person.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	m.s.persons[person.PersonID] = *person
	return nil
}

func (m *mockPersonRepo) GetByID(_ context.Context, id string) (*model.Person, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p, ok := m.s.persons[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) GetByEmail(_ context.Context, email string) (*model.Person, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.persons {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonRepo) MaxIDWithPrefix(_ context.Context, prefix string) (string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	max := ""
	for id := range m.s.persons {
		if strings.HasPrefix(id, prefix) && id > max {
			max = id
		}
	}
	return max, nil
}

func (m *mockPersonRepo) ListStudentsByGroup(_ context.Context, year, dept string) ([]model.Person, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Person
	for _, p := range m.s.persons {
		if p.Role == model.RoleStudent && p.DepartmentCode == dept && strings.HasPrefix(p.PersonID, year) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PersonID < result[j].PersonID })
	return result, nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	s *mockStore
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.courses[course.CourseID]; ok {
		return &pgconn.PgError{Code: "23505"}
	}
	m.s.courses[course.CourseID] = *course
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c, ok := m.s.courses[id]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) MaxIDWithPrefix(_ context.Context, short string) (string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	max := ""
	for id := range m.s.courses {
		if strings.HasPrefix(id, short+"-") && id > max {
			max = id
		}
	}
	return max, nil
}

func (m *mockCourseRepo) FindDuplicate(_ context.Context, name string, semester model.Semester, teacherID *string) (*model.Course, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.courses {
		if c.Name != name || c.Semester != semester {
			continue
		}
		if (c.TeacherID == nil) != (teacherID == nil) {
			continue
		}
		if teacherID != nil && *c.TeacherID != *teacherID {
			continue
		}
		return &c, nil
	}
	return nil, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	s *mockStore
}

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failEnrollFor != "" && m.s.failEnrollFor == enrollment.StudentID {
		return errInjected
	}
	for _, e := range m.s.enrollments {
		if e.StudentID == enrollment.StudentID && e.CourseID == enrollment.CourseID {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	enrollment.EnrollmentID = m.s.nextEnrollmentID
	m.s.nextEnrollmentID++
	m.s.enrollments[enrollment.EnrollmentID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, studentID, courseID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) CourseIDsByStudents(_ context.Context, studentIDs []string) (map[string][]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	result := make(map[string][]string)
	for _, e := range m.s.enrollments {
		if wanted[e.StudentID] {
			result[e.StudentID] = append(result[e.StudentID], e.CourseID)
		}
	}
	return result, nil
}

// ── Mock ScheduleEntryRepository ──

type mockScheduleEntryRepo struct {
	s *mockStore
}

// countWrite 计数并按配置注入故障，调用方须持有 mu
func (m *mockScheduleEntryRepo) countWrite() error {
	m.s.entryWrites++
	if m.s.failEntryWriteAt > 0 && m.s.entryWrites == m.s.failEntryWriteAt {
		return errInjected
	}
	return nil
}

func (m *mockScheduleEntryRepo) withCourse(e model.ScheduleEntry) model.ScheduleEntry {
	if c, ok := m.s.courses[e.CourseID]; ok {
		e.Course = &c
	}
	return e
}

func (m *mockScheduleEntryRepo) Create(_ context.Context, entry *model.ScheduleEntry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.countWrite(); err != nil {
		return err
	}
	for _, e := range m.s.entries {
		if e.CourseID == entry.CourseID && e.AcademicYear == entry.AcademicYear &&
			e.Semester == entry.Semester && e.DayOfWeek == entry.DayOfWeek && e.StartTime == entry.StartTime {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	entry.ScheduleEntryID = m.s.nextEntryID
	entry.IsActive = true
	m.s.nextEntryID++
	m.s.entries[entry.ScheduleEntryID] = *entry
	return nil
}

func (m *mockScheduleEntryRepo) GetByID(_ context.Context, id uint) (*model.ScheduleEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e, ok := m.s.entries[id]; ok {
		e = m.withCourse(e)
		return &e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleEntryRepo) FindByGroupKey(_ context.Context, key repository.GroupEntryKey) (*model.ScheduleEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var found *model.ScheduleEntry
	for _, e := range m.s.entries {
		if e.CourseID == key.CourseID && e.AcademicYear == key.AcademicYear && e.Semester == key.Semester &&
			e.DayOfWeek == key.Day && e.GroupCode != nil && *e.GroupCode == key.GroupCode {
			if found == nil || e.ScheduleEntryID < found.ScheduleEntryID {
				e := e
				found = &e
			}
		}
	}
	return found, nil
}

func (m *mockScheduleEntryRepo) UpdateTimes(_ context.Context, id uint, start, end timeslot.Clock) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.countWrite(); err != nil {
		return err
	}
	e, ok := m.s.entries[id]
	if !ok {
		return nil
	}
	e.StartTime, e.EndTime = start, end
	e.IsActive = true
	e.DeactivatedAt = nil
	m.s.entries[id] = e
	return nil
}

func (m *mockScheduleEntryRepo) Deactivate(_ context.Context, id uint, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.entries[id]
	if !ok {
		return false, nil
	}
	e.IsActive = false
	e.DeactivatedAt = &at
	m.s.entries[id] = e
	return true, nil
}

func (m *mockScheduleEntryRepo) ListTeacherDay(_ context.Context, teacherID string, year int, semester model.Semester, day timeslot.Weekday) ([]model.ScheduleEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.ScheduleEntry
	for _, e := range m.s.entries {
		c, ok := m.s.courses[e.CourseID]
		if !ok || c.TeacherID == nil || *c.TeacherID != teacherID {
			continue
		}
		if e.AcademicYear == year && e.Semester == semester && e.DayOfWeek == day && e.IsActive {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (m *mockScheduleEntryRepo) ListByTeacher(_ context.Context, teacherID string, year int, semester model.Semester) ([]model.ScheduleEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.ScheduleEntry
	for _, e := range m.s.entries {
		c, ok := m.s.courses[e.CourseID]
		if !ok || c.TeacherID == nil || *c.TeacherID != teacherID {
			continue
		}
		if e.AcademicYear == year && e.Semester == semester {
			result = append(result, m.withCourse(e))
		}
	}
	sortEntries(result)
	return result, nil
}

func (m *mockScheduleEntryRepo) ListByGroup(_ context.Context, groupCode string, year int, semester model.Semester) ([]model.ScheduleEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failLists != nil {
		return nil, m.s.failLists
	}
	var result []model.ScheduleEntry
	for _, e := range m.s.entries {
		if e.GroupCode != nil && *e.GroupCode == groupCode && e.AcademicYear == year && e.Semester == semester {
			result = append(result, m.withCourse(e))
		}
	}
	sortEntries(result)
	return result, nil
}

func sortEntries(entries []model.ScheduleEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DayOfWeek != entries[j].DayOfWeek {
			return entries[i].DayOfWeek < entries[j].DayOfWeek
		}
		if entries[i].StartTime != entries[j].StartTime {
			return entries[i].StartTime < entries[j].StartTime
		}
		return entries[i].ScheduleEntryID < entries[j].ScheduleEntryID
	})
}

// ── Mock ScheduleCache ──

type mockCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	versions    map[string]int64
	gets        int
	sets        int
	staleSets   int
	invalidated []string
	getErr      error
	versionErr  error
	// beforeSet 在回填写入前调用（不持锁），用于在回填途中插入其他操作
	beforeSet func()
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), versions: make(map[string]int64)}
}

func (c *mockCache) GetGroupSchedule(_ context.Context, groupCode, term string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	if d, ok := c.data[groupCode+"|"+term]; ok {
		return d, nil
	}
	return nil, redis.ErrCacheMiss
}

func (c *mockCache) GroupScheduleVersion(_ context.Context, groupCode string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versionErr != nil {
		return 0, c.versionErr
	}
	return c.versions[groupCode], nil
}

func (c *mockCache) SetGroupSchedule(_ context.Context, groupCode, term string, version int64, data []byte, _ time.Duration) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[groupCode] != version {
		c.staleSets++
		return redis.ErrStaleVersion
	}
	c.sets++
	c.data[groupCode+"|"+term] = data
	return nil
}

func (c *mockCache) InvalidateGroupSchedule(_ context.Context, groupCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, groupCode)
	c.versions[groupCode]++
	for k := range c.data {
		if strings.HasPrefix(k, groupCode+"|") {
			delete(c.data, k)
		}
	}
	return nil
}
