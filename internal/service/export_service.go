package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEntries    = errors.New("group has no active schedule entries for this term")
	ErrExportGenerateFail = errors.New("failed to generate export file")
)

// TermCalendar 学期日历，用于把周课表展开为具体日期
type TermCalendar struct {
	FallStart   string // MM-DD，学年当年
	SpringStart string // MM-DD，学年次年
	Weeks       int
	Location    *time.Location
}

// TermStart 学期首日
func (tc TermCalendar) TermStart(academicYear int, sem model.Semester) (time.Time, error) {
	md, year := tc.FallStart, academicYear
	if sem == model.SemesterSpring {
		md, year = tc.SpringStart, academicYear+1
	}
	d, err := time.Parse("01-02", md)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid term start %q: %w", md, err)
	}
	loc := tc.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, loc), nil
}

// FirstOccurrence 学期首日起（含当天）第一个 day
func (tc TermCalendar) FirstOccurrence(termStart time.Time, day timeslot.Weekday) time.Time {
	offset := (int(day.TimeWeekday()) - int(termStart.Weekday()) + 7) % 7
	return termStart.AddDate(0, 0, offset)
}

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出对象为班组周课表，仅包含启用条目
//   - xlsx：行为时间段，列为 Monday ~ Friday
//   - ics：每个条目一个按周重复的 VEVENT，重复 Weeks 次
type ExportService interface {
	ExportGroupXLSX(ctx context.Context, groupCode string, year int, semester string) (*bytes.Buffer, string, error)
	ExportGroupICS(ctx context.Context, groupCode string, year int, semester string) ([]byte, string, error)
}

type exportService struct {
	query    ScheduleQueryService
	calendar TermCalendar
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(query ScheduleQueryService, calendar TermCalendar, logger *zap.Logger) ExportService {
	return &exportService{query: query, calendar: calendar, logger: logger, now: time.Now}
}

func (s *exportService) activeEntries(ctx context.Context, groupCode string, year int, semester string) ([]dto.ScheduleEntryResponse, error) {
	entries, err := s.query.ForGroup(ctx, groupCode, year, semester)
	if err != nil {
		return nil, err
	}
	active := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		if e.IsActive {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return nil, ErrExportNoEntries
	}
	return active, nil
}

// ═══════════════════════════════════════════════════════════
// ExportGroupXLSX — 班组周课表导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：<group> <year> <semester> Timetable
//   - 表头：Time | Monday | … | Friday
//   - 每个不同的 (start, end) 一行，单元格为 "课程编号 课程名"

func (s *exportService) ExportGroupXLSX(ctx context.Context, groupCode string, year int, semester string) (*bytes.Buffer, string, error) {
	entries, err := s.activeEntries(ctx, groupCode, year, semester)
	if err != nil {
		return nil, "", err
	}

	type rangeKey struct{ start, end string }
	cells := make(map[rangeKey]map[int][]string)
	var ranges []rangeKey
	for _, e := range entries {
		k := rangeKey{e.StartTime, e.EndTime}
		if _, ok := cells[k]; !ok {
			cells[k] = make(map[int][]string)
			ranges = append(ranges, k)
		}
		text := e.CourseID
		if e.CourseName != "" {
			text += " " + e.CourseName
		}
		cells[k][e.DayOfWeek] = append(cells[k][e.DayOfWeek], text)
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].start != ranges[j].start {
			return ranges[i].start < ranges[j].start
		}
		return ranges[i].end < ranges[j].end
	})

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Timetable"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "F", 28)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %d %s Timetable", groupCode, year, entries[0].Semester))
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "F1", headerStyle)

	// 表头
	f.SetCellValue(sheetName, cell("A", 2), "Time")
	for d := timeslot.Monday; d <= timeslot.Friday; d++ {
		f.SetCellValue(sheetName, cell(colName(int(d)+1), 2), d.String())
	}
	f.SetCellStyle(sheetName, "A2", "F2", headerStyle)

	// 数据行
	row := 3
	for _, k := range ranges {
		f.SetCellValue(sheetName, cell("A", row), k.start+"-"+k.end)
		for d := timeslot.Monday; d <= timeslot.Friday; d++ {
			texts := cells[k][int(d)]
			value := "-"
			if len(texts) > 0 {
				value = joinLines(texts)
			}
			f.SetCellValue(sheetName, cell(colName(int(d)+1), row), value)
		}
		f.SetCellStyle(sheetName, cell("B", row), cell("F", row), wrapStyle)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("timetable_%s_%d_%s.xlsx", groupCode, year, entries[0].Semester)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportGroupICS — 班组周课表导出为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// DTSTART 使用浮动时间（不带时区），由客户端按本地时间展示。

func (s *exportService) ExportGroupICS(ctx context.Context, groupCode string, year int, semester string) ([]byte, string, error) {
	entries, err := s.activeEntries(ctx, groupCode, year, semester)
	if err != nil {
		return nil, "", err
	}
	sem := model.Semester(entries[0].Semester)
	termStart, err := s.calendar.TermStart(year, sem)
	if err != nil {
		s.logger.Error("学期起始日期配置无效", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	weeks := s.calendar.Weeks
	if weeks <= 0 {
		weeks = 16
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Smart-Campus//Timetable//EN")

	stamp := s.now().UTC()
	for _, e := range entries {
		day := timeslot.Weekday(e.DayOfWeek)
		start, err := timeslot.ParseClock(e.StartTime)
		if err != nil {
			return nil, "", ErrExportGenerateFail
		}
		end, err := timeslot.ParseClock(e.EndTime)
		if err != nil {
			return nil, "", ErrExportGenerateFail
		}
		first := s.calendar.FirstOccurrence(termStart, day)

		event := cal.AddEvent(fmt.Sprintf("schedule-entry-%d@smart-campus", e.ID))
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, start.On(first).Format("20060102T150405"))
		event.SetProperty(ics.ComponentPropertyDtEnd, end.On(first).Format("20060102T150405"))
		event.SetProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
		summary := e.CourseID
		if e.CourseName != "" {
			summary += " " + e.CourseName
		}
		event.SetSummary(summary)
		if e.TeacherID != nil {
			event.SetDescription("Teacher: " + *e.TeacherID)
		}
	}

	filename := fmt.Sprintf("timetable_%s_%d_%s.ics", groupCode, year, sem)
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func joinLines(lines []string) string {
	var b bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l)
	}
	return b.String()
}
