package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/utils"
)

const barMaxLength = 20

// Count 是某个名字出现的次数，例如教室被使用的次数
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary 是输出报告所需的全部信息
type Summary struct {
	Schedule domain.Schedule
	Result   domain.FitnessResult
	History  []domain.GenerationStats
}

// RoomUtilization 统计每间教室被安排的次数，按教室名字排序
func RoomUtilization(s domain.Schedule) []Count {
	return countBy(s, func(a domain.Assignment) string { return a.Room })
}

// FacilitatorLoad 统计每位负责人被安排的次数，按名字排序
func FacilitatorLoad(s domain.Schedule) []Count {
	return countBy(s, func(a domain.Assignment) string { return a.Facilitator })
}

// Agenda 是某位负责人在一份排班中的全部安排
type Agenda struct {
	Facilitator  string              `json:"facilitator"`
	Assignments  []domain.Assignment `json:"assignments"`
	DoubleBooked []domain.TimeSlot   `json:"doubleBooked"` // 同一时间段有多个活动
}

// FacilitatorAgenda 按排班中的顺序挑出 name 负责的活动
func FacilitatorAgenda(s domain.Schedule, name string) Agenda {
	agenda := Agenda{
		Facilitator:  name,
		Assignments:  make([]domain.Assignment, 0),
		DoubleBooked: make([]domain.TimeSlot, 0),
	}

	perSlot := make(map[domain.TimeSlot]int)
	for _, a := range s {
		if a.Facilitator != name {
			continue
		}
		agenda.Assignments = append(agenda.Assignments, a)
		perSlot[a.TimeSlot]++
		if perSlot[a.TimeSlot] == 2 {
			agenda.DoubleBooked = append(agenda.DoubleBooked, a.TimeSlot)
		}
	}
	return agenda
}

func countBy(s domain.Schedule, key func(a domain.Assignment) string) []Count {
	counts := make(map[string]int)
	for _, a := range s {
		counts[key(a)]++
	}

	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func Bar(count int) string {
	return strings.Repeat("#", max(0, min(count, barMaxLength)))
}

// ViolationChart 返回各类违规数量的 ASCII 柱状图
func ViolationChart(res domain.FitnessResult) string {
	var sb strings.Builder
	for _, row := range violationRows(res) {
		fmt.Fprintf(&sb, "%-21s | %s (%d)\n", row.Name, Bar(row.Count), row.Count)
	}
	return sb.String()
}

func violationRows(res domain.FitnessResult) []Count {
	return []Count{
		{Name: "Room Conflicts", Count: res.RoomConflicts},
		{Name: "Facilitator Conflicts", Count: res.FacilitatorConflicts},
		{Name: "Room Size Violations", Count: res.RoomSizeViolations},
		{Name: "Special Violations", Count: res.SpecialViolations},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func WriteBestSchedule(w io.Writer, s domain.Schedule, res domain.FitnessResult) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Best Fitness = %s\n\n", formatFloat(res.Fitness))
	sb.WriteString("Constraint Summary:\n")
	for _, row := range violationRows(res) {
		fmt.Fprintf(&sb, "%s: %d\n", row.Name, row.Count)
	}
	sb.WriteString("\n")

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}

	records := [][]string{{"Activity", "Room", "Time", "Facilitator"}}
	for _, a := range s {
		records = append(records, []string{a.Activity, a.Room, string(a.TimeSlot), a.Facilitator})
	}
	return writeCSV(w, records)
}

func WriteFitnessHistory(w io.Writer, history []domain.GenerationStats) error {
	records := [][]string{{"Generation", "Best", "Average", "Worst"}}
	for _, h := range history {
		records = append(records, []string{strconv.Itoa(h.Generation), formatFloat(h.Best), formatFloat(h.Average), formatFloat(h.Worst)})
	}
	return writeCSV(w, records)
}

func WriteMutationHistory(w io.Writer, history []domain.GenerationStats) error {
	records := [][]string{{"Generation", "MutationRate"}}
	for _, h := range history {
		records = append(records, []string{strconv.Itoa(h.Generation), strconv.FormatFloat(h.MutationRate, 'g', -1, 64)})
	}
	return writeCSV(w, records)
}

func WriteViolations(w io.Writer, res domain.FitnessResult) error {
	return WriteCounts(w, "Violation", violationRows(res))
}

func WriteCounts(w io.Writer, header string, counts []Count) error {
	records := [][]string{{header, "Count"}}
	for _, c := range counts {
		records = append(records, []string{c.Name, strconv.Itoa(c.Count)})
	}
	return writeCSV(w, records)
}

func writeCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// OutputDir 返回某个目录的报告所在的文件夹，中文名字会被转换为拼音
func OutputDir(base, catalogName string) string {
	return filepath.Join(base, utils.Slugify(catalogName))
}

// WriteAll 把所有报告写入 dir，返回写入的文件路径
func WriteAll(dir string, summary *Summary) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("无法创建报告目录 %s: %w", dir, err)
	}

	files := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{"best_schedule.txt", func(w io.Writer) error { return WriteBestSchedule(w, summary.Schedule, summary.Result) }},
		{"fitness_over_time.csv", func(w io.Writer) error { return WriteFitnessHistory(w, summary.History) }},
		{"mutation_history.csv", func(w io.Writer) error { return WriteMutationHistory(w, summary.History) }},
		{"violations_report.csv", func(w io.Writer) error { return WriteViolations(w, summary.Result) }},
		{"room_utilization.csv", func(w io.Writer) error { return WriteCounts(w, "Room", RoomUtilization(summary.Schedule)) }},
		{"facilitator_load.csv", func(w io.Writer) error { return WriteCounts(w, "Facilitator", FacilitatorLoad(summary.Schedule)) }},
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return written, fmt.Errorf("无法写入 %s: %w", path, err)
		}
		written = append(written, path)
	}

	return written, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
