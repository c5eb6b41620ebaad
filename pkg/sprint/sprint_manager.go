package sprint

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDataFile 默认数据文件路径
const DefaultDataFile = "data/sprints.json"

// 日期解析依次尝试的布局:纯日期、无时区的完整时间、RFC3339
var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339}

// 容量档位边界
const (
	smallCapacityMax  = 10
	normalCapacityMax = 30
)

type sprintData struct {
	Sprints []*Sprint `json:"sprints"`
}

// Manager 管理 Sprint 集合,所有修改操作落盘到 dataFile
type Manager struct {
	dataFile string
	data     *sprintData
}

// NewManager 创建管理器并加载数据文件,文件缺失时初始化为空存储
func NewManager(dataFile string) (*Manager, error) {
	if dataFile == "" {
		dataFile = DefaultDataFile
	}
	m := &Manager{dataFile: dataFile, data: &sprintData{Sprints: []*Sprint{}}}
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load 加载数据文件;文件损坏时重建为空存储
func (m *Manager) Load() error {
	dir := filepath.Dir(m.dataFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	raw, err := os.ReadFile(m.dataFile)
	if os.IsNotExist(err) {
		m.data = &sprintData{Sprints: []*Sprint{}}
		return m.Save()
	}
	if err != nil {
		return fmt.Errorf("read data file: %w", err)
	}

	var data sprintData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Printf("[SprintManager] Corrupt data file %s, reinitializing: %v", m.dataFile, err)
		m.data = &sprintData{Sprints: []*Sprint{}}
		return m.Save()
	}
	if data.Sprints == nil {
		data.Sprints = []*Sprint{}
	}
	m.data = &data
	return nil
}

// Save 将当前数据写回文件
func (m *Manager) Save() error {
	raw, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sprint data: %w", err)
	}
	if err := os.WriteFile(m.dataFile, raw, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

func (m *Manager) nextSprintID() int {
	max := 0
	for _, s := range m.data.Sprints {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1
}

func nextStoryID(s *Sprint) int {
	max := 0
	for _, st := range s.Stories {
		if st.ID > max {
			max = st.ID
		}
	}
	return max + 1
}

// parseDate 解析日期字符串,fallback 为失败时追加的时间后缀
func parseDate(value, fallbackSuffix string) (time.Time, bool) {
	for _, candidate := range []string{value, value + fallbackSuffix} {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// capBucket 容量档位:zero/small/normal/large
func capBucket(capacity int) string {
	switch {
	case capacity == 0:
		return "zero"
	case capacity < smallCapacityMax:
		return "small"
	case capacity < normalCapacityMax:
		return "normal"
	default:
		return "large"
	}
}

// CreateSprint 创建 Sprint
//
// 日期接受 YYYY-MM-DD 或完整 ISO 格式;结束早于开始仅在 allowOverlap 下交换,
// 否则拒绝。与已有 Sprint 的日期重叠同样只在 allowOverlap 下放行。
func (m *Manager) CreateSprint(name, startDate, endDate string, capacity int, allowOverlap bool) (*Sprint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("sprint name cannot be blank")
	}

	for _, s := range m.data.Sprints {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			if !allowOverlap {
				return nil, fmt.Errorf("sprint name already exists")
			}
			log.Printf("[SprintManager] Warning: creating sprint with duplicate name %q (allowOverlap)", name)
			break
		}
	}

	sd, sdOK := parseDate(startDate, "T00:00:00")
	ed, edOK := parseDate(endDate, "T23:59:59")
	switch {
	case !sdOK && !edOK:
		return nil, fmt.Errorf("start_date and end_date must be ISO dates YYYY-MM-DD")
	case !sdOK:
		return nil, fmt.Errorf("start_date must be ISO date YYYY-MM-DD")
	case !edOK:
		return nil, fmt.Errorf("end_date must be ISO date YYYY-MM-DD")
	}

	if ed.Before(sd) {
		if !allowOverlap {
			return nil, fmt.Errorf("end_date must be same or after start_date")
		}
		sd, ed = ed, sd
	}

	if capacity < 0 {
		return nil, fmt.Errorf("capacity must be non-negative integer")
	}
	if capacity == 0 {
		log.Printf("[SprintManager] Note: creating sprint %q with zero capacity", name)
	}

	overlapFound := false
	for _, s := range m.data.Sprints {
		existingSd, ok1 := parseDate(s.StartDate, "T00:00:00")
		existingEd, ok2 := parseDate(s.EndDate, "T23:59:59")
		if !ok1 || !ok2 {
			continue
		}
		if !sd.After(existingEd) && !ed.Before(existingSd) {
			overlapFound = true
			if !allowOverlap {
				return nil, fmt.Errorf("sprint dates overlap with existing sprint")
			}
			log.Printf("[SprintManager] Warning: sprint %q dates overlap with %q (allowOverlap)", name, s.Name)
			break
		}
	}

	sprint := &Sprint{
		ID:         m.nextSprintID(),
		Name:       name,
		StartDate:  sd.Format("2006-01-02"),
		EndDate:    ed.Format("2006-01-02"),
		Capacity:   capacity,
		Stories:    []*SprintStory{},
		Meta:       Meta{CapBucket: capBucket(capacity), Overlap: overlapFound},
		CreatedAt:  nowISO(),
		ModifiedAt: nowISO(),
	}
	m.data.Sprints = append(m.data.Sprints, sprint)
	if err := m.Save(); err != nil {
		return nil, err
	}
	log.Printf("[SprintManager] Sprint created: %d - %s", sprint.ID, sprint.Name)
	return sprint, nil
}

// ListSprints 返回全部 Sprint 的摘要
func (m *Manager) ListSprints() []Summary {
	out := make([]Summary, 0, len(m.data.Sprints))
	for _, s := range m.data.Sprints {
		out = append(out, Summary{
			ID:         s.ID,
			Name:       s.Name,
			StartDate:  s.StartDate,
			EndDate:    s.EndDate,
			Capacity:   s.Capacity,
			StoryCount: len(s.Stories),
		})
	}
	return out
}

func (m *Manager) findSprint(id int) *Sprint {
	for _, s := range m.data.Sprints {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// GetSprint 按 ID 查找 Sprint
func (m *Manager) GetSprint(id int) (*Sprint, error) {
	s := m.findSprint(id)
	if s == nil {
		return nil, fmt.Errorf("sprint not found")
	}
	return s, nil
}

// normalizeStatus 状态归一化,未识别的取值视为 todo
func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "done", "completed", "complete":
		return "done"
	case "inprogress", "in-progress", "in progress":
		return "in-progress"
	case "blocked":
		return "blocked"
	default:
		return "todo"
	}
}

// AddStory 向 Sprint 添加故事
//
// 标题重复时按选项分支:替换、合并(点数相加)或报错。超出容量默认拒绝,
// 例外:空 Sprint 加入单个超大故事时放行并告警。
func (m *Manager) AddStory(sprintID int, title string, storyPoints int, status string, opts AddStoryOptions) (*SprintStory, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("story title cannot be blank")
	}

	sprint := m.findSprint(sprintID)
	if sprint == nil {
		return nil, fmt.Errorf("sprint not found")
	}

	statusNorm := normalizeStatus(status)

	if storyPoints < 0 {
		return nil, fmt.Errorf("story_points must be non-negative integer")
	}

	var existing *SprintStory
	for _, st := range sprint.Stories {
		if strings.EqualFold(strings.TrimSpace(st.Title), title) {
			existing = st
			break
		}
	}

	if existing != nil {
		switch {
		case opts.ReplaceExisting:
			existing.StoryPoints = storyPoints
			existing.Status = statusNorm
			existing.ModifiedAt = nowISO()
			sprint.ModifiedAt = nowISO()
			if err := m.Save(); err != nil {
				return nil, err
			}
			log.Printf("[SprintManager] Replaced story in sprint %d: %d - %s", sprintID, existing.ID, existing.Title)
			return existing, nil
		case opts.MergeIfDuplicate:
			existing.StoryPoints += storyPoints
			existing.ModifiedAt = nowISO()
			sprint.ModifiedAt = nowISO()
			if err := m.Save(); err != nil {
				return nil, err
			}
			log.Printf("[SprintManager] Merged duplicate story in sprint %d: %d - %s", sprintID, existing.ID, existing.Title)
			return existing, nil
		default:
			return nil, fmt.Errorf("story title already exists in sprint")
		}
	}

	planned := 0
	for _, st := range sprint.Stories {
		planned += st.StoryPoints
	}
	if planned+storyPoints > sprint.Capacity {
		if opts.AllowOverflow {
			log.Printf("[SprintManager] Note: adding story beyond capacity of sprint %d (allowOverflow)", sprintID)
		} else if planned == 0 && storyPoints > sprint.Capacity {
			log.Printf("[SprintManager] Warning: single story exceeds capacity of sprint %d but allowed", sprintID)
		} else {
			return nil, fmt.Errorf("adding this story would exceed sprint capacity")
		}
	}

	story := &SprintStory{
		ID:          nextStoryID(sprint),
		Title:       title,
		StoryPoints: storyPoints,
		Status:      statusNorm,
		CreatedAt:   nowISO(),
		ModifiedAt:  nowISO(),
	}
	sprint.Stories = append(sprint.Stories, story)
	sprint.ModifiedAt = nowISO()
	if err := m.Save(); err != nil {
		return nil, err
	}
	log.Printf("[SprintManager] Added story to sprint %d: %d - %s", sprintID, story.ID, story.Title)
	return story, nil
}

// CalculateVelocity 统计 Sprint 速率(四舍五入为整数)
//
// done 全额计入;in-progress 按权重计入(需开关);blocked 按 0.5 计入(需开关);
// todo 不计
func (m *Manager) CalculateVelocity(sprintID int, opts VelocityOptions) (int, error) {
	sprint := m.findSprint(sprintID)
	if sprint == nil {
		return 0, fmt.Errorf("sprint not found")
	}
	if opts.InProgressWeight < 0 || opts.InProgressWeight > 1 {
		return 0, fmt.Errorf("in-progress weight must be between 0 and 1")
	}

	total := 0.0
	for _, st := range sprint.Stories {
		pts := float64(st.StoryPoints)
		switch st.Status {
		case "done":
			total += pts
		case "in-progress":
			if opts.IncludeInProgress {
				total += pts * opts.InProgressWeight
			}
		case "blocked":
			if opts.IncludeBlocked {
				total += pts * 0.5
			}
		}
	}
	// 半数取偶,0.5 权重产生的 .5 结果不总是进位
	return int(math.RoundToEven(total)), nil
}

// SprintStatus 计算 Sprint 状态快照
func (m *Manager) SprintStatus(sprintID int, includeDetails bool) (*Status, error) {
	sprint := m.findSprint(sprintID)
	if sprint == nil {
		return nil, fmt.Errorf("sprint not found")
	}

	planned, completed := 0, 0
	breakdown := map[string]int{}
	for _, st := range sprint.Stories {
		planned += st.StoryPoints
		if st.Status == "done" {
			completed += st.StoryPoints
		}
		breakdown[st.Status] += st.StoryPoints
	}
	remaining := sprint.Capacity - planned

	var percent float64
	switch {
	case planned > 0:
		percent = math.Round(float64(completed)/float64(planned)*10000) / 100
	case sprint.Capacity > 0:
		percent = 0.0
	default:
		// 无计划且无容量:视为已完成
		percent = 100.0
	}

	status := &Status{
		ID:                sprint.ID,
		Name:              sprint.Name,
		StartDate:         sprint.StartDate,
		EndDate:           sprint.EndDate,
		Capacity:          sprint.Capacity,
		PlannedPoints:     planned,
		CompletedPoints:   completed,
		RemainingCapacity: remaining,
		PercentComplete:   percent,
		Overloaded:        remaining < 0,
		Trivial:           planned == 0 && sprint.Capacity == 0,
	}
	if includeDetails {
		status.Stories = sprint.Stories
		status.Breakdown = breakdown
	}
	return status, nil
}

// GenerateBurndown 生成燃尽图数据:从起始日到结束日逐日列出日期,
// 理想剩余点数按计划总点数到 0 线性递减。单日 Sprint 的理想剩余直接记 0
func (m *Manager) GenerateBurndown(sprintID int) (*Burndown, error) {
	sprint := m.findSprint(sprintID)
	if sprint == nil {
		return nil, fmt.Errorf("sprint not found")
	}

	start, err := time.Parse("2006-01-02", sprint.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse sprint start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", sprint.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parse sprint end date: %w", err)
	}

	total, completed := 0, 0
	for _, st := range sprint.Stories {
		total += st.StoryPoints
		if st.Status == "done" {
			completed += st.StoryPoints
		}
	}

	days := int(end.Sub(start).Hours()/24) + 1
	dates := make([]string, 0, days)
	ideal := make([]float64, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, start.AddDate(0, 0, i).Format("2006-01-02"))
		var remaining float64
		if days > 1 {
			remaining = float64(total) * float64(days-1-i) / float64(days-1)
		}
		ideal = append(ideal, math.Round(remaining*100)/100)
	}

	return &Burndown{
		SprintID:        sprint.ID,
		TotalPoints:     total,
		CompletedPoints: completed,
		Dates:           dates,
		IdealRemaining:  ideal,
	}, nil
}

// ManageCapacity 按成员容量规划故事分配。故事按计划顺序贪心分给
// 剩余容量最大的成员,放不下的记入 unassigned。只读操作,不落盘
func (m *Manager) ManageCapacity(sprintID int, memberCapacity map[string]int) (*CapacityPlan, error) {
	sprint := m.findSprint(sprintID)
	if sprint == nil {
		return nil, fmt.Errorf("sprint not found")
	}

	names := make([]string, 0, len(memberCapacity))
	memberTotal := 0
	for name, pts := range memberCapacity {
		if pts < 0 {
			return nil, fmt.Errorf("member %q capacity cannot be negative", name)
		}
		names = append(names, name)
		memberTotal += pts
	}
	sort.Strings(names)

	remaining := make(map[string]int, len(names))
	for name, pts := range memberCapacity {
		remaining[name] = pts
	}

	planned := 0
	allocations := make(map[string][]string, len(names))
	unassigned := []string{}
	for _, st := range sprint.Stories {
		planned += st.StoryPoints

		best := ""
		for _, name := range names {
			if remaining[name] < st.StoryPoints {
				continue
			}
			if best == "" || remaining[name] > remaining[best] {
				best = name
			}
		}
		if best == "" {
			unassigned = append(unassigned, st.Title)
			continue
		}
		allocations[best] = append(allocations[best], st.Title)
		remaining[best] -= st.StoryPoints
	}

	return &CapacityPlan{
		SprintID:      sprint.ID,
		Capacity:      sprint.Capacity,
		PlannedPoints: planned,
		Members:       memberCapacity,
		MemberTotal:   memberTotal,
		Allocations:   allocations,
		Unassigned:    unassigned,
		Overcommitted: planned > sprint.Capacity || (len(memberCapacity) > 0 && len(unassigned) > 0),
	}, nil
}

// TrackRetrospective 记录 Sprint 回顾并落盘
func (m *Manager) TrackRetrospective(sprintID int, wentWell, wentPoorly, improvements []string) (*Retrospective, error) {
	sprint := m.findSprint(sprintID)
	if sprint == nil {
		return nil, fmt.Errorf("sprint not found")
	}

	retro := &Retrospective{
		SprintID:     sprintID,
		WentWell:     wentWell,
		WentPoorly:   wentPoorly,
		Improvements: improvements,
		RecordedAt:   nowISO(),
	}
	sprint.Retrospective = retro
	sprint.ModifiedAt = nowISO()
	if err := m.Save(); err != nil {
		return nil, err
	}
	return retro, nil
}

// ExportReport 导出 Sprint 报告,返回写出的文件路径
//
// format 支持 json 或 txt;path 为空时写到数据文件同目录,
// 文件名带 uuid 报告 ID。
func (m *Manager) ExportReport(sprintID int, path string, includeDetails bool, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "txt" {
		return "", fmt.Errorf("unsupported report format %q (want json or txt)", format)
	}

	status, err := m.SprintStatus(sprintID, includeDetails)
	if err != nil {
		return "", err
	}

	report := &Report{
		ID:          uuid.NewString(),
		SprintID:    sprintID,
		GeneratedAt: nowISO(),
		Status:      status,
	}

	if path == "" {
		path = filepath.Join(filepath.Dir(m.dataFile),
			fmt.Sprintf("sprint_%d_report_%s.%s", sprintID, report.ID[:8], format))
	}

	var raw []byte
	switch format {
	case "json":
		raw, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
	case "txt":
		var b strings.Builder
		fmt.Fprintf(&b, "Sprint Report %s\n", report.ID)
		fmt.Fprintf(&b, "Sprint: %d - %s (%s .. %s)\n", status.ID, status.Name, status.StartDate, status.EndDate)
		fmt.Fprintf(&b, "Capacity: %d  Planned: %d  Completed: %d  Remaining: %d\n",
			status.Capacity, status.PlannedPoints, status.CompletedPoints, status.RemainingCapacity)
		fmt.Fprintf(&b, "Percent complete: %.2f%%\n", status.PercentComplete)
		if status.Overloaded {
			b.WriteString("OVERLOADED\n")
		}
		for _, st := range status.Stories {
			fmt.Fprintf(&b, "  [%s] #%d %s (%d pts)\n", st.Status, st.ID, st.Title, st.StoryPoints)
		}
		raw = []byte(b.String())
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	log.Printf("[SprintManager] Report for sprint %d written to %s", sprintID, path)
	return path, nil
}
