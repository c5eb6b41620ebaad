package sprint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "sprints.json"))
	require.NoError(t, err)
	return m
}

// TestCreateSprint 创建的正常分支与校验分支
func TestCreateSprint(t *testing.T) {
	m := newTestManager(t)

	sp, err := m.CreateSprint("Sprint 1", "2025-11-01", "2025-11-14", 80, false)
	require.NoError(t, err)
	assert.Equal(t, 1, sp.ID)
	assert.Equal(t, "Sprint 1", sp.Name)
	assert.Equal(t, 80, sp.Capacity)
	assert.Equal(t, "large", sp.Meta.CapBucket)
	assert.False(t, sp.Meta.Overlap)

	t.Run("BlankName", func(t *testing.T) {
		_, err := m.CreateSprint("  ", "2025-12-01", "2025-12-07", 10, false)
		require.Error(t, err)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		_, err := m.CreateSprint("sprint 1", "2026-01-01", "2026-01-07", 10, false)
		require.Error(t, err, "Duplicate name check is case-insensitive")
	})

	t.Run("BadDates", func(t *testing.T) {
		_, err := m.CreateSprint("S", "not-a-date", "also-bad", 10, false)
		require.ErrorContains(t, err, "start_date and end_date")

		_, err = m.CreateSprint("S", "not-a-date", "2025-12-07", 10, false)
		require.ErrorContains(t, err, "start_date must be")

		_, err = m.CreateSprint("S", "2025-12-01", "also-bad", 10, false)
		require.ErrorContains(t, err, "end_date must be")
	})

	t.Run("ReversedDates", func(t *testing.T) {
		_, err := m.CreateSprint("Rev", "2026-03-07", "2026-03-01", 10, false)
		require.Error(t, err)

		// allowOverlap 时交换
		sp, err := m.CreateSprint("Rev", "2026-03-07", "2026-03-01", 10, true)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-01", sp.StartDate)
		assert.Equal(t, "2026-03-07", sp.EndDate)
	})

	t.Run("NegativeCapacity", func(t *testing.T) {
		_, err := m.CreateSprint("Neg", "2026-05-01", "2026-05-07", -1, false)
		require.Error(t, err)
	})

	t.Run("DateOverlap", func(t *testing.T) {
		_, err := m.CreateSprint("Clash", "2025-11-10", "2025-11-20", 10, false)
		require.ErrorContains(t, err, "overlap")

		sp, err := m.CreateSprint("Clash", "2025-11-10", "2025-11-20", 10, true)
		require.NoError(t, err)
		assert.True(t, sp.Meta.Overlap)
	})
}

// TestCapBuckets 容量档位划分
func TestCapBuckets(t *testing.T) {
	cases := []struct {
		capacity int
		bucket   string
	}{
		{0, "zero"},
		{1, "small"},
		{9, "small"},
		{10, "normal"},
		{29, "normal"},
		{30, "large"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.bucket, capBucket(tc.capacity), "capacity %d", tc.capacity)
	}
}

// TestAddStoryBranches 添加故事:状态归一化、重复分支、容量分支
func TestAddStoryBranches(t *testing.T) {
	m := newTestManager(t)
	sp, err := m.CreateSprint("S", "2025-12-01", "2025-12-07", 10, false)
	require.NoError(t, err)

	st, err := m.AddStory(sp.ID, "A", 3, "Completed", AddStoryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "done", st.Status)
	assert.Equal(t, 1, st.ID)

	t.Run("StatusNormalization", func(t *testing.T) {
		cases := map[string]string{
			"in progress": "in-progress",
			"InProgress":  "in-progress",
			"BLOCKED":     "blocked",
			"weird":       "todo",
			"":            "todo",
		}
		for input, want := range cases {
			assert.Equal(t, want, normalizeStatus(input), "input %q", input)
		}
	})

	t.Run("BlankTitle", func(t *testing.T) {
		_, err := m.AddStory(sp.ID, " ", 1, "todo", AddStoryOptions{})
		require.Error(t, err)
	})

	t.Run("NegativePoints", func(t *testing.T) {
		_, err := m.AddStory(sp.ID, "B", -1, "todo", AddStoryOptions{})
		require.Error(t, err)
	})

	t.Run("SprintNotFound", func(t *testing.T) {
		_, err := m.AddStory(999, "B", 1, "todo", AddStoryOptions{})
		require.Error(t, err)
	})

	t.Run("DuplicateDefaultErrors", func(t *testing.T) {
		_, err := m.AddStory(sp.ID, "a", 1, "todo", AddStoryOptions{})
		require.ErrorContains(t, err, "already exists")
	})

	t.Run("DuplicateReplace", func(t *testing.T) {
		got, err := m.AddStory(sp.ID, "a", 5, "blocked", AddStoryOptions{ReplaceExisting: true})
		require.NoError(t, err)
		assert.Equal(t, st.ID, got.ID)
		assert.Equal(t, 5, got.StoryPoints)
		assert.Equal(t, "blocked", got.Status)
	})

	t.Run("DuplicateMerge", func(t *testing.T) {
		got, err := m.AddStory(sp.ID, "a", 2, "todo", AddStoryOptions{MergeIfDuplicate: true})
		require.NoError(t, err)
		assert.Equal(t, 7, got.StoryPoints, "Merge adds points")
		assert.Equal(t, "blocked", got.Status, "Merge keeps existing status")
	})
}

// TestCapacityRules 容量检查的三个分支
func TestCapacityRules(t *testing.T) {
	m := newTestManager(t)
	sp, err := m.CreateSprint("Cap", "2025-12-01", "2025-12-07", 5, false)
	require.NoError(t, err)

	// 空 Sprint 加入单个超大故事:放行
	_, err = m.AddStory(sp.ID, "Huge", 20, "todo", AddStoryOptions{})
	require.NoError(t, err)

	// 已有故事后再超容量:拒绝
	_, err = m.AddStory(sp.ID, "More", 1, "todo", AddStoryOptions{})
	require.ErrorContains(t, err, "capacity")

	// allowOverflow 放行
	_, err = m.AddStory(sp.ID, "More", 1, "todo", AddStoryOptions{AllowOverflow: true})
	require.NoError(t, err)
}

// TestCalculateVelocity 速率口径
func TestCalculateVelocity(t *testing.T) {
	m := newTestManager(t)
	sp, err := m.CreateSprint("V", "2025-12-01", "2025-12-07", 100, false)
	require.NoError(t, err)

	mustAdd := func(title string, pts int, status string) {
		t.Helper()
		_, err := m.AddStory(sp.ID, title, pts, status, AddStoryOptions{})
		require.NoError(t, err)
	}
	mustAdd("d1", 5, "done")
	mustAdd("d2", 3, "done")
	mustAdd("ip", 4, "in-progress")
	mustAdd("bl", 6, "blocked")
	mustAdd("td", 9, "todo")

	v, err := m.CalculateVelocity(sp.ID, DefaultVelocityOptions())
	require.NoError(t, err)
	assert.Equal(t, 8, v, "Only done stories count by default")

	v, err = m.CalculateVelocity(sp.ID, VelocityOptions{IncludeInProgress: true, InProgressWeight: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = m.CalculateVelocity(sp.ID, VelocityOptions{IncludeBlocked: true})
	require.NoError(t, err)
	assert.Equal(t, 11, v, "Blocked counts at half weight")

	_, err = m.CalculateVelocity(sp.ID, VelocityOptions{InProgressWeight: 1.5})
	require.Error(t, err)

	t.Run("HalfPointRoundsToEven", func(t *testing.T) {
		sp2, err := m.CreateSprint("V2", "2026-01-05", "2026-01-09", 100, false)
		require.NoError(t, err)
		_, err = m.AddStory(sp2.ID, "half", 5, "in-progress", AddStoryOptions{})
		require.NoError(t, err)

		// 2.5 → 2,而 3.5 → 4
		v, err := m.CalculateVelocity(sp2.ID, VelocityOptions{IncludeInProgress: true, InProgressWeight: 0.5})
		require.NoError(t, err)
		assert.Equal(t, 2, v)

		_, err = m.AddStory(sp2.ID, "done1", 1, "done", AddStoryOptions{})
		require.NoError(t, err)
		v, err = m.CalculateVelocity(sp2.ID, VelocityOptions{IncludeInProgress: true, InProgressWeight: 0.5})
		require.NoError(t, err)
		assert.Equal(t, 4, v)
	})

	_, err = m.CalculateVelocity(999, DefaultVelocityOptions())
	require.Error(t, err)
}

// TestSprintStatus 状态快照的各分支
func TestSprintStatus(t *testing.T) {
	m := newTestManager(t)

	t.Run("TrivialSprint", func(t *testing.T) {
		sp, err := m.CreateSprint("Zero", "2025-10-01", "2025-10-07", 0, false)
		require.NoError(t, err)
		st, err := m.SprintStatus(sp.ID, false)
		require.NoError(t, err)
		assert.True(t, st.Trivial)
		assert.Equal(t, 100.0, st.PercentComplete)
		assert.Nil(t, st.Breakdown)
	})

	t.Run("WithStories", func(t *testing.T) {
		sp, err := m.CreateSprint("Full", "2025-12-01", "2025-12-07", 10, false)
		require.NoError(t, err)
		_, err = m.AddStory(sp.ID, "d", 6, "done", AddStoryOptions{})
		require.NoError(t, err)
		_, err = m.AddStory(sp.ID, "t", 2, "todo", AddStoryOptions{})
		require.NoError(t, err)

		st, err := m.SprintStatus(sp.ID, true)
		require.NoError(t, err)
		assert.Equal(t, 8, st.PlannedPoints)
		assert.Equal(t, 6, st.CompletedPoints)
		assert.Equal(t, 2, st.RemainingCapacity)
		assert.Equal(t, 75.0, st.PercentComplete)
		assert.False(t, st.Overloaded)
		assert.False(t, st.Trivial)
		assert.Equal(t, map[string]int{"done": 6, "todo": 2}, st.Breakdown)
		assert.Len(t, st.Stories, 2)
	})

	t.Run("Overloaded", func(t *testing.T) {
		sp, err := m.CreateSprint("Over", "2026-02-01", "2026-02-07", 3, false)
		require.NoError(t, err)
		_, err = m.AddStory(sp.ID, "big", 8, "todo", AddStoryOptions{})
		require.NoError(t, err)

		st, err := m.SprintStatus(sp.ID, false)
		require.NoError(t, err)
		assert.True(t, st.Overloaded)
		assert.Equal(t, -5, st.RemainingCapacity)
	})
}

// TestGenerateBurndown 燃尽图的日期轴与理想剩余序列
func TestGenerateBurndown(t *testing.T) {
	m := newTestManager(t)
	sp, err := m.CreateSprint("BD", "2025-12-01", "2025-12-05", 20, false)
	require.NoError(t, err)
	_, err = m.AddStory(sp.ID, "B1", 8, "done", AddStoryOptions{})
	require.NoError(t, err)
	_, err = m.AddStory(sp.ID, "B2", 4, "todo", AddStoryOptions{})
	require.NoError(t, err)

	chart, err := m.GenerateBurndown(sp.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2025-12-01", "2025-12-02", "2025-12-03", "2025-12-04", "2025-12-05",
	}, chart.Dates, "Dates must span the sprint range inclusive")
	assert.Equal(t, []float64{12, 9, 6, 3, 0}, chart.IdealRemaining,
		"Ideal burndown descends linearly from total to zero")
	assert.Equal(t, 12, chart.TotalPoints)
	assert.Equal(t, 8, chart.CompletedPoints)

	t.Run("SingleDaySprint", func(t *testing.T) {
		sp2, err := m.CreateSprint("BD1", "2026-01-02", "2026-01-02", 1, false)
		require.NoError(t, err)

		chart, err := m.GenerateBurndown(sp2.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"2026-01-02"}, chart.Dates)
		assert.Equal(t, []float64{0}, chart.IdealRemaining)
	})

	_, err = m.GenerateBurndown(999)
	require.Error(t, err)
}

// TestManageCapacity 成员容量的贪心分配
func TestManageCapacity(t *testing.T) {
	m := newTestManager(t)
	sp, err := m.CreateSprint("Cap", "2025-12-01", "2025-12-14", 20, false)
	require.NoError(t, err)
	_, err = m.AddStory(sp.ID, "A", 5, "todo", AddStoryOptions{})
	require.NoError(t, err)
	_, err = m.AddStory(sp.ID, "B", 8, "todo", AddStoryOptions{})
	require.NoError(t, err)

	plan, err := m.ManageCapacity(sp.ID, map[string]int{"alice": 10, "bob": 6})
	require.NoError(t, err)

	assert.Equal(t, 13, plan.PlannedPoints)
	assert.Equal(t, 16, plan.MemberTotal)
	// A(5) 先给剩余容量最大的 alice,B(8) 只有扣减后的 alice 仍放不下,落到 unassigned
	assert.Equal(t, []string{"A"}, plan.Allocations["alice"])
	assert.Equal(t, []string{"B"}, plan.Unassigned)
	assert.True(t, plan.Overcommitted, "Unassigned stories mark the plan overcommitted")

	t.Run("AllFit", func(t *testing.T) {
		plan, err := m.ManageCapacity(sp.ID, map[string]int{"alice": 10, "bob": 9})
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, plan.Allocations["alice"])
		assert.Equal(t, []string{"B"}, plan.Allocations["bob"])
		assert.Empty(t, plan.Unassigned)
		assert.False(t, plan.Overcommitted)
	})

	t.Run("NoMembers", func(t *testing.T) {
		plan, err := m.ManageCapacity(sp.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, plan.Unassigned)
		assert.False(t, plan.Overcommitted, "Without members the plan only reports sprint totals")
	})

	_, err = m.ManageCapacity(sp.ID, map[string]int{"carol": -1})
	require.Error(t, err)
	_, err = m.ManageCapacity(999, nil)
	require.Error(t, err)
}

// TestRetrospective 回顾记录并落盘
func TestRetrospective(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "sprints.json")
	m, err := NewManager(dataFile)
	require.NoError(t, err)
	sp, err := m.CreateSprint("RT1", "2025-12-01", "2025-12-07", 10, false)
	require.NoError(t, err)

	retro, err := m.TrackRetrospective(sp.ID, []string{"ok"}, []string{"bad"}, []string{"imp"})
	require.NoError(t, err)
	assert.Equal(t, sp.ID, retro.SprintID)
	assert.Equal(t, []string{"ok"}, retro.WentWell)

	m2, err := NewManager(dataFile)
	require.NoError(t, err)
	got, err := m2.GetSprint(sp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Retrospective)
	assert.Equal(t, []string{"imp"}, got.Retrospective.Improvements)

	_, err = m.TrackRetrospective(999, nil, nil, nil)
	require.Error(t, err)
}

// TestExportReport JSON 与文本两种格式
func TestExportReport(t *testing.T) {
	m := newTestManager(t)
	sp, err := m.CreateSprint("EX2", "2025-12-01", "2025-12-07", 5, false)
	require.NoError(t, err)
	_, err = m.AddStory(sp.ID, "Exp2", 1, "done", AddStoryOptions{})
	require.NoError(t, err)

	t.Run("JSON", func(t *testing.T) {
		path, err := m.ExportReport(sp.ID, "", true, "json")
		require.NoError(t, err)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var report Report
		require.NoError(t, json.Unmarshal(raw, &report))
		assert.Equal(t, sp.ID, report.SprintID)
		assert.NotEmpty(t, report.ID)
		assert.Equal(t, 1, report.Status.CompletedPoints)
	})

	t.Run("Text", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.txt")
		got, err := m.ExportReport(sp.ID, path, true, "txt")
		require.NoError(t, err)
		assert.Equal(t, path, got)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "Sprint Report")
		assert.Contains(t, string(raw), "Exp2")
	})

	t.Run("BadFormat", func(t *testing.T) {
		_, err := m.ExportReport(sp.ID, "", false, "xml")
		require.Error(t, err)
	})
}

// TestPersistence 落盘后重新加载,损坏文件重建
func TestPersistence(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "sprints.json")
	m, err := NewManager(dataFile)
	require.NoError(t, err)
	_, err = m.CreateSprint("P1", "2025-11-01", "2025-11-14", 80, false)
	require.NoError(t, err)

	raw, err := os.ReadFile(dataFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"P1"`))

	m2, err := NewManager(dataFile)
	require.NoError(t, err)
	require.Len(t, m2.ListSprints(), 1)

	require.NoError(t, os.WriteFile(dataFile, []byte("{oops"), 0o644))
	m3, err := NewManager(dataFile)
	require.NoError(t, err)
	assert.Empty(t, m3.ListSprints())
}
