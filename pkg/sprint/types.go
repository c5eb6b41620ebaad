// Package sprint 实现 Sprint 的创建、故事分配、速率统计与报告导出,
// 数据持久化为 JSON 文件
package sprint

import (
	"time"
)

// SprintStory Sprint 内的故事条目
type SprintStory struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	StoryPoints int    `json:"story_points"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ModifiedAt  string `json:"modified_at"`
}

// Meta Sprint 创建时的附加信息:容量档位与日期重叠标记
type Meta struct {
	CapBucket string `json:"cap_bucket"`
	Overlap   bool   `json:"overlap"`
}

// Sprint 一个迭代周期
type Sprint struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	StartDate     string         `json:"start_date"`
	EndDate       string         `json:"end_date"`
	Capacity      int            `json:"capacity"`
	Stories       []*SprintStory `json:"stories"`
	Meta          Meta           `json:"meta"`
	Retrospective *Retrospective `json:"retrospective,omitempty"`
	CreatedAt     string         `json:"created_at"`
	ModifiedAt    string         `json:"modified_at"`
}

// Summary Sprint 列表视图
type Summary struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Capacity   int    `json:"capacity"`
	StoryCount int    `json:"story_count"`
}

// Retrospective Sprint 回顾记录
type Retrospective struct {
	SprintID     int      `json:"sprint_id"`
	WentWell     []string `json:"went_well"`
	WentPoorly   []string `json:"went_poorly"`
	Improvements []string `json:"improvements"`
	RecordedAt   string   `json:"recorded_at"`
}

// Status Sprint 状态快照
type Status struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	StartDate         string         `json:"start_date"`
	EndDate           string         `json:"end_date"`
	Capacity          int            `json:"capacity"`
	PlannedPoints     int            `json:"planned_points"`
	CompletedPoints   int            `json:"completed_points"`
	RemainingCapacity int            `json:"remaining_capacity"`
	PercentComplete   float64        `json:"percent_complete"`
	Overloaded        bool           `json:"overloaded"`
	Trivial           bool           `json:"trivial"`
	Stories           []*SprintStory `json:"stories,omitempty"`
	Breakdown         map[string]int `json:"breakdown_by_status,omitempty"`
}

// Burndown 燃尽图数据:Sprint 日期轴与逐日理想剩余点数
type Burndown struct {
	SprintID        int       `json:"sprint_id"`
	TotalPoints     int       `json:"total_points"`
	CompletedPoints int       `json:"completed_points"`
	Dates           []string  `json:"dates"`
	IdealRemaining  []float64 `json:"ideal_remaining"`
}

// CapacityPlan 按成员容量对 Sprint 故事的分配结果
type CapacityPlan struct {
	SprintID      int                 `json:"sprint_id"`
	Capacity      int                 `json:"capacity"`
	PlannedPoints int                 `json:"planned_points"`
	Members       map[string]int      `json:"members"`
	MemberTotal   int                 `json:"member_total"`
	Allocations   map[string][]string `json:"allocations"`
	Unassigned    []string            `json:"unassigned"`
	Overcommitted bool                `json:"overcommitted"`
}

// Report 导出的 Sprint 报告
type Report struct {
	ID          string  `json:"id"`
	SprintID    int     `json:"sprint_id"`
	GeneratedAt string  `json:"generated_at"`
	Status      *Status `json:"status"`
}

// AddStoryOptions 添加故事时的分支开关
type AddStoryOptions struct {
	AllowOverflow    bool
	ReplaceExisting  bool
	MergeIfDuplicate bool
}

// VelocityOptions 速率统计口径
type VelocityOptions struct {
	IncludeInProgress bool
	InProgressWeight  float64
	IncludeBlocked    bool
}

// DefaultVelocityOptions 仅计入已完成故事,进行中权重 0.5 备用
func DefaultVelocityOptions() VelocityOptions {
	return VelocityOptions{InProgressWeight: 0.5}
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
