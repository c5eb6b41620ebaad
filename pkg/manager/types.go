// Package manager 提供项目/用户故事/任务的管理与 JSON 持久化
package manager

import (
	"fmt"
	"time"
)

// Project 项目实体
type Project struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"`
	Stories     []*Story `json:"stories"`
	CreatedAt   string   `json:"created_at"`
	ModifiedAt  string   `json:"modified_at"`
}

// Story 用户故事
type Story struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Points      int      `json:"points"`
	Tasks       []*Task  `json:"tasks"`
	Tags        []string `json:"tags,omitempty"`
	Notes       []string `json:"notes,omitempty"`
	SprintID    int      `json:"sprint_id,omitempty"`
	Progress    float64  `json:"progress"`
	CreatedAt   string   `json:"created_at"`
	ModifiedAt  string   `json:"modified_at"`
}

// Task 故事下的任务
type Task struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	AssignedTo     string   `json:"assigned_to,omitempty"`
	EstimatedHours float64  `json:"estimated_hours,omitempty"`
	Status         string   `json:"status"`
	CompletedBy    string   `json:"completed_by,omitempty"`
	CompletedAt    string   `json:"completed_at,omitempty"`
	Notes          []string `json:"notes,omitempty"`
	CreatedAt      string   `json:"created_at"`
	ModifiedAt     string   `json:"modified_at"`
}

// ProjectSummary 项目列表摘要
type ProjectSummary struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Owner      string `json:"owner"`
	StoryCount int    `json:"story_count"`
}

// StoryUpdate 故事编辑的可选字段。nil 表示不修改
type StoryUpdate struct {
	Title       *string
	Description *string
	Points      *int
}

// ValidationError 输入校验错误,对应调用方可向用户展示的拒绝原因
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// invalid 构造字段级校验错误
func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// nowISO 统一的 UTC 时间戳格式
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
