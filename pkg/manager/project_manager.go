package manager

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDataFile 默认的项目数据文件
const DefaultDataFile = "data/projects.json"

// descriptionLimit 故事描述长度上限,超出部分截断
const descriptionLimit = 1000

// pointsCap 故事点数上限,超出时封顶并记录原始请求值
const pointsCap = 1000

// projectData 持久化根结构
type projectData struct {
	Projects []*Project `json:"projects"`
}

// ProjectManager 管理项目与故事,数据持久化为 JSON 文件
type ProjectManager struct {
	dataFile string
	data     *projectData
}

// NewProjectManager 创建项目管理器并加载数据文件。
// dataFile 为空时使用 DefaultDataFile
func NewProjectManager(dataFile string) (*ProjectManager, error) {
	if dataFile == "" {
		dataFile = DefaultDataFile
	}
	pm := &ProjectManager{
		dataFile: dataFile,
		data:     &projectData{Projects: []*Project{}},
	}
	if err := pm.Load(); err != nil {
		return nil, err
	}
	return pm, nil
}

// Load 从磁盘加载数据;文件缺失时初始化空存储,损坏时重建
func (pm *ProjectManager) Load() error {
	if dir := filepath.Dir(pm.dataFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	raw, err := os.ReadFile(pm.dataFile)
	if os.IsNotExist(err) {
		pm.data = &projectData{Projects: []*Project{}}
		return pm.Save()
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", pm.dataFile, err)
	}

	var data projectData
	if err := json.Unmarshal(raw, &data); err != nil {
		// 文件损坏时重建空存储
		log.Printf("[ProjectManager] Corrupt data file %s, reinitializing: %v", pm.dataFile, err)
		pm.data = &projectData{Projects: []*Project{}}
		return pm.Save()
	}
	if data.Projects == nil {
		data.Projects = []*Project{}
	}
	pm.data = &data
	return nil
}

// Save 将当前数据写回磁盘
func (pm *ProjectManager) Save() error {
	raw, err := json.MarshalIndent(pm.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project data: %w", err)
	}
	if err := os.WriteFile(pm.dataFile, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", pm.dataFile, err)
	}
	return nil
}

// SaveWithBackup 先将现有文件复制为备份再保存,返回备份文件路径。
// 数据文件尚不存在时只保存,返回空路径
func (pm *ProjectManager) SaveWithBackup() (string, error) {
	backup := ""
	if raw, err := os.ReadFile(pm.dataFile); err == nil {
		stamp := time.Now().UTC().Format("20060102T150405")
		backup = fmt.Sprintf("%s.%s-%s.bak", pm.dataFile, stamp, uuid.NewString()[:8])
		if err := os.WriteFile(backup, raw, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup %s: %w", backup, err)
		}
		log.Printf("[ProjectManager] Backup written: %s", backup)
	}
	if err := pm.Save(); err != nil {
		return "", err
	}
	return backup, nil
}

func (pm *ProjectManager) nextProjectID() int {
	max := 0
	for _, p := range pm.data.Projects {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}

func nextStoryID(p *Project) int {
	max := 0
	for _, s := range p.Stories {
		if s.ID > max {
			max = s.ID
		}
	}
	return max + 1
}

func nextTaskID(s *Story) int {
	max := 0
	for _, t := range s.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// CreateProject 创建项目。标题空白、标题重复（不区分大小写）
// 或负责人空白均返回 *ValidationError
func (pm *ProjectManager) CreateProject(title, description, owner string) (*Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "project title cannot be blank")
	}
	if strings.TrimSpace(owner) == "" {
		return nil, invalid("owner", "project owner cannot be blank")
	}
	for _, p := range pm.data.Projects {
		if strings.EqualFold(strings.TrimSpace(p.Title), title) {
			return nil, invalid("title", "project title already exists")
		}
	}

	now := nowISO()
	project := &Project{
		ID:          pm.nextProjectID(),
		Title:       title,
		Description: description,
		Owner:       owner,
		Stories:     []*Story{},
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	pm.data.Projects = append(pm.data.Projects, project)
	if err := pm.Save(); err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects 返回项目摘要列表
func (pm *ProjectManager) ListProjects() []ProjectSummary {
	out := make([]ProjectSummary, 0, len(pm.data.Projects))
	for _, p := range pm.data.Projects {
		out = append(out, ProjectSummary{
			ID:         p.ID,
			Title:      p.Title,
			Owner:      p.Owner,
			StoryCount: len(p.Stories),
		})
	}
	return out
}

func (pm *ProjectManager) findProject(id int) *Project {
	for _, p := range pm.data.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// GetProject 按 ID 查找项目
func (pm *ProjectManager) GetProject(id int) (*Project, error) {
	p := pm.findProject(id)
	if p == nil {
		return nil, invalid("project_id", "project not found")
	}
	return p, nil
}

// GetStory 按项目与故事 ID 查找故事
func (pm *ProjectManager) GetStory(projectID, storyID int) (*Story, error) {
	p, err := pm.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	for _, s := range p.Stories {
		if s.ID == storyID {
			return s, nil
		}
	}
	return nil, invalid("story_id", "story not found")
}

// AddStory 在项目下新增用户故事
func (pm *ProjectManager) AddStory(projectID int, title, description string, points int) (*Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "story title cannot be blank")
	}
	p := pm.findProject(projectID)
	if p == nil {
		return nil, invalid("project_id", "project not found")
	}
	for _, s := range p.Stories {
		if strings.EqualFold(strings.TrimSpace(s.Title), title) {
			return nil, invalid("title", "story title already exists in project")
		}
	}

	now := nowISO()
	story := &Story{
		ID:          nextStoryID(p),
		Title:       title,
		Description: description,
		Points:      points,
		Tasks:       []*Task{},
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	p.Stories = append(p.Stories, story)
	p.ModifiedAt = now
	if err := pm.Save(); err != nil {
		return nil, err
	}
	return story, nil
}

// EditStory 编辑故事的标题/描述/点数,nil 字段跳过。
// 过长描述被截断;点数为负被拒绝,超过上限被封顶并记录原始值;
// 零点故事打 chore 标签,改名含 fixme 的故事打 needs-attention 标签
func (pm *ProjectManager) EditStory(projectID, storyID int, upd StoryUpdate) (*Story, error) {
	p := pm.findProject(projectID)
	if p == nil {
		return nil, invalid("project_id", "project not found")
	}
	var story *Story
	for _, s := range p.Stories {
		if s.ID == storyID {
			story = s
			break
		}
	}
	if story == nil {
		return nil, invalid("story_id", "story not found")
	}

	titleChanged := false
	if upd.Title != nil {
		newTitle := strings.TrimSpace(*upd.Title)
		if newTitle == "" {
			return nil, invalid("title", "story title cannot be blank")
		}
		if newTitle != story.Title {
			for _, s := range p.Stories {
				if s.ID != storyID && strings.EqualFold(strings.TrimSpace(s.Title), newTitle) {
					return nil, invalid("title", "story title already exists in project")
				}
			}
			story.Title = newTitle
			titleChanged = true
		}
	}

	if upd.Description != nil {
		if len(*upd.Description) > descriptionLimit {
			story.Description = (*upd.Description)[:descriptionLimit] + "..."
		} else {
			story.Description = *upd.Description
		}
	}

	if upd.Points != nil {
		pts := *upd.Points
		if pts < 0 {
			return nil, invalid("points", "points cannot be negative")
		}
		if pts > pointsCap {
			story.Notes = append(story.Notes, fmt.Sprintf("points_capped_from:%d", pts))
			pts = pointsCap
		}
		story.Points = pts
	}

	now := nowISO()
	story.ModifiedAt = now
	p.ModifiedAt = now

	if titleChanged && strings.Contains(strings.ToLower(story.Title), "fixme") {
		story.Tags = append(story.Tags, "needs-attention")
	}
	if story.Points == 0 {
		story.Tags = append(story.Tags, "chore")
	}

	if err := pm.Save(); err != nil {
		return nil, err
	}
	return story, nil
}

// DeleteStory 删除故事
func (pm *ProjectManager) DeleteStory(projectID, storyID int) error {
	p := pm.findProject(projectID)
	if p == nil {
		return invalid("project_id", "project not found")
	}
	for i, s := range p.Stories {
		if s.ID == storyID {
			p.Stories = append(p.Stories[:i], p.Stories[i+1:]...)
			p.ModifiedAt = nowISO()
			return pm.Save()
		}
	}
	return invalid("story_id", "story not found")
}

// AddTask 在故事下新增任务,初始状态 todo
func (pm *ProjectManager) AddTask(projectID, storyID int, title, assignedTo string, estimatedHours float64) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "task title cannot be blank")
	}
	if estimatedHours < 0 {
		return nil, invalid("estimated_hours", "estimated hours cannot be negative")
	}
	story, err := pm.GetStory(projectID, storyID)
	if err != nil {
		return nil, err
	}
	for _, t := range story.Tasks {
		if strings.EqualFold(t.Title, title) {
			return nil, invalid("title", "task with this title already exists in story")
		}
	}

	now := nowISO()
	task := &Task{
		ID:             nextTaskID(story),
		Title:          title,
		AssignedTo:     assignedTo,
		EstimatedHours: estimatedHours,
		Status:         "todo",
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	story.Tasks = append(story.Tasks, task)
	story.ModifiedAt = now
	recalcProgress(story)
	if err := pm.Save(); err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask 将任务标记为完成。ref 为任务 ID 的十进制形式或任务标题
func (pm *ProjectManager) CompleteTask(projectID, storyID int, ref, by string) (*Task, error) {
	story, err := pm.GetStory(projectID, storyID)
	if err != nil {
		return nil, err
	}

	var task *Task
	if id, convErr := strconv.Atoi(ref); convErr == nil {
		for _, t := range story.Tasks {
			if t.ID == id {
				task = t
				break
			}
		}
	} else {
		for _, t := range story.Tasks {
			if t.Title == ref {
				task = t
				break
			}
		}
	}
	if task == nil {
		return nil, invalid("task", "task not found")
	}

	now := nowISO()
	if task.Status == "done" {
		// 重复完成不报错,只在任务备注中留痕
		task.Notes = append(task.Notes, "already_completed_at:"+task.CompletedAt)
		task.ModifiedAt = now
		if err := pm.Save(); err != nil {
			return nil, err
		}
		return task, nil
	}

	task.Status = "done"
	task.CompletedBy = by
	task.CompletedAt = now
	task.ModifiedAt = now
	story.ModifiedAt = now
	recalcProgress(story)
	if err := pm.Save(); err != nil {
		return nil, err
	}
	return task, nil
}

// recalcProgress 按已完成任务占比更新故事进度
func recalcProgress(s *Story) {
	if len(s.Tasks) == 0 {
		s.Progress = 0
		return
	}
	done := 0
	for _, t := range s.Tasks {
		if t.Status == "done" {
			done++
		}
	}
	s.Progress = float64(done) / float64(len(s.Tasks)) * 100.0
}
