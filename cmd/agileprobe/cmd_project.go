package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"agileprobe/pkg/manager"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		owner, _ := cmd.Flags().GetString("owner")

		pm, err := newProjectManager()
		if err != nil {
			return err
		}
		p, err := pm.CreateProject(args[0], description, owner)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		pm, err := newProjectManager()
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Title", "Owner", "Stories"})
		for _, p := range pm.ListProjects() {
			table.Append([]string{
				strconv.Itoa(p.ID), p.Title, p.Owner, strconv.Itoa(p.StoryCount),
			})
		}
		table.Render()
		return nil
	},
}

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Manage user stories",
}

var storyAddCmd = &cobra.Command{
	Use:   "add <project-id> <title>",
	Short: "Add a story to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		description, _ := cmd.Flags().GetString("description")
		points, _ := cmd.Flags().GetInt("points")

		pm, err := newProjectManager()
		if err != nil {
			return err
		}
		story, err := pm.AddStory(projectID, args[1], description, points)
		if err != nil {
			return err
		}
		return printJSON(story)
	},
}

var storyEditCmd = &cobra.Command{
	Use:   "edit <project-id> <story-id>",
	Short: "Edit a story's title, description or points",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		storyID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid story id %q", args[1])
		}

		var upd manager.StoryUpdate
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			upd.Title = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			upd.Description = &v
		}
		if cmd.Flags().Changed("points") {
			v, _ := cmd.Flags().GetInt("points")
			upd.Points = &v
		}

		pm, err := newProjectManager()
		if err != nil {
			return err
		}
		story, err := pm.EditStory(projectID, storyID, upd)
		if err != nil {
			return err
		}
		return printJSON(story)
	},
}

var storyDeleteCmd = &cobra.Command{
	Use:   "delete <project-id> <story-id>",
	Short: "Delete a story",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		storyID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid story id %q", args[1])
		}

		pm, err := newProjectManager()
		if err != nil {
			return err
		}
		if err := pm.DeleteStory(projectID, storyID); err != nil {
			return err
		}
		return printJSON(map[string]bool{"deleted": true})
	},
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage story tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <project-id> <story-id> <title>",
	Short: "Add a task to a story",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		storyID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid story id %q", args[1])
		}
		assignedTo, _ := cmd.Flags().GetString("assigned-to")
		hours, _ := cmd.Flags().GetFloat64("hours")

		pm, err := newProjectManager()
		if err != nil {
			return err
		}
		task, err := pm.AddTask(projectID, storyID, args[2], assignedTo, hours)
		if err != nil {
			return err
		}
		return printJSON(task)
	},
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <project-id> <story-id> <task-id-or-title>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		storyID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid story id %q", args[1])
		}
		by, _ := cmd.Flags().GetString("by")

		pm, err := newProjectManager()
		if err != nil {
			return err
		}
		task, err := pm.CompleteTask(projectID, storyID, args[2], by)
		if err != nil {
			return err
		}
		return printJSON(task)
	},
}

func init() {
	projectCreateCmd.Flags().String("description", "", "Project description")
	projectCreateCmd.Flags().String("owner", "", "Project owner")
	projectCmd.AddCommand(projectCreateCmd, projectListCmd)

	storyAddCmd.Flags().String("description", "", "Story description")
	storyAddCmd.Flags().Int("points", 0, "Story points")
	storyEditCmd.Flags().String("title", "", "New title")
	storyEditCmd.Flags().String("description", "", "New description")
	storyEditCmd.Flags().Int("points", 0, "New points")
	storyCmd.AddCommand(storyAddCmd, storyEditCmd, storyDeleteCmd)

	taskAddCmd.Flags().String("assigned-to", "", "Assignee")
	taskAddCmd.Flags().Float64("hours", 0, "Estimated hours")
	taskCompleteCmd.Flags().String("by", "", "Completed by")
	taskCmd.AddCommand(taskAddCmd, taskCompleteCmd)

	rootCmd.AddCommand(projectCmd, storyCmd, taskCmd)
}
