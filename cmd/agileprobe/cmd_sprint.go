package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"agileprobe/pkg/sprint"
)

var sprintCmd = &cobra.Command{
	Use:   "sprint",
	Short: "Manage sprints",
}

var sprintCreateCmd = &cobra.Command{
	Use:   "create <name> <start-date> <end-date> <capacity>",
	Short: "Create a sprint",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		capacity, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid capacity %q", args[3])
		}
		allowOverlap, _ := cmd.Flags().GetBool("allow-overlap")

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		sp, err := sm.CreateSprint(args[0], args[1], args[2], capacity, allowOverlap)
		if err != nil {
			return err
		}
		return printJSON(sp)
	},
}

var sprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := newSprintManager()
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Name", "Start", "End", "Capacity", "Stories"})
		for _, s := range sm.ListSprints() {
			table.Append([]string{
				strconv.Itoa(s.ID), s.Name, s.StartDate, s.EndDate,
				strconv.Itoa(s.Capacity), strconv.Itoa(s.StoryCount),
			})
		}
		table.Render()
		return nil
	},
}

var sprintAddStoryCmd = &cobra.Command{
	Use:   "add-story <sprint-id> <title> <points>",
	Short: "Add a story to a sprint",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sprint id %q", args[0])
		}
		points, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid points %q", args[2])
		}
		status, _ := cmd.Flags().GetString("status")
		opts := sprint.AddStoryOptions{}
		opts.AllowOverflow, _ = cmd.Flags().GetBool("allow-overflow")
		opts.ReplaceExisting, _ = cmd.Flags().GetBool("replace")
		opts.MergeIfDuplicate, _ = cmd.Flags().GetBool("merge")

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		story, err := sm.AddStory(sprintID, args[1], points, status, opts)
		if err != nil {
			return err
		}
		return printJSON(story)
	},
}

var sprintVelocityCmd = &cobra.Command{
	Use:   "velocity <sprint-id>",
	Short: "Calculate sprint velocity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sprint id %q", args[0])
		}
		opts := sprint.DefaultVelocityOptions()
		opts.IncludeInProgress, _ = cmd.Flags().GetBool("include-in-progress")
		opts.IncludeBlocked, _ = cmd.Flags().GetBool("include-blocked")
		if cmd.Flags().Changed("in-progress-weight") {
			opts.InProgressWeight, _ = cmd.Flags().GetFloat64("in-progress-weight")
		}

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		v, err := sm.CalculateVelocity(sprintID, opts)
		if err != nil {
			return err
		}
		return printJSON(map[string]int{"velocity": v})
	},
}

var sprintStatusCmd = &cobra.Command{
	Use:   "status <sprint-id>",
	Short: "Show sprint status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sprint id %q", args[0])
		}
		details, _ := cmd.Flags().GetBool("details")

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		status, err := sm.SprintStatus(sprintID, details)
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

var sprintBurndownCmd = &cobra.Command{
	Use:   "burndown <sprint-id>",
	Short: "Generate sprint burndown chart data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sprint id %q", args[0])
		}

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		chart, err := sm.GenerateBurndown(sprintID)
		if err != nil {
			return err
		}
		return printJSON(chart)
	},
}

// parseMemberCapacity 解析 member:points 形式的容量参数,
// 缺少冒号或点数非整数的条目被跳过
func parseMemberCapacity(entries []string) map[string]int {
	caps := make(map[string]int, len(entries))
	for _, entry := range entries {
		name, pts, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(pts))
		if err != nil {
			continue
		}
		caps[strings.TrimSpace(name)] = n
	}
	return caps
}

var sprintCapacityCmd = &cobra.Command{
	Use:   "capacity <sprint-id>",
	Short: "Plan story allocation against member capacities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sprint id %q", args[0])
		}
		members, _ := cmd.Flags().GetStringSlice("member")

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		plan, err := sm.ManageCapacity(sprintID, parseMemberCapacity(members))
		if err != nil {
			return err
		}
		return printJSON(plan)
	},
}

var sprintRetroCmd = &cobra.Command{
	Use:   "retro <sprint-id>",
	Short: "Record a sprint retrospective",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sprint id %q", args[0])
		}
		wentWell, _ := cmd.Flags().GetStringSlice("went-well")
		wentPoorly, _ := cmd.Flags().GetStringSlice("went-poorly")
		improvements, _ := cmd.Flags().GetStringSlice("improvements")

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		retro, err := sm.TrackRetrospective(sprintID, wentWell, wentPoorly, improvements)
		if err != nil {
			return err
		}
		return printJSON(retro)
	},
}

var sprintExportCmd = &cobra.Command{
	Use:   "export <sprint-id>",
	Short: "Export a sprint report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sprintID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sprint id %q", args[0])
		}
		format, _ := cmd.Flags().GetString("format")
		path, _ := cmd.Flags().GetString("output")
		details, _ := cmd.Flags().GetBool("details")

		sm, err := newSprintManager()
		if err != nil {
			return err
		}
		written, err := sm.ExportReport(sprintID, path, details, format)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"report": written})
	},
}

func init() {
	sprintCreateCmd.Flags().Bool("allow-overlap", false, "Allow duplicate names, reversed or overlapping dates")

	sprintAddStoryCmd.Flags().String("status", "todo", "Story status")
	sprintAddStoryCmd.Flags().Bool("allow-overflow", false, "Allow exceeding sprint capacity")
	sprintAddStoryCmd.Flags().Bool("replace", false, "Replace an existing story with the same title")
	sprintAddStoryCmd.Flags().Bool("merge", false, "Merge points into an existing story with the same title")

	sprintVelocityCmd.Flags().Bool("include-in-progress", false, "Count in-progress stories")
	sprintVelocityCmd.Flags().Bool("include-blocked", false, "Count blocked stories at half weight")
	sprintVelocityCmd.Flags().Float64("in-progress-weight", 0.5, "Weight for in-progress stories")

	sprintStatusCmd.Flags().Bool("details", false, "Include story list and breakdown")

	sprintCapacityCmd.Flags().StringSlice("member", nil, "Member capacity as name:points (repeatable)")

	sprintRetroCmd.Flags().StringSlice("went-well", nil, "What went well")
	sprintRetroCmd.Flags().StringSlice("went-poorly", nil, "What went poorly")
	sprintRetroCmd.Flags().StringSlice("improvements", nil, "Improvements for next sprint")

	sprintExportCmd.Flags().String("format", "json", "Report format (json, txt)")
	sprintExportCmd.Flags().String("output", "", "Custom output path")
	sprintExportCmd.Flags().Bool("details", true, "Include story details")

	sprintCmd.AddCommand(sprintCreateCmd, sprintListCmd, sprintAddStoryCmd,
		sprintVelocityCmd, sprintStatusCmd, sprintBurndownCmd, sprintCapacityCmd,
		sprintRetroCmd, sprintExportCmd)
	rootCmd.AddCommand(sprintCmd)
}
