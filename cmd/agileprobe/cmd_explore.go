package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"agileprobe/pkg/explorer"
)

// 内置枚举目标,镜像故事编辑的校验分支
var enumTargets = map[string]explorer.Target{
	"classify-points": explorer.MustFunc("classify-points", func(points int) (string, error) {
		if points < 0 {
			return "", fmt.Errorf("points must be non-negative")
		}
		if points == 0 {
			return "chore", nil
		}
		if points > 1000 {
			return "capped", nil
		}
		return "ok", nil
	}, "points"),
	"check-title": explorer.MustFunc("check-title", func(title string) (string, error) {
		if strings.TrimSpace(title) == "" {
			return "", fmt.Errorf("title cannot be blank")
		}
		if strings.Contains(strings.ToLower(title), "fixme") {
			return "needs-attention", nil
		}
		return "ok", nil
	}, "title"),
	"simple-branch": explorer.MustFunc("simple-branch", func(x int) string {
		if x < 0 {
			return "negative"
		}
		if x == 0 {
			return "zero"
		}
		return "positive"
	}, "x"),
}

// 内置变异搜索目标:特定数值与触发串组合导致崩溃
var concolicTargets = map[string]explorer.ConcolicTarget{
	"crash-demo": func(num int64, str string) (string, error) {
		if num == 42 && strings.Contains(str, "magic") {
			return "", fmt.Errorf("crash triggered at %d/%q", num, str)
		}
		switch {
		case strings.HasPrefix(str, "cmd:"):
			return "command", nil
		case strings.Contains(str, "admin"):
			return "admin", nil
		case num%2 == 0:
			return "even", nil
		default:
			return "odd", nil
		}
	},
}

func lookupEnumTarget(name string) (explorer.Target, error) {
	t, ok := enumTargets[name]
	if !ok {
		names := make([]string, 0, len(enumTargets))
		for n := range enumTargets {
			names = append(names, n)
		}
		return nil, fmt.Errorf("unknown target %q (available: %s)", name, strings.Join(names, ", "))
	}
	return t, nil
}

func parseInputs(raw string) (map[string]interface{}, error) {
	var inputs map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return nil, fmt.Errorf("parse inputs: %w", err)
	}
	return inputs, nil
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Exhaustively or heuristically explore target inputs",
}

var exploreEnumerateCmd = &cobra.Command{
	Use:   "enumerate <target>",
	Short: "Enumerate every domain combination and record the outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := lookupEnumTarget(args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("inputs")
		inputs, err := parseInputs(raw)
		if err != nil {
			return err
		}

		report, err := explorer.EnumeratePaths(target, inputs)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var exploreTreeCmd = &cobra.Command{
	Use:   "tree <target>",
	Short: "Enumerate combinations and render the flat exploration tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := lookupEnumTarget(args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("inputs")
		inputs, err := parseInputs(raw)
		if err != nil {
			return err
		}

		tree, err := explorer.GenerateTree(target, inputs)
		if err != nil {
			return err
		}
		return printJSON(tree)
	},
}

var exploreConcolicCmd = &cobra.Command{
	Use:   "concolic <target>",
	Short: "Run the bounded mutation search from seed states",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, ok := concolicTargets[args[0]]
		if !ok {
			return fmt.Errorf("unknown concolic target %q", args[0])
		}

		rawSeeds, _ := cmd.Flags().GetString("seeds")
		var seeds []explorer.State
		if err := json.Unmarshal([]byte(rawSeeds), &seeds); err != nil {
			return fmt.Errorf("parse seeds: %w", err)
		}

		maxIters := cfg.Explorer.MaxIters
		if cmd.Flags().Changed("max-iters") {
			maxIters, _ = cmd.Flags().GetInt("max-iters")
		}

		searcher := explorer.NewSearcher(cfg.Explorer.Mutation)
		results := searcher.Search(target, seeds, maxIters)

		return printJSON(map[string]interface{}{
			"results": results,
			"pops":    searcher.LastPops(),
		})
	},
}

func init() {
	exploreEnumerateCmd.Flags().String("inputs", "{}", "Parameter domains as a JSON object")
	exploreTreeCmd.Flags().String("inputs", "{}", "Parameter domains as a JSON object")
	exploreConcolicCmd.Flags().String("seeds", `[{"num":0,"str":""}]`, "Seed states as a JSON array")
	exploreConcolicCmd.Flags().Int("max-iters", 1000, "Maximum worklist pops")

	exploreCmd.AddCommand(exploreEnumerateCmd, exploreTreeCmd, exploreConcolicCmd)
	rootCmd.AddCommand(exploreCmd)
}
