package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"agileprobe/pkg/explorer"
	"agileprobe/pkg/manager"
	"agileprobe/pkg/sprint"
)

// 命令行全局参数
var (
	configPath     string
	dataFile       string
	sprintDataFile string
)

var cfg *Config

// Config 全局配置,来自 config/agileprobe.yaml
type Config struct {
	DataFile       string `yaml:"data_file"`
	SprintDataFile string `yaml:"sprint_data_file"`
	Metrics        struct {
		OutputDir     string `yaml:"output_dir"`
		DashboardFile string `yaml:"dashboard_file"`
	} `yaml:"metrics"`
	Explorer struct {
		MaxIters int                      `yaml:"max_iters"`
		Mutation *explorer.MutationConfig `yaml:"mutation"`
	} `yaml:"explorer"`
}

// getDefaultConfig 获取默认配置
func getDefaultConfig() *Config {
	c := &Config{}
	c.DataFile = manager.DefaultDataFile
	c.SprintDataFile = sprint.DefaultDataFile
	c.Metrics.OutputDir = "metrics"
	c.Metrics.DashboardFile = "docs/metrics/dashboard_report.html"
	c.Explorer.MaxIters = 1000
	c.Explorer.Mutation = explorer.DefaultMutationConfig()
	return c
}

// loadConfig 加载配置文件,缺失字段回填默认值
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	defaults := getDefaultConfig()
	if c.DataFile == "" {
		c.DataFile = defaults.DataFile
	}
	if c.SprintDataFile == "" {
		c.SprintDataFile = defaults.SprintDataFile
	}
	if c.Metrics.OutputDir == "" {
		c.Metrics.OutputDir = defaults.Metrics.OutputDir
	}
	if c.Metrics.DashboardFile == "" {
		c.Metrics.DashboardFile = defaults.Metrics.DashboardFile
	}
	if c.Explorer.MaxIters <= 0 {
		c.Explorer.MaxIters = defaults.Explorer.MaxIters
	}
	if c.Explorer.Mutation == nil {
		c.Explorer.Mutation = defaults.Explorer.Mutation
	} else {
		c.Explorer.Mutation.MergeWithDefaults()
	}
	return &c, nil
}

var rootCmd = &cobra.Command{
	Use:          "agileprobe",
	Short:        "Agile project management with input exploration tooling",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loaded, err := loadConfig(configPath)
		if err != nil {
			log.Printf("Warning: Failed to load config file, using defaults: %v", err)
			loaded = getDefaultConfig()
		}
		cfg = loaded

		// 命令行参数覆盖配置
		if dataFile != "" {
			cfg.DataFile = dataFile
		}
		if sprintDataFile != "" {
			cfg.SprintDataFile = sprintDataFile
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config/agileprobe.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data-file", "", "Project data file path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&sprintDataFile, "sprint-data-file", "", "Sprint data file path (overrides config)")
}

// newProjectManager 按当前配置打开项目存储
func newProjectManager() (*manager.ProjectManager, error) {
	return manager.NewProjectManager(cfg.DataFile)
}

// newSprintManager 按当前配置打开 Sprint 存储
func newSprintManager() (*sprint.Manager, error) {
	return sprint.NewManager(cfg.SprintDataFile)
}

// printJSON 将结果以缩进 JSON 输出到 stdout
func printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(raw))
	return nil
}
