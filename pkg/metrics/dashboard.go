package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// DefaultDashboardFile 默认仪表盘输出路径
const DefaultDashboardFile = "docs/metrics/dashboard_report.html"

const dashboardTemplate = `<html>
<head>
    <title>Combined Metrics Dashboard</title>
    <style>
        body { font-family: Arial; margin: 40px; }
        h1 { color: #2c3e50; }
        table { border-collapse: collapse; width: 50%; }
        th, td { border: 1px solid #ddd; padding: 10px; }
        th { background-color: #f4f4f4; }
    </style>
</head>
<body>
    <h1>Project Metrics Dashboard</h1>

    <h2>EVM Metrics</h2>
    <table>
        <tr><th>CPI</th><th>SPI</th></tr>
        <tr><td>{{.CPI}}</td><td>{{.SPI}}</td></tr>
    </table>

    <h2>PERT</h2>
    <p>Expected Duration: <b>{{.ExpectedDuration}}</b></p>

    <h2>COCOMO</h2>
    <p>Effort Estimation: <b>{{.EffortEstimation}}</b></p>
</body>
</html>
`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardTemplate))

// DashboardSummary 三类指标文件的汇总视图
type DashboardSummary struct {
	CPI              float64
	SPI              float64
	ExpectedDuration float64
	EffortEstimation float64
}

func loadMetricFile(dir, filename string, out interface{}) error {
	path := filepath.Join(dir, filename)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("missing metric file %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// LoadDashboardSummary 读取 metricsDir 下的 pert/cocomo/evm 三个 JSON 文件
func LoadDashboardSummary(metricsDir string) (*DashboardSummary, error) {
	var pert struct {
		ExpectedDuration float64 `json:"expected_duration"`
	}
	var cocomo struct {
		EffortEstimation float64 `json:"effort_estimation"`
	}
	var evm struct {
		CPI float64 `json:"cpi"`
		SPI float64 `json:"spi"`
	}

	if err := loadMetricFile(metricsDir, "pert.json", &pert); err != nil {
		return nil, err
	}
	if err := loadMetricFile(metricsDir, "cocomo.json", &cocomo); err != nil {
		return nil, err
	}
	if err := loadMetricFile(metricsDir, "evm.json", &evm); err != nil {
		return nil, err
	}

	return &DashboardSummary{
		CPI:              evm.CPI,
		SPI:              evm.SPI,
		ExpectedDuration: pert.ExpectedDuration,
		EffortEstimation: cocomo.EffortEstimation,
	}, nil
}

// GenerateDashboard 汇总指标文件并生成 HTML 仪表盘,返回汇总视图
func GenerateDashboard(metricsDir, outputFile string) (*DashboardSummary, error) {
	if outputFile == "" {
		outputFile = DefaultDashboardFile
	}

	summary, err := LoadDashboardSummary(metricsDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return nil, fmt.Errorf("create dashboard dir: %w", err)
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, fmt.Errorf("create dashboard file: %w", err)
	}
	defer f.Close()

	if err := dashboardTmpl.Execute(f, summary); err != nil {
		return nil, fmt.Errorf("render dashboard: %w", err)
	}
	return summary, nil
}
