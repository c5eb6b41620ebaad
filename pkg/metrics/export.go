package metrics

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Exporter 将各项指标写为 JSON 文件,供仪表盘汇总
type Exporter struct {
	outputDir string
}

// NewExporter 输出目录为空时使用 "metrics"
func NewExporter(outputDir string) *Exporter {
	if outputDir == "" {
		outputDir = "metrics"
	}
	return &Exporter{outputDir: outputDir}
}

func (e *Exporter) writeJSON(filename string, payload interface{}) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create metrics dir: %w", err)
	}
	raw, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", filename, err)
	}
	path := filepath.Join(e.outputDir, filename)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	log.Printf("[MetricsExporter] %s created", filename)
	return path, nil
}

// ExportPERT 计算三点估算并写出 pert.json
func (e *Exporter) ExportPERT(optimistic, likely, pessimistic float64) (string, error) {
	expected, err := PERT(optimistic, likely, pessimistic)
	if err != nil {
		return "", err
	}
	return e.writeJSON("pert.json", map[string]float64{"expected_duration": expected})
}

// ExportCOCOMO 计算 COCOMO I(organic)并写出 cocomo.json
func (e *Exporter) ExportCOCOMO(sizeKLOC float64) (string, error) {
	result, err := COCOMOI(sizeKLOC, "organic")
	if err != nil {
		return "", err
	}
	return e.writeJSON("cocomo.json", map[string]float64{"effort_estimation": result.EffortPersonMonths})
}

// ExportEVM 计算 CPI/SPI 并写出 evm.json
func (e *Exporter) ExportEVM(ev, ac, pv float64) (string, error) {
	return e.writeJSON("evm.json", map[string]float64{
		"cpi": CPI(ev, ac),
		"spi": SPI(ev, pv),
	})
}

// ExportAllInputs ExportAll 的输入集合
type ExportAllInputs struct {
	Optimistic  float64
	Likely      float64
	Pessimistic float64
	SizeKLOC    float64
	EV          float64
	AC          float64
	PV          float64
}

// DefaultExportInputs 演示用默认输入
func DefaultExportInputs() ExportAllInputs {
	return ExportAllInputs{
		Optimistic: 10, Likely: 15, Pessimistic: 20,
		SizeKLOC: 10,
		EV:       90, AC: 100, PV: 95,
	}
}

// ExportAll 依次写出 pert.json、cocomo.json、evm.json
func (e *Exporter) ExportAll(in ExportAllInputs) error {
	if _, err := e.ExportPERT(in.Optimistic, in.Likely, in.Pessimistic); err != nil {
		return err
	}
	if _, err := e.ExportCOCOMO(in.SizeKLOC); err != nil {
		return err
	}
	if _, err := e.ExportEVM(in.EV, in.AC, in.PV); err != nil {
		return err
	}
	return nil
}
