// Package metrics 实现软件度量指标:PERT 工期估算、COCOMO I/II 成本模型
// 与挣值管理(EVM)
package metrics

import (
	"fmt"
	"math"
	"strings"
)

// PERT 三点估算:(乐观 + 4*最可能 + 悲观) / 6,入参不允许为负
func PERT(optimistic, likely, pessimistic float64) (float64, error) {
	if optimistic < 0 || likely < 0 || pessimistic < 0 {
		return 0, fmt.Errorf("pert estimates must be non-negative")
	}
	return (optimistic + 4*likely + pessimistic) / 6, nil
}

// cocomoIParams COCOMO I 模式系数表
type cocomoIParams struct {
	a, b, c, d float64
}

var cocomoIModels = map[string]cocomoIParams{
	"organic":       {a: 2.4, b: 1.05, c: 2.5, d: 0.38},
	"semi-detached": {a: 3.0, b: 1.12, c: 2.5, d: 0.35},
	"embedded":      {a: 3.6, b: 1.20, c: 2.5, d: 0.32},
}

// COCOMOIResult COCOMO I 估算结果
type COCOMOIResult struct {
	EffortPersonMonths float64 `json:"effort_person_months"`
	TimeMonths         float64 `json:"time_months"`
	Staff              float64 `json:"staff"`
	Productivity       float64 `json:"productivity"`
}

// COCOMOI 基础 COCOMO 估算,model 取 organic/semi-detached/embedded(大小写不敏感)
func COCOMOI(sizeKLOC float64, model string) (*COCOMOIResult, error) {
	if sizeKLOC <= 0 {
		return nil, fmt.Errorf("size_kloc must be positive")
	}
	params, ok := cocomoIModels[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		return nil, fmt.Errorf("unknown cocomo model %q", model)
	}

	effort := params.a * math.Pow(sizeKLOC, params.b)
	timeMonths := params.c * math.Pow(effort, params.d)
	return &COCOMOIResult{
		EffortPersonMonths: effort,
		TimeMonths:         timeMonths,
		Staff:              effort / timeMonths,
		Productivity:       sizeKLOC / effort,
	}, nil
}

// COCOMOIIDetails COCOMO II 中间量
type COCOMOIIDetails struct {
	E   float64 `json:"E"`
	EAF float64 `json:"EAF"`
}

// COCOMOIIResult COCOMO II 估算结果
type COCOMOIIResult struct {
	EffortPM       float64         `json:"effort_pm"`
	ScheduleMonths float64         `json:"schedule_months"`
	Details        COCOMOIIDetails `json:"details"`
}

// COCOMOII 后验 COCOMO II 估算
//
// E = 0.91 + 0.01*ΣSF,EAF = ΠEM,effort = 2.94*EAF*size^E,
// schedule = 3.67*effort^F,F = 0.28 + 0.2*(E-0.91) 截断到 [0,1]
// 以保证极端规模因子下结果仍有限
func COCOMOII(sizeKLOC float64, scaleFactors, effortMultipliers map[string]float64) (*COCOMOIIResult, error) {
	if sizeKLOC <= 0 {
		return nil, fmt.Errorf("size_kloc must be positive")
	}
	if len(scaleFactors) == 0 {
		return nil, fmt.Errorf("scale_factors must not be empty")
	}
	if len(effortMultipliers) == 0 {
		return nil, fmt.Errorf("effort_multipliers must not be empty")
	}

	sfSum := 0.0
	for _, v := range scaleFactors {
		sfSum += v
	}
	eaf := 1.0
	for _, v := range effortMultipliers {
		eaf *= v
	}

	e := 0.91 + 0.01*sfSum
	effort := 2.94 * eaf * math.Pow(sizeKLOC, e)

	f := 0.28 + 0.2*(e-0.91)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	schedule := 3.67 * math.Pow(effort, f)

	return &COCOMOIIResult{
		EffortPM:       effort,
		ScheduleMonths: schedule,
		Details:        COCOMOIIDetails{E: e, EAF: eaf},
	}, nil
}
