package metrics

import (
	"fmt"
	"math"
)

// EAC 估算方法
const (
	EACByCPIMethod     = "cpi"
	EACACPlusRemaining = "ac_plus_remaining"
	EACACEVByCPI       = "ac_ev_cpi"
)

// Task 带完成度的预算条目,percent_complete 取值 [0,1]
type Task struct {
	Planned         float64 `json:"planned"`
	PercentComplete float64 `json:"percent_complete"`
}

// PV 计划价值:全部计划预算之和(等于 BAC)
func PV(plannedValues []float64) float64 {
	total := 0.0
	for _, v := range plannedValues {
		total += v
	}
	return total
}

// PVUpTo 截至 uptoIndex(含)的计划价值,索引为负返回 0
func PVUpTo(plannedValues []float64, uptoIndex int) float64 {
	if uptoIndex < 0 {
		return 0
	}
	if uptoIndex >= len(plannedValues) {
		uptoIndex = len(plannedValues) - 1
	}
	total := 0.0
	for _, v := range plannedValues[:uptoIndex+1] {
		total += v
	}
	return total
}

// EVFromTaskCompletion 挣值:Σ clamp01(完成度) * 预算,两切片必须等长
func EVFromTaskCompletion(percentComplete, budgetPerTask []float64) (float64, error) {
	if len(percentComplete) != len(budgetPerTask) {
		return 0, fmt.Errorf("percent_complete and budget_per_task must have same length")
	}
	total := 0.0
	for i, p := range percentComplete {
		total += math.Max(0, math.Min(1, p)) * budgetPerTask[i]
	}
	return total, nil
}

// AC 实际成本之和
func AC(actualCosts []float64) float64 {
	total := 0.0
	for _, v := range actualCosts {
		total += v
	}
	return total
}

// SV 进度偏差:EV - PV
func SV(ev, pv float64) float64 { return ev - pv }

// CV 成本偏差:EV - AC
func CV(ev, ac float64) float64 { return ev - ac }

// SPI 进度绩效指数:EV / PV,PV 为零时 EV>0 返回 +Inf 否则 0
func SPI(ev, pv float64) float64 {
	if pv == 0 {
		if ev > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return ev / pv
}

// CPI 成本绩效指数:EV / AC,AC 为零时 EV>0 返回 +Inf 否则 0
func CPI(ev, ac float64) float64 {
	if ac == 0 {
		if ev > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return ev / ac
}

// EACByCPI 完工估算:BAC / CPI,CPI 为零返回 +Inf
func EACByCPI(bac, cpi float64) float64 {
	if cpi == 0 {
		return math.Inf(1)
	}
	return bac / cpi
}

// EACByACEV 完工估算:AC + (BAC - EV)
func EACByACEV(ac, bac, ev float64) float64 {
	return ac + (bac - ev)
}

// EACByACCPI 完工估算:AC + (BAC - EV) / CPI,CPI 为零返回 +Inf
func EACByACCPI(ac, bac, ev, cpi float64) float64 {
	if cpi == 0 {
		return math.Inf(1)
	}
	return ac + (bac-ev)/cpi
}

// VAC 完工偏差:BAC - EAC
func VAC(bac, eac float64) float64 { return bac - eac }

// EVMReport 聚合 EVM 指标;分母为零或缺 BAC 时比率字段为 nil
type EVMReport struct {
	PV  float64  `json:"PV"`
	EV  float64  `json:"EV"`
	AC  float64  `json:"AC"`
	SV  float64  `json:"SV"`
	CV  float64  `json:"CV"`
	SPI *float64 `json:"SPI"`
	CPI *float64 `json:"CPI"`
	EAC *float64 `json:"EAC"`
	VAC *float64 `json:"VAC"`
}

// ComputeEVM 聚合计算 EVM 指标
//
// bac 为 nil 时不计算 EAC/VAC;eacMethod 取 cpi / ac_plus_remaining / ac_ev_cpi
func ComputeEVM(plannedValues []float64, tasks []Task, actualCosts []float64, bac *float64, eacMethod string) (*EVMReport, error) {
	if eacMethod == "" {
		eacMethod = EACByCPIMethod
	}
	switch eacMethod {
	case EACByCPIMethod, EACACPlusRemaining, EACACEVByCPI:
	default:
		return nil, fmt.Errorf("unknown eac method %q", eacMethod)
	}

	pv := PV(plannedValues)
	ev := 0.0
	for _, tk := range tasks {
		ev += math.Max(0, math.Min(1, tk.PercentComplete)) * tk.Planned
	}
	ac := AC(actualCosts)

	report := &EVMReport{PV: pv, EV: ev, AC: ac, SV: ev - pv, CV: ev - ac}

	if pv != 0 {
		v := ev / pv
		report.SPI = &v
	}
	if ac != 0 {
		v := ev / ac
		report.CPI = &v
	}

	if bac != nil {
		var eac *float64
		switch eacMethod {
		case EACByCPIMethod:
			if report.CPI != nil && *report.CPI != 0 {
				v := *bac / *report.CPI
				eac = &v
			}
		case EACACPlusRemaining:
			v := ac + (*bac - ev)
			eac = &v
		case EACACEVByCPI:
			if report.CPI != nil && *report.CPI != 0 {
				v := ac + (*bac-ev)/(*report.CPI)
				eac = &v
			}
		}
		report.EAC = eac
		if eac != nil {
			v := *bac - *eac
			report.VAC = &v
		}
	}

	return report, nil
}
