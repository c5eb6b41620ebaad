package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPERT 三点估算
func TestPERT(t *testing.T) {
	got, err := PERT(1, 4, 7)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-9, "(1 + 4*4 + 7)/6 = 4")

	got, err = PERT(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = PERT(1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	t.Run("NegativeRejected", func(t *testing.T) {
		_, err := PERT(-1, 2, 3)
		require.Error(t, err)
		_, err = PERT(0.1, -1, 2)
		require.Error(t, err)
	})
}

// TestCOCOMOI 各模式的单调性与派生量
func TestCOCOMOI(t *testing.T) {
	small, err := COCOMOI(1, "organic")
	require.NoError(t, err)
	big, err := COCOMOI(100, "organic")
	require.NoError(t, err)

	assert.Greater(t, big.EffortPersonMonths, small.EffortPersonMonths)
	assert.Greater(t, big.TimeMonths, small.TimeMonths)
	assert.Greater(t, small.Productivity, 0.0)

	t.Run("AllModels", func(t *testing.T) {
		for _, model := range []string{"organic", "semi-detached", "embedded", "Organic"} {
			out, err := COCOMOI(10, model)
			require.NoError(t, err, "model %s", model)
			assert.Greater(t, out.EffortPersonMonths, 0.0)
			assert.Greater(t, out.TimeMonths, 0.0)
			assert.InDelta(t, out.EffortPersonMonths/out.TimeMonths, out.Staff, 1e-9)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := COCOMOI(0, "organic")
		require.Error(t, err)
		_, err = COCOMOI(10, "unknown-model")
		require.Error(t, err)
	})
}

// TestCOCOMOII 指数推导与边界截断
func TestCOCOMOII(t *testing.T) {
	sf := map[string]float64{"PREC": 3.0, "FLEX": 2.0, "RESL": 3.0, "TEAM": 2.0, "PMAT": 3.0}
	em := map[string]float64{"RELY": 1.0, "DATA": 1.1, "CPLX": 0.9}

	out, err := COCOMOII(50, sf, em)
	require.NoError(t, err)
	assert.Greater(t, out.EffortPM, 0.0)
	assert.Greater(t, out.ScheduleMonths, 0.0)
	assert.InDelta(t, 0.91+0.01*13.0, out.Details.E, 1e-9)
	assert.InDelta(t, 1.1*0.9, out.Details.EAF, 1e-9)

	t.Run("Invalid", func(t *testing.T) {
		_, err := COCOMOII(0, sf, em)
		require.Error(t, err)
		_, err = COCOMOII(10, map[string]float64{}, em)
		require.Error(t, err)
		_, err = COCOMOII(10, sf, map[string]float64{})
		require.Error(t, err)
	})

	t.Run("ExtremeScaleFactorsClamped", func(t *testing.T) {
		out, err := COCOMOII(10, map[string]float64{"S1": 10000.0}, map[string]float64{"M1": 1.0})
		require.NoError(t, err)
		assert.False(t, math.IsInf(out.ScheduleMonths, 0), "Schedule stays finite under extreme scale factors")
		assert.GreaterOrEqual(t, out.ScheduleMonths, 0.0)
	})
}

// TestEVMPrimitives 单项挣值指标
func TestEVMPrimitives(t *testing.T) {
	planned := []float64{1000, 2000, 1500}
	actuals := []float64{900, 2100, 1400}
	percent := []float64{1.0, 0.5, 0.0}
	bac := PV(planned)

	assert.Equal(t, 4500.0, bac)
	assert.Equal(t, 3000.0, PVUpTo(planned, 1))
	assert.Equal(t, 0.0, PVUpTo(planned, -1))
	assert.Equal(t, 4500.0, PVUpTo(planned, 99), "Index past end sums everything")

	ev, err := EVFromTaskCompletion(percent, planned)
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, ev, 1e-9)

	_, err = EVFromTaskCompletion([]float64{1.0}, planned)
	require.Error(t, err, "Length mismatch rejected")

	ac := AC(actuals)
	assert.Equal(t, 4400.0, ac)

	assert.InDelta(t, -1000.0, SV(ev, 3000), 1e-9)
	assert.InDelta(t, -2400.0, CV(ev, ac), 1e-9)
	assert.InDelta(t, 2000.0/3000.0, SPI(ev, 3000), 1e-9)
	assert.InDelta(t, 2000.0/4400.0, CPI(ev, ac), 1e-9)

	cpi := CPI(ev, ac)
	assert.False(t, math.IsInf(EACByCPI(bac, cpi), 0))
	assert.InDelta(t, ac+(bac-ev), EACByACEV(ac, bac, ev), 1e-9)
	assert.False(t, math.IsInf(EACByACCPI(ac, bac, ev, cpi), 0))
	assert.InDelta(t, bac-EACByCPI(bac, cpi), VAC(bac, EACByCPI(bac, cpi)), 1e-9)

	t.Run("ZeroDenominators", func(t *testing.T) {
		assert.True(t, math.IsInf(SPI(1, 0), 1))
		assert.Equal(t, 0.0, SPI(0, 0))
		assert.True(t, math.IsInf(CPI(1, 0), 1))
		assert.Equal(t, 0.0, CPI(0, 0))
		assert.True(t, math.IsInf(EACByCPI(100, 0), 1))
		assert.True(t, math.IsInf(EACByACCPI(10, 100, 5, 0), 1))
	})
}

// TestComputeEVMNominal 聚合计算的标称场景
func TestComputeEVMNominal(t *testing.T) {
	planned := []float64{100, 200}
	tasks := []Task{
		{Planned: 100, PercentComplete: 1.0},
		{Planned: 200, PercentComplete: 0.5},
	}
	actuals := []float64{110, 90}
	bac := 1000.0

	m, err := ComputeEVM(planned, tasks, actuals, &bac, EACByCPIMethod)
	require.NoError(t, err)

	assert.Equal(t, 300.0, m.PV)
	assert.Equal(t, 200.0, m.EV)
	assert.Equal(t, 200.0, m.AC)
	assert.Equal(t, -100.0, m.SV)
	assert.Equal(t, 0.0, m.CV)
	require.NotNil(t, m.SPI)
	assert.InDelta(t, 200.0/300.0, *m.SPI, 1e-9)
	require.NotNil(t, m.CPI)
	assert.InDelta(t, 1.0, *m.CPI, 1e-9)
	require.NotNil(t, m.EAC)
	assert.InDelta(t, 1000.0, *m.EAC, 1e-9)
	require.NotNil(t, m.VAC)
	assert.InDelta(t, 0.0, *m.VAC, 1e-9)
}

// TestComputeEVMZeroAndNil 零分母与缺省 BAC
func TestComputeEVMZeroAndNil(t *testing.T) {
	m, err := ComputeEVM(nil, []Task{{Planned: 0, PercentComplete: 0}}, nil, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.PV)
	assert.Equal(t, 0.0, m.EV)
	assert.Equal(t, 0.0, m.AC)
	assert.Equal(t, 0.0, m.SV)
	assert.Equal(t, 0.0, m.CV)
	assert.Nil(t, m.SPI)
	assert.Nil(t, m.CPI)
	assert.Nil(t, m.EAC)
	assert.Nil(t, m.VAC)
}

// TestComputeEVMEACMethods 三种 EAC 估算方法
func TestComputeEVMEACMethods(t *testing.T) {
	planned := []float64{100, 150}
	tasks := []Task{
		{Planned: 100, PercentComplete: 1.0},
		{Planned: 150, PercentComplete: 0.5},
	}
	actuals := []float64{110, 80}
	bac := 1000.0

	byCPI, err := ComputeEVM(planned, tasks, actuals, &bac, EACByCPIMethod)
	require.NoError(t, err)
	byRemaining, err := ComputeEVM(planned, tasks, actuals, &bac, EACACPlusRemaining)
	require.NoError(t, err)
	byACEVCPI, err := ComputeEVM(planned, tasks, actuals, &bac, EACACEVByCPI)
	require.NoError(t, err)

	ev, ac := byCPI.EV, byCPI.AC
	require.NotNil(t, byCPI.CPI)
	cpi := *byCPI.CPI

	assert.InDelta(t, bac/cpi, *byCPI.EAC, 1e-9)
	assert.InDelta(t, ac+(bac-ev), *byRemaining.EAC, 1e-9)
	assert.InDelta(t, ac+(bac-ev)/cpi, *byACEVCPI.EAC, 1e-9)

	_, err = ComputeEVM(planned, tasks, actuals, &bac, "bogus")
	require.Error(t, err)
}
