package forecast

import (
	"fmt"

	"github.com/sartorproj/goarima/timeseries"
)

// ETS 加法Holt-Winters指数平滑（水平+趋势+季节）
// Period<2 时退化为Holt线性趋势模型
type ETS struct {
	Period int
	Alpha  float64 // 水平平滑系数
	Beta   float64 // 趋势平滑系数
	Gamma  float64 // 季节平滑系数

	level    float64
	trend    float64
	seasonal []float64
	n        int
	fitted   bool
}

func NewETS(period int) *ETS {
	return &ETS{
		Period: period,
		Alpha:  0.2,
		Beta:   0.1,
		Gamma:  0.1,
	}
}

func (e *ETS) Name() string {
	if e.Period >= 2 {
		return fmt.Sprintf("ETS(A,A,A)[%d]", e.Period)
	}
	return "ETS(A,A,N)"
}

func (e *ETS) Fit(series *timeseries.Series) error {
	y := series.Values
	m := e.Period

	if m >= 2 {
		if len(y) < 2*m {
			return fmt.Errorf("序列长度 %d 不足两个季节周期 %d", len(y), 2*m)
		}
		e.fitSeasonal(y, m)
	} else {
		if len(y) < 4 {
			return fmt.Errorf("序列长度 %d 过短", len(y))
		}
		e.fitLinear(y)
	}

	e.n = len(y)
	e.fitted = true
	return nil
}

// fitSeasonal 初始值取自前两个季节：水平为第一季均值，
// 趋势为相邻两季的平均逐期变化，季节项为第一季对均值的偏差
func (e *ETS) fitSeasonal(y []float64, m int) {
	level := 0.0
	for i := 0; i < m; i++ {
		level += y[i]
	}
	level /= float64(m)

	trend := 0.0
	for i := 0; i < m; i++ {
		trend += (y[m+i] - y[i]) / float64(m)
	}
	trend /= float64(m)

	seasonal := make([]float64, m)
	for i := 0; i < m; i++ {
		seasonal[i] = y[i] - level
	}

	for t := 0; t < len(y); t++ {
		idx := t % m
		prevLevel := level
		level = e.Alpha*(y[t]-seasonal[idx]) + (1-e.Alpha)*(level+trend)
		trend = e.Beta*(level-prevLevel) + (1-e.Beta)*trend
		seasonal[idx] = e.Gamma*(y[t]-level) + (1-e.Gamma)*seasonal[idx]
	}

	e.level = level
	e.trend = trend
	e.seasonal = seasonal
}

func (e *ETS) fitLinear(y []float64) {
	level := y[0]
	trend := y[1] - y[0]

	for t := 1; t < len(y); t++ {
		prevLevel := level
		level = e.Alpha*y[t] + (1-e.Alpha)*(level+trend)
		trend = e.Beta*(level-prevLevel) + (1-e.Beta)*trend
	}

	e.level = level
	e.trend = trend
	e.seasonal = nil
}

func (e *ETS) Forecast(horizon int) ([]float64, error) {
	if !e.fitted {
		return nil, errNotFitted
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("预测步数非法: %d", horizon)
	}

	result := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		v := e.level + float64(h)*e.trend
		if e.seasonal != nil {
			v += e.seasonal[(e.n+h-1)%e.Period]
		}
		result[h-1] = v
	}
	return result, nil
}
