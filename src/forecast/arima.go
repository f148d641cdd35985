package forecast

import (
	"fmt"

	"github.com/sartorproj/goarima/autoarima"
	"github.com/sartorproj/goarima/timeseries"
)

// AutoARIMA 自动定阶的(S)ARIMA，模型搜索与拟合完全由goarima完成
type AutoARIMA struct {
	Period int // >1 时启用季节搜索

	result *autoarima.Result
}

func NewAutoARIMA(period int) *AutoARIMA {
	return &AutoARIMA{Period: period}
}

func (a *AutoARIMA) Name() string {
	if a.Period > 1 {
		return fmt.Sprintf("AutoARIMA[%d]", a.Period)
	}
	return "AutoARIMA"
}

func (a *AutoARIMA) Fit(series *timeseries.Series) error {
	cfg := autoarima.DefaultConfig()
	if a.Period > 1 {
		cfg.Seasonal = true
		cfg.SeasonalM = a.Period
	}

	result, err := autoarima.AutoARIMA(series, cfg)
	if err != nil {
		return err
	}
	if result == nil || (result.Model == nil && result.SeasonalModel == nil) {
		return fmt.Errorf("自动定阶没有找到可用模型")
	}

	a.result = result
	return nil
}

func (a *AutoARIMA) Forecast(horizon int) ([]float64, error) {
	if a.result == nil {
		return nil, errNotFitted
	}
	return a.result.Predict(horizon)
}

// Order 返回选中的模型阶数描述，报表用
func (a *AutoARIMA) Order() string {
	if a.result == nil {
		return ""
	}
	if a.result.IsSeasonal {
		return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]",
			a.result.P, a.result.D, a.result.Q,
			a.result.SP, a.result.SD, a.result.SQ, a.result.M)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)", a.result.P, a.result.D, a.result.Q)
}
