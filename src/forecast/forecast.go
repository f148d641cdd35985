// Package forecast 通过窄接口调用现成的时间序列预测模型。
// 模型内部（ARIMA的参数搜索、STL的分解迭代）是goarima库提供的服务，
// 这里只做 fit(series) -> model, forecast(model, horizon) -> series 的封装，
// 外加两个实现成本极低的基准模型（季节朴素法、指数平滑）。
package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/goarima/timeseries"
)

// Forecaster 预测模型的窄接口
type Forecaster interface {
	Name() string
	Fit(series *timeseries.Series) error
	Forecast(horizon int) ([]float64, error)
}

// Evaluation 一个模型在留出集上的表现
type Evaluation struct {
	Model     string
	RMSE      float64
	MAE       float64
	MAPE      float64
	Forecasts []float64
	Err       error // 拟合或预测失败时记录原因，指标无效
}

// Evaluate 用序列末尾的testSize个点做留出集，逐个评估模型
// 单个模型失败不影响其它模型，失败原因记录在Evaluation.Err里
func Evaluate(series *timeseries.Series, testSize int, models ...Forecaster) ([]Evaluation, error) {
	if testSize <= 0 || testSize >= series.Len() {
		return nil, fmt.Errorf("留出集大小非法: %d (序列长度 %d)", testSize, series.Len())
	}

	train := series.Slice(0, series.Len()-testSize)
	test := series.Slice(series.Len()-testSize, series.Len())

	results := make([]Evaluation, 0, len(models))
	for _, m := range models {
		ev := Evaluation{Model: m.Name()}

		if err := m.Fit(train); err != nil {
			ev.Err = fmt.Errorf("拟合失败: %w", err)
			results = append(results, ev)
			continue
		}

		forecasts, err := m.Forecast(testSize)
		if err != nil {
			ev.Err = fmt.Errorf("预测失败: %w", err)
			results = append(results, ev)
			continue
		}

		ev.Forecasts = forecasts
		ev.RMSE = RMSE(test.Values, forecasts)
		ev.MAE = MAE(test.Values, forecasts)
		ev.MAPE = MAPE(test.Values, forecasts)
		results = append(results, ev)
	}

	return results, nil
}

// RMSE 均方根误差
func RMSE(actual, forecast []float64) float64 {
	n := minLen(actual, forecast)
	if n == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		diff := actual[i] - forecast[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(n))
}

// MAE 平均绝对误差
func MAE(actual, forecast []float64) float64 {
	n := minLen(actual, forecast)
	if n == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(actual[i] - forecast[i])
	}
	return sum / float64(n)
}

// MAPE 平均绝对百分比误差，实际值为0的点跳过
func MAPE(actual, forecast []float64) float64 {
	n := minLen(actual, forecast)
	sum := 0.0
	count := 0
	for i := 0; i < n; i++ {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - forecast[i]) / actual[i])
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count) * 100
}

func minLen(a, b []float64) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}

var errNotFitted = errors.New("模型尚未拟合")
