package forecast

import (
	"fmt"

	"github.com/sartorproj/goarima/stats"
	"github.com/sartorproj/goarima/timeseries"
)

// STLForecast 基于STL分解的预测：goarima做季节-趋势分解，
// 趋势用漂移外推，季节项周期性重复，残差视为噪声不外推
type STLForecast struct {
	Period      int
	RobustIters int

	trendLast float64
	drift     float64
	seasonal  []float64
	n         int
	fitted    bool
}

func NewSTLForecast(period int) *STLForecast {
	return &STLForecast{Period: period, RobustIters: 2}
}

func (s *STLForecast) Name() string {
	return fmt.Sprintf("STL+drift[%d]", s.Period)
}

func (s *STLForecast) Fit(series *timeseries.Series) error {
	if s.Period < 2 {
		return fmt.Errorf("季节周期非法: %d", s.Period)
	}

	result := stats.STL(series, s.Period, s.RobustIters)
	if result == nil {
		return fmt.Errorf("STL分解失败: 序列长度 %d 不足两个周期 %d", series.Len(), 2*s.Period)
	}

	n := series.Len()
	trend := result.Trend.Values

	s.trendLast = trend[n-1]
	// 漂移量取整段趋势的平均斜率
	s.drift = (trend[n-1] - trend[0]) / float64(n-1)

	// STL的季节分量按周期重复，取前一个周期即得到按相位索引的模式
	s.seasonal = make([]float64, s.Period)
	copy(s.seasonal, result.Seasonal.Values[:s.Period])

	s.n = n
	s.fitted = true
	return nil
}

func (s *STLForecast) Forecast(horizon int) ([]float64, error) {
	if !s.fitted {
		return nil, errNotFitted
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("预测步数非法: %d", horizon)
	}

	result := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		result[h-1] = s.trendLast + float64(h)*s.drift + s.seasonal[(s.n+h-1)%s.Period]
	}
	return result, nil
}
