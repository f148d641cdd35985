package forecast

import (
	"fmt"

	"github.com/sartorproj/goarima/timeseries"
)

// SNaive 季节朴素法：重复最后一个完整季节
// 小时数据周期24，即"明天每小时等于今天同一小时"
type SNaive struct {
	Period int
	season []float64
}

func NewSNaive(period int) *SNaive {
	return &SNaive{Period: period}
}

func (s *SNaive) Name() string {
	return fmt.Sprintf("SNAIVE[%d]", s.Period)
}

func (s *SNaive) Fit(series *timeseries.Series) error {
	if s.Period <= 0 {
		return fmt.Errorf("季节周期非法: %d", s.Period)
	}
	if series.Len() < s.Period {
		return fmt.Errorf("序列长度 %d 不足一个季节周期 %d", series.Len(), s.Period)
	}

	last := series.Slice(series.Len()-s.Period, series.Len())
	s.season = make([]float64, s.Period)
	copy(s.season, last.Values)
	return nil
}

func (s *SNaive) Forecast(horizon int) ([]float64, error) {
	if s.season == nil {
		return nil, errNotFitted
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("预测步数非法: %d", horizon)
	}

	result := make([]float64, horizon)
	for i := range result {
		result[i] = s.season[i%s.Period]
	}
	return result, nil
}
