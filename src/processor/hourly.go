package processor

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/sartorproj/goarima/timeseries"
	"gonum.org/v1/gonum/stat"

	"ExperimentInsight/src/config"
	"ExperimentInsight/src/utils"
)

// HourlySummary 小时级广告指标序列的探索性统计
type HourlySummary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64

	Skipped    int // 时间戳或指标无法解析而被排除的行
	Gaps       int // 相邻观测间隔超过1小时的缺口数
	Duplicates int // 同一小时出现多条记录的次数
}

func (s HourlySummary) String() string {
	return fmt.Sprintf("小时序列: %d点, 均值%.4f, 标准差%.4f, 中位数%.4f, 范围[%.4f, %.4f], 排除%d行, 缺口%d处, 重复%d条",
		s.Count, s.Mean, s.StdDev, s.Median, s.Min, s.Max, s.Skipped, s.Gaps, s.Duplicates)
}

// HourlySeriesFromDataFrame 把小时级指标DataFrame转为时间序列并给出探索性统计
// 行按时间戳升序排列后输出；无法解析的行排除并计数
func HourlySeriesFromDataFrame(df dataframe.DataFrame, dcfg *config.DataConfig) (*timeseries.Series, HourlySummary, error) {
	tsCol := dcfg.Hourly.TimestampColumn
	valCol := dcfg.Hourly.ValueColumn

	for _, col := range []string{tsCol, valCol} {
		if !utils.HasColumn(df, col) {
			return nil, HourlySummary{}, fmt.Errorf("小时指标文件缺少列 %q", col)
		}
	}

	type point struct {
		ts    time.Time
		value float64
	}

	summary := HourlySummary{}
	points := make([]point, 0, df.Nrow())

	tsSeries := df.Col(tsCol)
	valSeries := df.Col(valCol)

	for i := 0; i < df.Nrow(); i++ {
		ts, err := utils.ParseHour(tsSeries.Elem(i).String())
		if err != nil {
			summary.Skipped++
			continue
		}
		v, ok := utils.ParseFloat(valSeries.Elem(i))
		if !ok {
			summary.Skipped++
			continue
		}
		points = append(points, point{ts: ts, value: v})
	}

	if len(points) == 0 {
		return nil, summary, fmt.Errorf("小时指标文件没有可用数据")
	}

	sort.Slice(points, func(i, j int) bool { return points[i].ts.Before(points[j].ts) })

	timestamps := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		timestamps[i] = p.ts
		values[i] = p.value
		if i > 0 {
			delta := p.ts.Sub(points[i-1].ts)
			if delta > time.Hour {
				summary.Gaps++
			} else if delta == 0 {
				summary.Duplicates++
			}
		}
	}

	series, err := timeseries.NewWithTimestamps(timestamps, values)
	if err != nil {
		return nil, summary, err
	}

	summary.Count = len(values)
	summary.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		summary.StdDev = stat.StdDev(values, nil)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	summary.Min = sorted[0]
	summary.Max = sorted[len(sorted)-1]
	summary.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	return series, summary, nil
}
