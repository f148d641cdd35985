package processor

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"

	"ExperimentInsight/src/config"
)

func hourlyDataConfig() *config.DataConfig {
	dcfg := &config.DataConfig{}
	dcfg.Hourly.TimestampColumn = "ts"
	dcfg.Hourly.ValueColumn = "revenue"
	dcfg.Hourly.Period = 24
	return dcfg
}

func TestHourlySeriesFromDataFrame(t *testing.T) {
	var b strings.Builder
	b.WriteString("ts,revenue\n")
	// 故意乱序写入，第3小时缺失
	b.WriteString("2025-07-01 01:00:00,2.0\n")
	b.WriteString("2025-07-01 00:00:00,1.0\n")
	b.WriteString("2025-07-01 02:00:00,3.0\n")
	b.WriteString("2025-07-01 04:00:00,5.0\n")
	b.WriteString("bad-timestamp,9.9\n")
	b.WriteString("2025-07-01 05:00:00,oops\n")

	df := dataframe.ReadCSV(strings.NewReader(b.String()))
	if df.Error() != nil {
		t.Fatal(df.Error())
	}

	series, summary, err := HourlySeriesFromDataFrame(df, hourlyDataConfig())
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}

	if summary.Count != 4 || summary.Skipped != 2 {
		t.Errorf("计数错误: %+v", summary)
	}
	if summary.Gaps != 1 {
		t.Errorf("应检测到1处缺口: %+v", summary)
	}

	// 按时间戳升序
	for i := 1; i < series.Len(); i++ {
		if !series.Timestamps[i].After(series.Timestamps[i-1]) {
			t.Fatal("序列未按时间排序")
		}
	}
	want := []float64{1.0, 2.0, 3.0, 5.0}
	for i, v := range want {
		if series.Values[i] != v {
			t.Errorf("第%d个值错误: %v", i, series.Values[i])
		}
	}

	if math.Abs(summary.Mean-2.75) > 1e-12 {
		t.Errorf("均值错误: %v", summary.Mean)
	}
	if summary.Min != 1.0 || summary.Max != 5.0 {
		t.Errorf("极值错误: %+v", summary)
	}
}

func TestHourlySeriesEmpty(t *testing.T) {
	df := dataframe.ReadCSV(strings.NewReader("ts,revenue\nbad,worse\n"))
	if df.Error() != nil {
		t.Fatal(df.Error())
	}
	if _, _, err := HourlySeriesFromDataFrame(df, hourlyDataConfig()); err == nil {
		t.Fatal("全部行不可用时应返回错误")
	}
}

func TestHourlyDuplicateHours(t *testing.T) {
	csv := "ts,revenue\n" +
		"2025-07-01 00:00:00,1.0\n" +
		"2025-07-01 00:00:00,1.2\n" +
		"2025-07-01 01:00:00,2.0\n"
	df := dataframe.ReadCSV(strings.NewReader(csv))
	if df.Error() != nil {
		t.Fatal(df.Error())
	}

	_, summary, err := HourlySeriesFromDataFrame(df, hourlyDataConfig())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Duplicates != 1 {
		t.Errorf("应检测到1条重复小时记录: %+v", summary)
	}
	if summary.Gaps != 0 {
		t.Errorf("重复不应计为缺口: %+v", summary)
	}
}

func TestHourlySummaryString(t *testing.T) {
	s := HourlySummary{Count: 10, Mean: 1.5}
	if got := fmt.Sprint(s); !strings.Contains(got, "10点") {
		t.Errorf("摘要格式错误: %s", got)
	}
}
