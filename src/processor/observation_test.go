package processor

import (
	"testing"

	"github.com/go-gota/gota/dataframe"

	"ExperimentInsight/src/config"
)

func testDataConfig() *config.DataConfig {
	return &config.DataConfig{
		ExperimentData: map[string]string{
			"variation": "variation",
			"date":      "date",
			"rps":       "rps",
		},
		Variations: map[string]string{
			"baseline":  "baseline",
			"optimizer": "treatment",
			"treatment": "treatment",
		},
	}
}

func TestObservationsFromDataFrame(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"variation", "date", "rps"},
		{"optimizer", "2025-07-01", "1.25"},
		{"baseline", "2025-07-01", "0.80"},
		{"optimizer", "2025-07-01", ""},     // rps缺失
		{"", "2025-07-01", "1.00"},          // 变体缺失
		{"baseline", "not-a-date", "1.00"},  // 日期非法
		{"baseline", "2025-07-01", "-0.50"}, // 负收入，脏行
	})

	obs, summary, err := ObservationsFromDataFrame(df, testDataConfig(), "day1.csv")
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}

	if summary.Total != 6 || summary.Kept != 2 {
		t.Errorf("清洗统计错误: %+v", summary)
	}
	if summary.MissingVariation != 1 || summary.MissingDate != 1 || summary.BadRPS != 2 {
		t.Errorf("排除分类计数错误: %+v", summary)
	}
	if summary.Excluded() != 4 {
		t.Errorf("排除总数错误: %d", summary.Excluded())
	}

	// 标签规范化到固定变体域
	if obs[0].Variation != "treatment" {
		t.Errorf("optimizer 应规范化为 treatment: %+v", obs[0])
	}
	if obs[1].Variation != "baseline" || obs[1].RPS != 0.80 {
		t.Errorf("baseline 观测错误: %+v", obs[1])
	}
}

func TestFullyExcludedGroupProducesNoRow(t *testing.T) {
	// 某个变体的rps全部缺失：输出中不得出现该变体的行，
	// 且排除计数等于被移除的行数
	df := dataframe.LoadRecords([][]string{
		{"variation", "date", "rps"},
		{"treatment", "2025-07-01", "NA"},
		{"treatment", "2025-07-01", "NA"},
		{"baseline", "2025-07-01", "1.00"},
	})

	obs, summary, err := ObservationsFromDataFrame(df, testDataConfig(), "day1.csv")
	if err != nil {
		t.Fatal(err)
	}
	if summary.BadRPS != 2 {
		t.Errorf("rps排除计数应为2: %+v", summary)
	}

	stats := ComputeGroupStatistics(obs, ByVariation)
	if len(stats) != 1 || stats[0].Variation != "baseline" {
		t.Errorf("全排除的变体不应产生输出行: %+v", stats)
	}
}

func TestObservationsMissingColumn(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"variation", "date"},
		{"baseline", "2025-07-01"},
	})

	if _, _, err := ObservationsFromDataFrame(df, testDataConfig(), "day1.csv"); err == nil {
		t.Fatal("缺少rps列应返回错误")
	}
}
