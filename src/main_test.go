package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"ExperimentInsight/src/config"
	"ExperimentInsight/src/report"
	"ExperimentInsight/src/storage"
)

// 构造一套最小可用的运行环境: 三天实验日志 + 一周小时指标
func setupRunEnv(t *testing.T) (*config.Config, *config.DataConfig) {
	t.Helper()
	dir := t.TempDir()

	dayRows := map[string][]string{
		"day1.csv": {
			"treatment,2026-08-01,1.0",
			"treatment,2026-08-01,3.0",
			"baseline,2026-08-01,2.0",
			",2026-08-01,9.0",   // 变体缺失
			"baseline,,1.0",     // 日期缺失
			"baseline,2026-08-01,abc", // rps异常
		},
		"day2.csv": {
			"treatment,2026-08-02,2.0",
			"baseline,2026-08-02,2.5",
		},
		"day3.csv": {
			"treatment,2026-08-03,2.0",
			"baseline,2026-08-03,1.5",
		},
	}
	for name, rows := range dayRows {
		content := "bucket,day,revenue_per_session\n" + strings.Join(rows, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	var sb strings.Builder
	sb.WriteString("ts,requests\n")
	for i := 0; i < 7*24; i++ {
		hour := i % 24
		value := 100 + 20*math.Sin(2*math.Pi*float64(hour)/24)
		sb.WriteString(fmt.Sprintf("2026-08-%02d %02d:00:00,%.2f\n", i/24+1, hour, value))
	}
	if err := os.WriteFile(filepath.Join(dir, "hourly.csv"), []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.DataDir = dir
	cfg.ReportPath = filepath.Join(dir, "report.xlsx")
	cfg.SheetName = "Sheet1"

	dcfg := &config.DataConfig{
		ExperimentData: map[string]string{
			"variation": "bucket",
			"date":      "day",
			"rps":       "revenue_per_session",
		},
		Variations: map[string]string{
			"treatment": "treatment",
			"baseline":  "baseline",
		},
		DayFiles: []string{"day1.csv", "day2.csv", "day3.csv"},
	}
	dcfg.Hourly.File = "hourly.csv"
	dcfg.Hourly.TimestampColumn = "ts"
	dcfg.Hourly.ValueColumn = "requests"
	dcfg.Hourly.Period = 24
	dcfg.Hourly.Horizon = 48

	return cfg, dcfg
}

func TestRunAnalysisEndToEnd(t *testing.T) {
	cfg, dcfg := setupRunEnv(t)

	logger, err := storage.NewLogger(filepath.Join(cfg.DataDir, "test.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	if err := runAnalysis(cfg, dcfg, logger); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("报表未生成: %v", err)
	}
	defer f.Close()

	// 合并视角: treatment的均值必须从原始行重算 (1+3+2+2)/4 = 2
	rows, err := f.GetRows(report.SheetInterval)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, row := range rows[1:] {
		if len(row) >= 3 && row[0] == "treatment" {
			found = true
			if row[1] != "4" {
				t.Errorf("treatment样本数错误: %v", row[1])
			}
			if row[2] != "2" {
				t.Errorf("treatment合并均值错误: %v", row[2])
			}
		}
	}
	if !found {
		t.Error("区间页缺少treatment行")
	}

	// 分日明细应覆盖3天×2变体
	byDay, err := f.GetRows(report.SheetByDay)
	if err != nil {
		t.Fatal(err)
	}
	if len(byDay) != 7 {
		t.Errorf("分日明细行数错误: %d", len(byDay))
	}

	// 诊断页按数据源记录清洗计数
	diag, err := f.GetRows(report.SheetDiagnosis)
	if err != nil {
		t.Fatal(err)
	}
	foundClean := false
	for _, row := range diag {
		if len(row) >= 6 && row[0] == "day1.csv" {
			foundClean = true
			if row[1] != "6" || row[2] != "3" {
				t.Errorf("day1.csv清洗计数错误: %v", row)
			}
		}
	}
	if !foundClean {
		t.Error("诊断页缺少day1.csv的清洗摘要")
	}

	// 预测页应有模型评估结果
	fc, err := f.GetRows(report.SheetForecast)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc) < 2 {
		t.Error("预测页缺少模型评估")
	}
}

func TestLoadDayObservationsDiscovery(t *testing.T) {
	cfg, dcfg := setupRunEnv(t)
	// 未配置分日文件时自动扫描数据目录，小时序列文件被排除
	dcfg.DayFiles = nil

	logger, err := storage.NewLogger(filepath.Join(cfg.DataDir, "test.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	daySets, cleans, err := loadDayObservations(cfg, dcfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(daySets) != 3 {
		t.Fatalf("应自动发现3个分日文件: %d", len(daySets))
	}

	var sources []string
	for _, c := range cleans {
		sources = append(sources, c.Source)
	}
	want := []string{"day1.csv", "day2.csv", "day3.csv"}
	if !reflect.DeepEqual(sources, want) {
		t.Errorf("自动发现的数据文件错误: %v", sources)
	}
}

func TestRunAnalysisNoUsableData(t *testing.T) {
	cfg, dcfg := setupRunEnv(t)
	dcfg.DayFiles = []string{"missing.csv"}

	logger, err := storage.NewLogger(filepath.Join(cfg.DataDir, "test.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	if err := runAnalysis(cfg, dcfg, logger); err == nil {
		t.Fatal("没有可用数据时应返回错误")
	}
}
