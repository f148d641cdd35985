package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestConfigs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := `{
  "email": {"server": "imap.example.com:993", "username": "a", "password": "b",
            "target_subject": "实验日志", "check_interval": "5m"},
  "data_dir": "./data",
  "report_path": "./report.xlsx",
  "sheet_name": "实验日志",
  "log_name": "app.log",
  "log_max_size": "10 * 1024 * 1024"
}`
	dcfg := `{
  "experimentData": {"variation": "variation", "date": "date", "rps": "rps"},
  "variations": {"baseline": "baseline", "optimizer": "treatment"},
  "dayFiles": ["day1.csv", "day2.csv", "day3.csv"],
  "hourly": {"file": "hourly.csv", "timestampColumn": "ts", "valueColumn": "revenue",
             "period": 24, "horizon": 48}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(dcfg), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeTestConfigs(t)

	// LoadConfig 是 once 单例，测试内直接走内部加载函数
	cfg, dcfg, err := loadConfigs(dir, "config.json", "dataconfig.json")
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if time.Duration(cfg.Email.CheckInterval) != 5*time.Minute {
		t.Errorf("check_interval 解析错误: %v", time.Duration(cfg.Email.CheckInterval))
	}
	if cfg.SheetName != "实验日志" {
		t.Errorf("sheet_name 解析错误: %q", cfg.SheetName)
	}

	if got := dcfg.GetExperimentData("rps"); got != "rps" {
		t.Errorf("列名映射错误: %q", got)
	}
	if got := dcfg.CanonicalVariation("optimizer"); got != "treatment" {
		t.Errorf("变体规范化错误: %q", got)
	}
	// 未登记标签原样返回
	if got := dcfg.CanonicalVariation("unknown"); got != "unknown" {
		t.Errorf("未登记标签应原样返回: %q", got)
	}
	if len(dcfg.DayFiles) != 3 {
		t.Errorf("dayFiles 数量错误: %d", len(dcfg.DayFiles))
	}
	if dcfg.Hourly.Period != 24 || dcfg.Hourly.Horizon != 48 {
		t.Errorf("hourly 配置解析错误: %+v", dcfg.Hourly)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := loadConfigs(dir, "config.json", "dataconfig.json"); err == nil {
		t.Fatal("缺失配置文件应返回错误")
	}
}
