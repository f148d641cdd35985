package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// 实验日志里出现过的日期格式，按命中概率排序
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"2006年01月02日",
}

// ParseDate 解析日历日期，兼容ISO-8601和本地格式
// 空值和NA返回零值时间，调用方据此判定该行缺失
func ParseDate(el series.Element) (time.Time, error) {
	if el.IsNA() || strings.TrimSpace(el.String()) == "" {
		return time.Time{}, nil
	}
	s := strings.TrimSpace(el.String())
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// xlsx导出的日期单元格有时是Excel序列号
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelSerialToTime(serial)
	}
	return time.Time{}, fmt.Errorf("无法识别的日期格式: %q", s)
}

// excelSerialToTime Excel序列日期转time.Time
// Excel把1900年当闰年，序列号60是虚构的2月29日：
// 以1899-12-30为基准时60之后的序列号直接可用，60之前的要补1天
func excelSerialToTime(serial float64) (time.Time, error) {
	if serial < 1 || serial > 200000 {
		return time.Time{}, fmt.Errorf("超出合理范围的Excel日期序列号: %v", serial)
	}
	if serial < 60 {
		serial += 1
	}
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := int(serial)
	fraction := serial - float64(days)
	return base.AddDate(0, 0, days).
		Add(time.Duration(86400*fraction*1e9) * time.Nanosecond), nil
}

// ParseHour 解析小时级时间戳（广告指标序列用）
func ParseHour(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02 15",
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法识别的时间戳格式: %q", s)
}

// ParseFloat 解析数值单元格
// ok=false 表示该单元格缺失或不是数字，行应被排除而不是中断整个计算
func ParseFloat(el series.Element) (float64, bool) {
	if el.IsNA() {
		return 0, false
	}
	s := strings.TrimSpace(el.String())
	if s == "" || s == "NA" || s == "NaN" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatDay 统一输出日期键，分组与报表都用这个格式
func FormatDay(t time.Time) string {
	return t.Format("2006-01-02")
}
