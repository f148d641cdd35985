package utils

import (
	"testing"
	"time"

	"github.com/go-gota/gota/series"
)

func elem(s string) series.Element {
	return series.New([]string{s}, series.String, "x").Elem(0)
}

func TestParseDateFormats(t *testing.T) {
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{"2026-08-01", "2026/08/01", "2026年08月01日"} {
		got, err := ParseDate(elem(input))
		if err != nil {
			t.Errorf("%q 解析失败: %v", input, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%q 解析结果错误: %v", input, got)
		}
	}
}

func TestParseDateExcelSerial(t *testing.T) {
	// 锚点覆盖1900虚构闰日前后及现代日期
	anchors := map[string]time.Time{
		"1":     time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		"59":    time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC),
		"61":    time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC),
		"44197": time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		"46235": time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range anchors {
		got, err := ParseDate(elem(input))
		if err != nil {
			t.Errorf("序列号 %s 解析失败: %v", input, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("序列号 %s 解析结果错误: %v (期望 %v)", input, got, want)
		}
	}

	if _, err := ParseDate(elem("999999999")); err == nil {
		t.Error("超出范围的序列号应返回错误")
	}
}

func TestParseDateMissing(t *testing.T) {
	got, err := ParseDate(elem(""))
	if err != nil || !got.IsZero() {
		t.Errorf("空值应返回零值时间: %v, %v", got, err)
	}

	if _, err := ParseDate(elem("not-a-date")); err == nil {
		t.Error("无法识别的格式应返回错误")
	}
}

func TestParseFloat(t *testing.T) {
	if v, ok := ParseFloat(elem("1.5")); !ok || v != 1.5 {
		t.Errorf("数值解析错误: %v %v", v, ok)
	}
	for _, bad := range []string{"", "NA", "NaN", "null", "abc"} {
		if _, ok := ParseFloat(elem(bad)); ok {
			t.Errorf("%q 应判定为缺失", bad)
		}
	}
}
