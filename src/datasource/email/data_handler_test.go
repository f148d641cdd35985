package email

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tealeg/xlsx"
)

func TestDataFrameWrapperReadCSV(t *testing.T) {
	var w DataFrameWrapper
	err := w.ReadCSV([]byte("variation,date,rps\ntreatment,2026-08-01,1.5\nbaseline,2026-08-01,3.0\n"))
	if err != nil {
		t.Fatal(err)
	}

	df := w.GetDF()
	if df.Nrow() != 2 {
		t.Errorf("行数错误: %d", df.Nrow())
	}
	if got := df.Col("rps").Elem(0).String(); got != "1.5" {
		t.Errorf("rps原始值错误: %q", got)
	}

	if err := w.ReadCSV([]byte("")); err == nil {
		t.Error("空csv应返回错误")
	}
}

func TestDataFrameWrapperReadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("分组收益")
	if err != nil {
		t.Fatal(err)
	}
	for _, rowValues := range [][]string{
		{"variation", "rps"},
		{"treatment", "1.5"},
		{"baseline", ""},
	} {
		row := sheet.AddRow()
		for _, v := range rowValues {
			row.AddCell().SetString(v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	var w DataFrameWrapper
	if err := w.ReadXLSX(buf.Bytes(), "分组收益"); err != nil {
		t.Fatal(err)
	}

	df := w.GetDF()
	if df.Nrow() != 2 {
		t.Errorf("行数错误: %d", df.Nrow())
	}
	// 缺失的尾部单元格补成空字符串
	if got := df.Col("rps").Elem(1).String(); got != "" {
		t.Errorf("空单元格应为空字符串: %q", got)
	}
}

func TestDecodeHeaderGBK(t *testing.T) {
	// "实验数据导出" 的GBK编码
	got := decodeHeader("=?gbk?B?yrXR6cr9vt21vLP2?=")
	if got != "实验数据导出" {
		t.Errorf("GBK解码错误: %q", got)
	}

	// 非编码头原样返回
	if got := decodeHeader("plain subject"); got != "plain subject" {
		t.Errorf("普通头不应被改动: %q", got)
	}
}

func TestFilterLatestTargetEmail(t *testing.T) {
	emails := []*Email{
		{UID: 1, Subject: "实验数据导出 0801", Date: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
		{UID: 2, Subject: "周报", Date: time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)},
		{UID: 3, Subject: "实验数据导出 0802", Date: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)},
	}

	got := filterLatestTargetEmail(emails, "实验数据导出")
	if got == nil || got.UID != 3 {
		t.Fatalf("应返回最新的目标邮件: %+v", got)
	}

	if filterLatestTargetEmail(emails, "不存在") != nil {
		t.Error("无匹配时应返回nil")
	}
}

func TestAttachmentHandler(t *testing.T) {
	dir := t.TempDir()
	h := NewAttachmentHandler("实验数据导出", dir, "分组收益")

	msg := &Email{
		UID:     42,
		Subject: "实验数据导出 0801",
		Date:    time.Now(),
		Attachments: []*Attachment{
			{Filename: "day1.csv", Content: []byte("variation,rps\na,1\n")},
			{Filename: "说明.txt", Content: []byte("ignore")},
		},
	}

	if err := h.Handle(msg); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "day1.csv")); err != nil {
		t.Errorf("csv附件应被保存: %v", err)
	}
	// 附件内容同步解析进内存，供上层预检
	if df := h.Data().GetDF(); df.Nrow() != 1 || df.Col("variation").Elem(0).String() != "a" {
		t.Errorf("附件应被解析进内存: %+v", df)
	}
	if _, err := os.Stat(filepath.Join(dir, "说明.txt")); !os.IsNotExist(err) {
		t.Error("非数据附件不应被保存")
	}

	// 同一UID第二次处理直接跳过
	if !h.isProcessed(42) {
		t.Error("保存附件后应标记已处理")
	}
	if err := h.Handle(msg); err != nil {
		t.Errorf("重复处理应无副作用: %v", err)
	}

	// 主题不匹配的邮件不落盘也不标记
	other := &Email{UID: 43, Subject: "周报", Attachments: msg.Attachments}
	if err := h.Handle(other); err != nil {
		t.Fatal(err)
	}
	if h.isProcessed(43) {
		t.Error("主题不匹配的邮件不应被标记")
	}

	// 解析不了的附件: 当场报错且不标记，下一轮重试
	broken := &Email{UID: 44, Subject: "实验数据导出 0803", Attachments: []*Attachment{
		{Filename: "day2.csv", Content: []byte("")},
	}}
	if err := h.Handle(broken); err == nil {
		t.Error("坏附件应返回错误")
	}
	if h.isProcessed(44) {
		t.Error("坏附件的邮件不应被标记")
	}
}
