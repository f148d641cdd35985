// excel.go
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"ExperimentInsight/src/forecast"
	"ExperimentInsight/src/processor"
)

// 各工作表名称
const (
	SheetInterval  = "置信区间"
	SheetByDay     = "分日明细"
	SheetForecast  = "流量预测"
	SheetDiagnosis = "诊断"
)

// SmallSampleThreshold 样本数低于该值的分组在报表里标记为小样本，
// 正态近似下的区间对这类分组不可靠
const SmallSampleThreshold = 30

// Data 一次分析运行产出的全部报表内容
type Data struct {
	GeneratedAt time.Time
	Overall     []processor.GroupStatistic // 按变体汇总(三天合并)
	ByDay       []processor.GroupStatistic // 按变体×日期
	Clean       []processor.CleanSummary   // 逐数据源的清洗摘要
	Hourly      *processor.HourlySummary   // 小时级指标探索摘要，可为空
	Evaluations []forecast.Evaluation      // 各模型留出集表现
	Future      []ForecastColumn           // 面向未来的预测值，按模型一列
}

// ForecastColumn 一个模型对未来horizon步的预测
type ForecastColumn struct {
	Model  string
	Values []float64
}

// Write 生成xlsx分析报告并保存到path
func Write(path string, data *Data) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeIntervalSheet(f, data); err != nil {
		return fmt.Errorf("写入置信区间页失败: %w", err)
	}
	if err := writeByDaySheet(f, data.ByDay); err != nil {
		return fmt.Errorf("写入分日明细页失败: %w", err)
	}
	if err := writeForecastSheet(f, data); err != nil {
		return fmt.Errorf("写入流量预测页失败: %w", err)
	}
	if err := writeDiagnosisSheet(f, data); err != nil {
		return fmt.Errorf("写入诊断页失败: %w", err)
	}

	// 删掉excelize默认创建的Sheet1，把置信区间页设为首页
	f.DeleteSheet("Sheet1")
	idx, err := f.GetSheetIndex(SheetInterval)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

var intervalHeaders = []string{"变体", "样本数", "均值", "标准差", "误差幅度", "下界", "上界", "备注"}

// writeIntervalSheet 按变体的区间估计表格 + 横向条形图
// 条形图画下界/均值/上界三个系列，同一变体的三根条相邻，区间宽窄一目了然
func writeIntervalSheet(f *excelize.File, data *Data) error {
	if _, err := f.NewSheet(SheetInterval); err != nil {
		return err
	}

	for i, h := range intervalHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetInterval, cell, h)
	}

	for rowIdx, g := range data.Overall {
		row := rowIdx + 2
		note := ""
		if g.Count < SmallSampleThreshold {
			note = "小样本"
		}
		values := []interface{}{g.Variation, g.Count, g.Mean, g.StdDev, g.MarginOfError, g.Lower, g.Upper, note}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			f.SetCellValue(SheetInterval, cell, v)
		}
	}

	if len(data.Overall) == 0 {
		return nil
	}

	lastRow := len(data.Overall) + 1
	categories := fmt.Sprintf("'%s'!$A$2:$A$%d", SheetInterval, lastRow)
	seriesFor := func(col string, headerCol string) excelize.ChartSeries {
		return excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", SheetInterval, headerCol),
			Categories: categories,
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", SheetInterval, col, col, lastRow),
		}
	}

	return f.AddChart(SheetInterval, "J2", &excelize.Chart{
		Type: excelize.Bar, // 横向条形
		Series: []excelize.ChartSeries{
			seriesFor("F", "F"), // 下界
			seriesFor("C", "C"), // 均值
			seriesFor("G", "G"), // 上界
		},
		Title:  []excelize.RichTextRun{{Text: "各变体RPS的95%置信区间"}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	})
}

var byDayHeaders = []string{"变体", "日期", "样本数", "均值", "标准差", "误差幅度", "下界", "上界"}

func writeByDaySheet(f *excelize.File, byDay []processor.GroupStatistic) error {
	if _, err := f.NewSheet(SheetByDay); err != nil {
		return err
	}

	for i, h := range byDayHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetByDay, cell, h)
	}

	for rowIdx, g := range byDay {
		row := rowIdx + 2
		values := []interface{}{g.Variation, g.Date, g.Count, g.Mean, g.StdDev, g.MarginOfError, g.Lower, g.Upper}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			f.SetCellValue(SheetByDay, cell, v)
		}
	}
	return nil
}

// writeForecastSheet 模型留出集表现 + 未来预测值 + 折线图
func writeForecastSheet(f *excelize.File, data *Data) error {
	if _, err := f.NewSheet(SheetForecast); err != nil {
		return err
	}

	// 上半部分: 留出集评估
	for i, h := range []string{"模型", "RMSE", "MAE", "MAPE(%)", "备注"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetForecast, cell, h)
	}
	for rowIdx, ev := range data.Evaluations {
		row := rowIdx + 2
		var values []interface{}
		if ev.Err != nil {
			values = []interface{}{ev.Model, "", "", "", ev.Err.Error()}
		} else {
			values = []interface{}{ev.Model, ev.RMSE, ev.MAE, ev.MAPE, ""}
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			f.SetCellValue(SheetForecast, cell, v)
		}
	}

	if len(data.Future) == 0 {
		return nil
	}

	// 下半部分: 未来预测，一列一个模型
	startRow := len(data.Evaluations) + 3
	f.SetCellValue(SheetForecast, fmt.Sprintf("A%d", startRow), "步")
	horizon := 0
	for colIdx, fc := range data.Future {
		cell, _ := excelize.CoordinatesToCellName(colIdx+2, startRow)
		f.SetCellValue(SheetForecast, cell, fc.Model)
		if len(fc.Values) > horizon {
			horizon = len(fc.Values)
		}
	}
	for h := 1; h <= horizon; h++ {
		f.SetCellValue(SheetForecast, fmt.Sprintf("A%d", startRow+h), h)
		for colIdx, fc := range data.Future {
			if h > len(fc.Values) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+2, startRow+h)
			f.SetCellValue(SheetForecast, cell, fc.Values[h-1])
		}
	}

	lastRow := startRow + horizon
	var chartSeries []excelize.ChartSeries
	for colIdx := range data.Future {
		colName, _ := excelize.ColumnNumberToName(colIdx + 2)
		chartSeries = append(chartSeries, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$%d", SheetForecast, colName, startRow),
			Categories: fmt.Sprintf("'%s'!$A$%d:$A$%d", SheetForecast, startRow+1, lastRow),
			Values:     fmt.Sprintf("'%s'!$%s$%d:$%s$%d", SheetForecast, colName, startRow+1, colName, lastRow),
		})
	}

	return f.AddChart(SheetForecast, "H2", &excelize.Chart{
		Type:   excelize.Line,
		Series: chartSeries,
		Title:  []excelize.RichTextRun{{Text: "未来各小时请求量预测"}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	})
}

// writeDiagnosisSheet 数据质量诊断: 逐源清洗摘要、小样本分组、小时序列概况
func writeDiagnosisSheet(f *excelize.File, data *Data) error {
	if _, err := f.NewSheet(SheetDiagnosis); err != nil {
		return err
	}

	f.SetCellValue(SheetDiagnosis, "A1", "生成时间")
	f.SetCellValue(SheetDiagnosis, "B1", data.GeneratedAt.Format("2006-01-02 15:04:05"))

	for i, h := range []string{"数据源", "原始行数", "纳入行数", "变体缺失", "日期异常", "rps异常"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(SheetDiagnosis, cell, h)
	}
	for rowIdx, s := range data.Clean {
		row := rowIdx + 4
		values := []interface{}{s.Source, s.Total, s.Kept, s.MissingVariation, s.MissingDate, s.BadRPS}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			f.SetCellValue(SheetDiagnosis, cell, v)
		}
	}

	row := len(data.Clean) + 5
	for _, g := range data.Overall {
		if g.Count >= SmallSampleThreshold {
			continue
		}
		f.SetCellValue(SheetDiagnosis, fmt.Sprintf("A%d", row),
			fmt.Sprintf("分组 %s 样本数 %d 低于 %d，区间估计仅供参考", g.Variation, g.Count, SmallSampleThreshold))
		row++
	}

	if data.Hourly != nil {
		f.SetCellValue(SheetDiagnosis, fmt.Sprintf("A%d", row+1), data.Hourly.String())
	}
	return nil
}
