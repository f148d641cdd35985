// data_handler.go
package email

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// DataFrameWrapper 封装DataFrame并提供线程安全访问
// 邮件附件解析出的数据先进这里，再交给清洗和统计
type DataFrameWrapper struct {
	df dataframe.DataFrame // 存储DataFrame数据
	mu sync.RWMutex        // 读写锁保证线程安全
}

// GetDF 获取当前DataFrame(线程安全)
func (d *DataFrameWrapper) GetDF() dataframe.DataFrame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.df
}

// SetDF 更新当前DataFrame(线程安全)
func (d *DataFrameWrapper) SetDF(df dataframe.DataFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.df = df
}

// ReadXLSX 从XLSX附件字节加载DataFrame
func (d *DataFrameWrapper) ReadXLSX(data []byte, sheetName string) error {
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return fmt.Errorf("打开xlsx附件失败: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return fmt.Errorf("excel附件中没有工作表")
	}

	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		sheet = xlFile.Sheets[0]
	}

	return d.convertSheetToDataFrame(sheet)
}

// ReadCSV 从CSV附件字节加载DataFrame，所有列按字符串处理
func (d *DataFrameWrapper) ReadCSV(data []byte) error {
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DefaultType(series.String),
		dataframe.DetectTypes(false),
	)
	if df.Error() != nil {
		return fmt.Errorf("解析csv附件失败: %w", df.Error())
	}

	d.SetDF(df)
	return nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 第一行是标题行
func (d *DataFrameWrapper) convertSheetToDataFrame(sheet *xlsx.Sheet) error {
	if len(sheet.Rows) < 2 {
		return fmt.Errorf("工作表 %s 没有数据行", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.String())
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			if i < len(row.Cells) {
				columns[i] = append(columns[i], row.Cells[i].String())
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	d.SetDF(dataframe.New(seriesList...))
	return nil
}
