// reader.go
package file

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// ReadDataFile 按扩展名读取实验数据文件，csv和xlsx都转成DataFrame
// sheetName只对xlsx生效
func ReadDataFile(filePath, sheetName string) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return ReadCSVToDataFrame(filePath)
	case ".xlsx":
		return ReadXLSXToDataFrame(filePath, sheetName)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("不支持的文件类型: %s", filePath)
	}
}

// ReadCSVToDataFrame 读取csv文件，所有列按字符串处理，类型解析留给下游清洗
func ReadCSVToDataFrame(filePath string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开csv文件失败: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DefaultType(series.String),
		dataframe.DetectTypes(false),
	)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析csv文件失败: %w", df.Error())
	}

	return df, nil
}

// ReadXLSXToDataFrame 读取xlsx的指定工作表
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开xlsx文件失败: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}

	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		// 未指定或不存在时退到第一个工作表
		sheet = xlFile.Sheets[0]
	}

	df := convertSheetToDataFrame(sheet)
	if df.Error() != nil {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 转换失败: %w", sheet.Name, df.Error())
	}

	return df, nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 第一行是标题行，全部按字符串列处理
func convertSheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) < 2 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			// 尾部空单元格在xlsx里可能整个缺失
			if i < len(row.Cells) {
				columns[i] = append(columns[i], row.Cells[i].Value)
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	return dataframe.New(seriesList...)
}

// ListDataFiles 列出目录下的数据文件，按文件名排序保证读取顺序稳定
func ListDataFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取数据目录失败: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".csv" || ext == ".xlsx" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// EnsureDir 确保目录存在
func EnsureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s 已存在但不是目录", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}

// SetupSignalHandler 设置信号处理器
func SetupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Printf("\n收到信号: %v, 正在退出...\n", sig)
		cancel()
	}()
}
