package processor

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"

	"ExperimentInsight/src/config"
	"ExperimentInsight/src/utils"
)

// Observation 实验日志中的一行：变体标签、日历日、单会话收入
// 加载后不可变，没有行号之外的标识
type Observation struct {
	Variation string
	Date      time.Time
	RPS       float64
}

// CleanSummary 记录一批数据的清洗结果
// 源数据已知存在脏行（会话被重复计入多个指标等），排除必须计数并可上报，
// 不允许被静默吞掉
type CleanSummary struct {
	Source           string // 来源文件名，报表诊断页用
	Total            int    // 原始行数
	Kept             int    // 纳入统计的行数
	MissingVariation int    // 变体标签缺失或无法规范化
	MissingDate      int    // 日期缺失或无法解析
	BadRPS           int    // rps缺失、非数字或为负
}

// Excluded 返回被排除的总行数
func (s CleanSummary) Excluded() int {
	return s.MissingVariation + s.MissingDate + s.BadRPS
}

func (s CleanSummary) String() string {
	return fmt.Sprintf("%s: 共%d行, 纳入%d行, 排除%d行(变体缺失%d, 日期缺失%d, rps异常%d)",
		s.Source, s.Total, s.Kept, s.Excluded(),
		s.MissingVariation, s.MissingDate, s.BadRPS)
}

// ObservationsFromDataFrame 把一天的实验日志DataFrame转为观测序列
// 变体、日期、rps三个字段任一缺失或无法解析的行被排除并计数；
// 变体标签先经过DataConfig的固定变体域规范化
func ObservationsFromDataFrame(df dataframe.DataFrame, dcfg *config.DataConfig, source string) ([]Observation, CleanSummary, error) {
	varCol := dcfg.GetExperimentData("variation")
	dateCol := dcfg.GetExperimentData("date")
	rpsCol := dcfg.GetExperimentData("rps")

	for _, col := range []string{varCol, dateCol, rpsCol} {
		if !utils.HasColumn(df, col) {
			return nil, CleanSummary{}, fmt.Errorf("实验日志缺少列 %q (来源: %s)", col, source)
		}
	}

	summary := CleanSummary{Source: source, Total: df.Nrow()}
	obs := make([]Observation, 0, df.Nrow())

	variations := df.Col(varCol)
	dates := df.Col(dateCol)
	rps := df.Col(rpsCol)

	for i := 0; i < df.Nrow(); i++ {
		vEl := variations.Elem(i)
		if vEl.IsNA() || vEl.String() == "" {
			summary.MissingVariation++
			continue
		}
		variation := dcfg.CanonicalVariation(vEl.String())

		date, err := utils.ParseDate(dates.Elem(i))
		if err != nil || date.IsZero() {
			summary.MissingDate++
			continue
		}

		value, ok := utils.ParseFloat(rps.Elem(i))
		if !ok || value < 0 {
			summary.BadRPS++
			continue
		}

		obs = append(obs, Observation{
			Variation: variation,
			Date:      date,
			RPS:       value,
		})
	}

	summary.Kept = len(obs)
	return obs, summary, nil
}

// Combine 将多天的观测集按序拼接为一个集合
// 这是保留重数的并，不做任何去重：合并视角的统计必须从原始行重算，
// 直接复用各天已经算好的汇总值会因为流量配比在天与天之间漂移而得出
// 错误结论（辛普森悖论式的陷阱，灰度实验20/50/80放量时尤其明显）
func Combine(sets ...[]Observation) []Observation {
	total := 0
	for _, s := range sets {
		total += len(s)
	}
	combined := make([]Observation, 0, total)
	for _, s := range sets {
		combined = append(combined, s...)
	}
	return combined
}
