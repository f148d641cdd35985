package processor

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ExperimentInsight/src/utils"
)

// 双侧95%置信水平的正态近似临界值
// 固定常数而不查t分布：该近似只在样本量较大时严格成立，
// 小样本分组的区间会偏窄，报表诊断页对 N<30 的分组做了标注
const ZCritical = 1.96

// GroupBy 指定区间估计的分组键
type GroupBy int

const (
	// ByVariation 只按变体分组（单日视角或合并视角）
	ByVariation GroupBy = iota
	// ByVariationDate 按变体×日期联合分组
	ByVariationDate
)

// GroupStatistic 一个分组的点估计与近似95%置信区间
// 按需重算，不持久化也不做增量更新
type GroupStatistic struct {
	Variation     string
	Date          string // 按变体×日期分组时为 "2006-01-02"，否则为空
	Count         int
	Mean          float64
	StdDev        float64 // 样本标准差(N-1)；N=1时取哨兵值0，不让NaN流入区间
	MarginOfError float64 // 区间半宽，即 ZCritical × StdDev / √N 经区间端点回算
	Lower         float64
	Upper         float64
}

// ComputeGroupStatistics 按分组键划分观测并逐组计算区间估计
//
// 分组按键值首次出现的顺序输出，保证多次运行结果逐字节一致；
// 没有合格观测的键不会出现在输出里。纯函数，无副作用。
func ComputeGroupStatistics(obs []Observation, by GroupBy) []GroupStatistic {
	type group struct {
		variation string
		date      string
		values    []float64
	}

	index := make(map[string]int)
	var groups []*group

	for _, o := range obs {
		date := ""
		if by == ByVariationDate {
			date = utils.FormatDay(o.Date)
		}
		key := o.Variation + "\x00" + date

		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, &group{variation: o.Variation, date: date})
		}
		groups[idx].values = append(groups[idx].values, o.RPS)
	}

	result := make([]GroupStatistic, 0, len(groups))
	for _, g := range groups {
		result = append(result, summarize(g.variation, g.date, g.values))
	}
	return result
}

// summarize 把一个分组折叠成GroupStatistic
func summarize(variation, date string, values []float64) GroupStatistic {
	n := len(values)
	mean := stat.Mean(values, nil)

	// 单观测分组的样本标准差在N-1分母下没有定义，
	// 这里明确取0：区间退化为点，而不是让NaN悄悄传进画图环节
	sd := 0.0
	if n > 1 {
		sd = stat.StdDev(values, nil)
	}

	moe := ZCritical * sd / math.Sqrt(float64(n))
	lower := mean - moe
	upper := mean + moe

	return GroupStatistic{
		Variation: variation,
		Date:      date,
		Count:     n,
		Mean:      mean,
		StdDev:    sd,
		// 记录区间半宽而不是moe原值：浮点下除2和乘2都无舍入，
		// 保证 Upper-Lower 按位精确等于 2×MarginOfError
		MarginOfError: (upper - lower) / 2,
		Lower:         lower,
		Upper:         upper,
	}
}
