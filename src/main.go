package main

import (
	"ExperimentInsight/src/config"
	"ExperimentInsight/src/datapush"
	"ExperimentInsight/src/datasource/email"
	"ExperimentInsight/src/datasource/file"
	"ExperimentInsight/src/forecast"
	"ExperimentInsight/src/processor"
	"ExperimentInsight/src/report"
	"ExperimentInsight/src/storage"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"

	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("初始化日志失败:", err)
	}

	go startWebUI(logger)

	// 启动时先跑一次完整分析
	if err := runAnalysis(cfg, dcfg, logger); err != nil {
		logger.Error("分析失败: " + err.Error())
	}

	// 邮箱里有新的实验数据导出邮件时，附件落盘后重新分析
	emailClient := email.NewEmailClient(
		cfg.Email.Server,
		cfg.Email.Username,
		cfg.Email.Password)
	handler := email.NewAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir, cfg.SheetName)

	c := cron.New()

	interval := time.Duration(cfg.Email.CheckInterval).String() // 例如 "5m0s"
	cronSpec := fmt.Sprintf("@every %s", interval)

	err = c.AddFunc(cronSpec, func() {
		logger.Info(fmt.Sprintf("开始定时检查(间隔: %v)...", cronSpec))

		newEmail, err := email.CheckAndProcessEmails(emailClient, cfg.Email.TargetSubject, logger)
		if err != nil {
			logger.Error("检查处理邮件失败: " + err.Error())
			return
		}
		if newEmail == nil {
			return
		}

		if err := handler.Handle(newEmail); err != nil {
			logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", newEmail.UID, err))
			return
		}

		// 附件级预检: 刚解析的DataFrame先做一遍清洗，清洗摘要立即可见
		if df := handler.Data().GetDF(); df.Nrow() > 0 {
			if _, clean, err := processor.ObservationsFromDataFrame(df, dcfg, "邮件附件"); err != nil {
				logger.Error(fmt.Sprintf("附件预检失败(UID:%d): %v", newEmail.UID, err))
			} else {
				logger.Info(clean.String())
			}
		}

		t1 := time.Now()
		if err := runAnalysis(cfg, dcfg, logger); err != nil {
			logger.Error("分析失败: " + err.Error())
			return
		}
		logger.Info(fmt.Sprintf("数据处理时间：%v", time.Since(t1)))
	})
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}

	c.Start()
	defer c.Stop()

	// 数据目录有新文件落盘时同样触发重新分析
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	file.SetupSignalHandler(cancel)
	go watchDataDir(ctx, cfg, dcfg, logger)

	logger.Info(fmt.Sprintf("实验分析服务已启动(邮件检查间隔: %v)，按Ctrl+C退出", interval))
	waitForShutdown(cfg, logger)
}

// runAnalysis 一次完整的分析运行:
// 读入各天实验日志 -> 清洗 -> 合并重算区间估计 -> 小时序列EDA与预测 -> 产出报表并推送
func runAnalysis(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) error {
	data := &report.Data{GeneratedAt: time.Now()}

	daySets, cleans, err := loadDayObservations(cfg, dcfg, logger)
	if err != nil {
		return err
	}
	data.Clean = cleans

	// 合并必须回到原始观测行再分组，直接平均各天的均值会丢掉样本量权重
	combined := processor.Combine(daySets...)
	data.Overall = processor.ComputeGroupStatistics(combined, processor.ByVariation)
	data.ByDay = processor.ComputeGroupStatistics(combined, processor.ByVariationDate)

	for _, g := range data.Overall {
		logger.Info(fmt.Sprintf("变体 %s: 均值%.4f, 95%%CI [%.4f, %.4f], N=%d",
			g.Variation, g.Mean, g.Lower, g.Upper, g.Count))
	}

	if err := runHourlyAnalysis(cfg, dcfg, data, logger); err != nil {
		// 小时级分析失败不阻塞区间报表
		logger.Error("小时级分析失败: " + err.Error())
	}

	if err := report.Write(cfg.ReportPath, data); err != nil {
		return fmt.Errorf("生成报表失败: %w", err)
	}
	logger.Info("分析报告已保存到: " + cfg.ReportPath)

	if cfg.Push.Enabled {
		pusher := datapush.NewRobotPusher(cfg.Push.Webhook, cfg.Push.Secret)
		text := datapush.BuildSummaryMarkdown(data.Overall, cfg.ReportPath)
		if err := pusher.PushMarkdown("实验区间估计", text); err != nil {
			logger.Error("钉钉推送失败: " + err.Error())
		}
	}

	if cfg.SendEmail.Server != "" && cfg.SendEmail.Recipients != "" {
		body := fmt.Sprintf("本次分析覆盖 %d 个数据源，详情见附件。", len(data.Clean))
		if err := email.SendReport(cfg, body, cfg.ReportPath); err != nil {
			logger.Error("报告邮件发送失败: " + err.Error())
		}
	}

	return nil
}

// loadDayObservations 逐天读入实验日志并清洗成观测行
// 单个文件读取失败记日志后跳过，不让一天的坏文件拖垮整体分析
func loadDayObservations(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) ([][]processor.Observation, []processor.CleanSummary, error) {
	var daySets [][]processor.Observation
	var cleans []processor.CleanSummary

	names := dcfg.DayFiles
	if len(names) == 0 {
		// 未显式配置分日文件时扫描数据目录，小时序列文件不算实验日志
		paths, err := file.ListDataFiles(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range paths {
			if base := filepath.Base(p); base != dcfg.Hourly.File {
				names = append(names, base)
			}
		}
	}

	for _, name := range names {
		path := filepath.Join(cfg.DataDir, name)

		df, err := file.ReadDataFile(path, cfg.SheetName)
		if err != nil {
			logger.Error(fmt.Sprintf("读取 %s 失败: %v", name, err))
			continue
		}

		obs, clean, err := processor.ObservationsFromDataFrame(df, dcfg, name)
		if err != nil {
			logger.Error(fmt.Sprintf("清洗 %s 失败: %v", name, err))
			continue
		}

		logger.Info(clean.String())
		daySets = append(daySets, obs)
		cleans = append(cleans, clean)
	}

	if len(daySets) == 0 {
		return nil, nil, fmt.Errorf("没有任何一天的实验日志可用")
	}
	return daySets, cleans, nil
}

// runHourlyAnalysis 小时级广告指标: 概况统计 + 多模型留出集评估 + 未来预测
func runHourlyAnalysis(cfg *config.Config, dcfg *config.DataConfig, data *report.Data, logger *storage.Logger) error {
	if dcfg.Hourly.File == "" {
		return nil
	}

	df, err := file.ReadDataFile(filepath.Join(cfg.DataDir, dcfg.Hourly.File), cfg.SheetName)
	if err != nil {
		return fmt.Errorf("读取小时数据失败: %w", err)
	}

	series, summary, err := processor.HourlySeriesFromDataFrame(df, dcfg)
	if err != nil {
		return err
	}
	data.Hourly = &summary
	logger.Info(summary.String())

	period := dcfg.Hourly.Period
	models := []forecast.Forecaster{
		forecast.NewSNaive(period),
		forecast.NewETS(period),
		forecast.NewSTLForecast(period),
		forecast.NewAutoARIMA(period),
	}

	// 末尾留出一个周期做评估
	evals, err := forecast.Evaluate(series, period, models...)
	if err != nil {
		return err
	}
	data.Evaluations = evals
	for _, ev := range evals {
		if ev.Err != nil {
			logger.Error(fmt.Sprintf("模型 %s: %v", ev.Model, ev.Err))
			continue
		}
		logger.Info(fmt.Sprintf("模型 %s: RMSE=%.4f MAE=%.4f MAPE=%.2f%%", ev.Model, ev.RMSE, ev.MAE, ev.MAPE))
	}

	// 用全量序列重新拟合，输出面向未来的预测
	for _, m := range models {
		if err := m.Fit(series); err != nil {
			continue
		}
		if a, ok := m.(*forecast.AutoARIMA); ok {
			logger.Info("AutoARIMA选定模型: " + a.Order())
		}
		values, err := m.Forecast(dcfg.Hourly.Horizon)
		if err != nil {
			continue
		}
		data.Future = append(data.Future, report.ForecastColumn{Model: m.Name(), Values: values})
	}

	return nil
}

// watchDataDir 监控数据目录，新数据文件落盘后重新分析
func watchDataDir(ctx context.Context, cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) {
	if err := file.EnsureDir(cfg.DataDir); err != nil {
		logger.Error("数据目录不可用: " + err.Error())
		return
	}

	monitor, err := file.NewFileMonitor(cfg.DataDir)
	if err != nil {
		logger.Error("创建文件监控失败: " + err.Error())
		return
	}
	defer monitor.Close()

	err = monitor.Watch(ctx, func(path string) {
		logger.Info("检测到新数据文件: " + path)
		if err := runAnalysis(cfg, dcfg, logger); err != nil {
			logger.Error("分析失败: " + err.Error())
		}
	})
	if err != nil {
		logger.Error("文件监控异常退出: " + err.Error())
	}
}

// startWebUI 启动一个简单的Web界面来显示实时日志
func startWebUI(logger *storage.Logger) {
	http.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")

		logChan := logger.Subscribe()

		for {
			select {
			case msg := <-logChan:
				_, err := fmt.Fprintln(w, msg)
				if err != nil {
					// 客户端断开连接
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	})

	http.ListenAndServe(":8080", nil)
}

// waitForShutdown SIGHUP触发日志轮转检查，SIGINT/SIGTERM退出
func waitForShutdown(cfg *config.Config, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
				logger.Error("日志轮转失败: " + err.Error())
			}
			continue
		}

		logger.Info("收到信号: " + sig.String() + ", 正在退出...")
		logger.Close()
		os.Exit(0)
	}
}
