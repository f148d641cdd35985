package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 实验日志导出邮件的主题关键词
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	DataDir    string `json:"data_dir"`    // 实验日志CSV存放目录
	ReportPath string `json:"report_path"` // 分析报告输出路径(xlsx)
	SheetName  string `json:"sheet_name"`  // XLSX导出附件中的工作表名称
	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`

	Push struct {
		Webhook string `json:"webhook"` // 钉钉机器人webhook地址
		Secret  string `json:"secret"`  // 加签密钥，为空则不加签
		Enabled bool   `json:"enabled"`
	} `json:"push"`

	SendEmail struct {
		Server     string `json:"server"`     // SMTP服务器地址
		Username   string `json:"username"`   // 邮箱用户名
		Password   string `json:"password"`   // 邮箱密码
		Recipients string `json:"recipients"` // 报告收件人，逗号分隔
		Subject    string `json:"subject"`    // 报告邮件主题
	} `json:"send_email"`
}

// DataConfig 描述实验日志的数据结构：列名映射、变体域、各天文件和预测参数
type DataConfig struct {
	ExperimentData map[string]string `json:"experimentData"` // 逻辑列名 -> 实际列名
	Variations     map[string]string `json:"variations"`     // 原始标签 -> 规范变体名
	DayFiles       []string          `json:"dayFiles"`       // 三天灰度实验的CSV文件，按天顺序
	Hourly         struct {
		File            string `json:"file"`            // 小时级广告指标CSV
		TimestampColumn string `json:"timestampColumn"` // 时间戳列
		ValueColumn     string `json:"valueColumn"`     // 指标列
		Period          int    `json:"period"`          // 季节周期，小时数据为24
		Horizon         int    `json:"horizon"`         // 预测步数
	} `json:"hourly"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// GetExperimentData 读取逻辑列名对应的实际CSV列名
func (dc *DataConfig) GetExperimentData(colName string) string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.ExperimentData[colName]
}

func (dc *DataConfig) SetExperimentData(colName, value string) {
	mu.Lock()
	defer mu.Unlock()
	dc.ExperimentData[colName] = value
}

// CanonicalVariation 将原始标签规范化为固定变体域
// 未登记的标签原样返回，由上游的排除策略处理
func (dc *DataConfig) CanonicalVariation(raw string) string {
	mu.RLock()
	defer mu.RUnlock()
	if v, ok := dc.Variations[raw]; ok {
		return v
	}
	return raw
}
