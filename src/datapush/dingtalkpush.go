package datapush

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ExperimentInsight/src/processor"
)

// 常量定义
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	PUSH_TIMEOUT   = 10 * time.Second
)

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// RobotPusher 钉钉群机器人推送器
// 把实验分析结论推送到值班群，secret不为空时对webhook加签
type RobotPusher struct {
	webhook string
	secret  string
	client  *http.Client
}

func NewRobotPusher(webhook, secret string) *RobotPusher {
	return &RobotPusher{
		webhook: webhook,
		secret:  secret,
		client:  &http.Client{Timeout: PUSH_TIMEOUT},
	}
}

// signedURL 生成加签后的webhook地址
// 签名算法: HMAC-SHA256(secret, "timestamp\nsecret")再base64
func (p *RobotPusher) signedURL(now time.Time) string {
	if p.secret == "" {
		return p.webhook
	}

	timestamp := now.UnixMilli()
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, p.secret)

	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write([]byte(stringToSign))
	sign := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	sep := "?"
	if strings.Contains(p.webhook, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s", p.webhook, sep, timestamp, url.QueryEscape(sign))
}

// PushMarkdown 推送markdown消息，失败自动重试
func (p *RobotPusher) PushMarkdown(title, text string) error {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": title,
			"text":  text,
		},
	}
	return retry(func() error {
		return p.send(payload)
	}, RETRY_TIMES, RETRY_INTERVAL)
}

// PushText 推送纯文本消息，失败自动重试
func (p *RobotPusher) PushText(content string) error {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": content,
		},
	}
	return retry(func() error {
		return p.send(payload)
	}, RETRY_TIMES, RETRY_INTERVAL)
}

func (p *RobotPusher) send(payload map[string]interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	req, err := http.NewRequest("POST", p.signedURL(time.Now()), bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	if result.ErrCode != 0 {
		return fmt.Errorf("推送消息失败: %s", result.ErrMsg)
	}

	return nil
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}

// BuildSummaryMarkdown 把各变体的区间估计整理成推送正文
func BuildSummaryMarkdown(stats []processor.GroupStatistic, reportPath string) string {
	var sb strings.Builder
	sb.WriteString("### A/B实验RPS区间估计\n\n")

	for _, g := range stats {
		sb.WriteString(fmt.Sprintf("- **%s**: 均值 %.4f, 95%%CI [%.4f, %.4f], N=%d",
			g.Variation, g.Mean, g.Lower, g.Upper, g.Count))
		if g.Count == 1 {
			sb.WriteString(" (单样本，区间退化)")
		}
		sb.WriteString("\n")
	}

	if reportPath != "" {
		sb.WriteString(fmt.Sprintf("\n完整报告: %s\n", reportPath))
	}
	return sb.String()
}
