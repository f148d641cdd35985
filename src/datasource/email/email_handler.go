// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ====================== 邮件处理器实现 ======================

// AttachmentHandler 把实验数据附件(csv/xlsx)落盘到数据目录
// 最近一个附件同时解析进内存，供上层在重算前做附件级预检
type AttachmentHandler struct {
	TargetSubject string            // 目标邮件主题关键词
	DataDir       string            // 附件保存目录
	SheetName     string            // xlsx附件的目标工作表
	data          *DataFrameWrapper // 最近解析成功的附件数据
	processedUIDs map[uint32]bool   // 已处理邮件UID记录
	mu            sync.RWMutex      // 保护processedUIDs的读写锁
}

func NewAttachmentHandler(subject, dataDir, sheetName string) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		SheetName:     sheetName,
		data:          &DataFrameWrapper{},
		processedUIDs: make(map[uint32]bool),
	}
}

// Data 最近一次Handle解析出的附件DataFrame
func (h *AttachmentHandler) Data() *DataFrameWrapper {
	return h.data
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件：主题匹配则把数据附件保存到DataDir
// 同一UID只处理一次，没有数据附件的邮件不标记，等后续重试
func (h *AttachmentHandler) Handle(email *Email) error {
	if h.isProcessed(email.UID) {
		return nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		return nil
	}

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	saved := 0
	for _, attachment := range email.Attachments {
		ext := strings.ToLower(filepath.Ext(attachment.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		// 文件名只取基础部分，防止附件名里带路径
		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))

		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return fmt.Errorf("保存附件失败: %w", err)
		}

		// 落盘后直接从字节解析，坏附件在这里暴露而不是等下一轮分析
		var perr error
		if ext == ".xlsx" {
			perr = h.data.ReadXLSX(attachment.Content, h.SheetName)
		} else {
			perr = h.data.ReadCSV(attachment.Content)
		}
		if perr != nil {
			return fmt.Errorf("解析附件 %s 失败: %w", attachment.Filename, perr)
		}
		saved++
	}

	if saved > 0 {
		h.markAsProcessed(email.UID)
	}

	return nil
}
