package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 生成互动记录 ID
func GenerateInteractionID() string {
	return fmt.Sprintf("int-%s", uuid.NewString()[:8])
}

// 生成通话会话 ID
func GenerateCallSessionID() string {
	return fmt.Sprintf("call_%s_%d", uuid.NewString()[:8], time.Now().Unix())
}

// FormatDuration 将秒数格式化为 "{m}m {s}s"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// 时间格式化
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// 验证互动内容
func ValidateContent(content string) bool {
	if len(content) == 0 || len(content) > 4096 {
		return false
	}
	return true
}
