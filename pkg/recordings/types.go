package recordings

import "time"

// Config 录音后端客户端配置
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:9090",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
	}
}

// Recording 一通通话的录音信息
type Recording struct {
	CallID    string    `json:"call_id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript 一通通话的文字转写
type Transcript struct {
	CallID string           `json:"call_id"`
	Text   string           `json:"text"`
	Turns  []TranscriptTurn `json:"turns,omitempty"`
}

// TranscriptTurn 转写中的一轮对话
type TranscriptTurn struct {
	Role    string `json:"role"` // agent, customer
	Content string `json:"content"`
}

// ErrorResponse 后端错误响应
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}
