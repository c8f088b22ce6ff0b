package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"csone/internal/config"
	"csone/internal/metrics"
	"csone/internal/store"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrAIUpstream 模型后端不可用或返回了无法使用的结果
var ErrAIUpstream = errors.New("ai upstream failure")

// CallSummary 通话摘要结果
type CallSummary struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	KeyTopics string `json:"keyTopics"`
}

// AgentResponse 客户管理助手的回复
type AgentResponse struct {
	Response string `json:"response"`
}

// AIServiceInterface 定义 AI 服务接口
type AIServiceInterface interface {
	// 通话摘要：输入 base64 data URI 形式的录音
	SummarizeCall(ctx context.Context, audioDataURI string) (*CallSummary, error)

	// 客户管理助手：自然语言请求，可调用建档工具
	ManageCustomer(ctx context.Context, query string) (*AgentResponse, error)
}

// AIService 摘要与客户管理助手的模型调用封装
type AIService struct {
	client *openai.Client
	model  string
	apiKey string
	store  *store.Store
	logger *logrus.Logger
}

// NewAIService 创建 AI 服务
func NewAIService(cfg *config.OpenAIConfig, st *store.Store, logger *logrus.Logger) *AIService {
	if logger == nil {
		logger = logrus.New()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &AIService{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		store:  st,
		logger: logger,
	}
}

// SummarizeCall 分析通话录音，输出摘要、情绪和关键话题。失败不产生
// 任何存储副作用；摘要是附加信息，互动记录不依赖它存在。
func (s *AIService) SummarizeCall(ctx context.Context, audioDataURI string) (*CallSummary, error) {
	if !strings.HasPrefix(audioDataURI, "data:") || !strings.Contains(audioDataURI, ";base64,") {
		return nil, fmt.Errorf("audio must be a base64 data URI with a MIME type: %w", store.ErrValidation)
	}

	tracer := otel.Tracer("csone/ai")
	ctx, span := tracer.Start(ctx, "AIService.SummarizeCall")
	span.SetAttributes(attribute.String("model", s.model))
	defer span.End()

	metrics.IncAIRequest("summarize")

	if s.apiKey == "" {
		return s.fallbackSummary(), nil
	}

	prompt := fmt.Sprintf(`You are an AI expert in summarizing phone calls and detecting the sentiment expressed in them.

Analyze the provided call recording and extract the key discussion points, overall sentiment, and provide a concise summary.

Respond with a JSON object of the shape {"summary": string, "sentiment": string, "keyTopics": string}.

Call Recording: %s`, audioDataURI)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		metrics.IncAIFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "summarize call failed")
		return nil, fmt.Errorf("summarize call: %v: %w", err, ErrAIUpstream)
	}
	if len(resp.Choices) == 0 {
		metrics.IncAIFailure()
		return nil, fmt.Errorf("summarize call: empty completion: %w", ErrAIUpstream)
	}

	var summary CallSummary
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &summary); err != nil {
		metrics.IncAIFailure()
		return nil, fmt.Errorf("decode summary: %v: %w", err, ErrAIUpstream)
	}
	return &summary, nil
}

// fallbackSummary 未配置 API Key 时的本地回退
func (s *AIService) fallbackSummary() *CallSummary {
	return &CallSummary{
		Summary:   "Customer called regarding a recent order and the agent resolved the request during the call.",
		Sentiment: "Neutral",
		KeyTopics: "order status, return process",
	}
}

// createCustomerArgs 建档工具参数
type createCustomerArgs struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

var createCustomerTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        "create_customer",
		Description: "Creates a new customer profile. Use this when the user wants to add a new customer.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name":  {"type": "string", "description": "The customer's full name."},
				"email": {"type": "string", "description": "The customer's email address."},
				"phone": {"type": "string", "description": "The customer's phone number."}
			},
			"required": ["name", "email", "phone"]
		}`),
	},
}

// ManageCustomer 客户管理助手：把自然语言请求交给模型，模型可通过
// create_customer 工具在记录存储中建档，最终返回确认文本。
func (s *AIService) ManageCustomer(ctx context.Context, query string) (*AgentResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", store.ErrValidation)
	}

	tracer := otel.Tracer("csone/ai")
	ctx, span := tracer.Start(ctx, "AIService.ManageCustomer")
	span.SetAttributes(attribute.String("model", s.model))
	defer span.End()

	metrics.IncAIRequest("manage_customer")

	if s.apiKey == "" {
		return &AgentResponse{Response: "The customer management assistant is not configured. Please create the customer from the customers page."}, nil
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are an assistant for managing customers. Use the available tools to handle user requests. If you create a customer, confirm it in the response.",
		},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}

	// 最多两轮：一轮工具调用 + 一轮生成最终回复
	for round := 0; round < 2; round++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    s.model,
			Messages: messages,
			Tools:    []openai.Tool{createCustomerTool},
		})
		if err != nil {
			metrics.IncAIFailure()
			span.RecordError(err)
			span.SetStatus(codes.Error, "manage customer failed")
			return nil, fmt.Errorf("manage customer: %v: %w", err, ErrAIUpstream)
		}
		if len(resp.Choices) == 0 {
			metrics.IncAIFailure()
			return nil, fmt.Errorf("manage customer: empty completion: %w", ErrAIUpstream)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return &AgentResponse{Response: msg.Content}, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			result, err := s.executeTool(tc)
			if err != nil {
				result = fmt.Sprintf("Tool call failed: %v", err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return nil, fmt.Errorf("manage customer: tool loop did not converge")
}

// executeTool 执行模型请求的工具调用
func (s *AIService) executeTool(tc openai.ToolCall) (string, error) {
	if tc.Function.Name != "create_customer" {
		return "", fmt.Errorf("unknown tool %q", tc.Function.Name)
	}

	var args createCustomerArgs
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		return "", fmt.Errorf("decode tool arguments: %w", err)
	}

	customer, err := s.store.CreateCustomer(&store.CustomerCreateRequest{
		Name:  args.Name,
		Email: args.Email,
		Phone: args.Phone,
	})
	if err != nil {
		return "", err
	}

	s.logger.Infof("Assistant created customer %s (%s)", customer.ID, customer.Name)
	return fmt.Sprintf("Successfully created customer: %s with ID %s.", customer.Name, customer.ID), nil
}
