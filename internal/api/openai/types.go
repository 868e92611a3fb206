// Package openai provides the wire types and HTTP client used to ask the
// OpenAI chat completions API to select one of our tools.
package openai

import (
	"encoding/json"
	"strings"

	"github.com/tjfontaine/sui-agent/internal/domain"
)

// Finish reasons we branch on.
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
)

// ChatCompletionRequest represents an OpenAI chat completion request.
type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature *float32                `json:"temperature,omitempty"`
	User        string                  `json:"user,omitempty"`
	Tools       []Tool                  `json:"tools,omitempty"`
	ToolChoice  any                     `json:"tool_choice,omitempty"`
	// ParallelToolCalls is a pointer so false is sent explicitly.
	ParallelToolCalls *bool `json:"parallel_tool_calls,omitempty"`
	Seed              *int  `json:"seed,omitempty"`
}

// ChatCompletionMessage represents a message in the chat completion request/response.
type ChatCompletionMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Tool represents a tool that the model can call.
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionTool `json:"function"`
}

// FunctionTool describes a function tool. With Strict set the API guarantees
// the arguments conform to Parameters.
type FunctionTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Strict      bool   `json:"strict,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ToolCall represents a tool call made by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents a function call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatCompletionResponse represents an OpenAI chat completion response.
type ChatCompletionResponse struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	SystemFingerprint string   `json:"system_fingerprint,omitempty"`
	Choices           []Choice `json:"choices"`
	Usage             Usage    `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int                   `json:"index"`
	Message      ChatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an OpenAI API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError contains error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// ToCanonical converts the OpenAI API error to a canonical domain error.
func (e *APIError) ToCanonical() *domain.APIError {
	errType, code := mapOpenAIErrorType(e.Type, e.Code, e.Message)
	return &domain.APIError{
		Type:    errType,
		Code:    code,
		Message: e.Message,
		Param:   e.Param,
	}
}

// mapOpenAIErrorType maps OpenAI error types/codes to domain error types.
func mapOpenAIErrorType(errType, errCode, message string) (domain.ErrorType, domain.ErrorCode) {
	switch errCode {
	case "context_length_exceeded":
		return domain.ErrorTypeContextLength, domain.ErrorCodeContextLengthExceeded
	case "rate_limit_exceeded":
		return domain.ErrorTypeRateLimit, domain.ErrorCodeRateLimitExceeded
	case "invalid_api_key":
		return domain.ErrorTypeAuthentication, domain.ErrorCodeInvalidAPIKey
	case "model_not_found":
		return domain.ErrorTypeNotFound, domain.ErrorCodeModelNotFound
	}

	msgLower := strings.ToLower(message)
	if strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "context window") {
		return domain.ErrorTypeContextLength, domain.ErrorCodeContextLengthExceeded
	}

	switch errType {
	case "invalid_request_error":
		return domain.ErrorTypeInvalidRequest, ""
	case "authentication_error":
		return domain.ErrorTypeAuthentication, domain.ErrorCodeInvalidAPIKey
	case "permission_denied":
		return domain.ErrorTypePermission, ""
	case "not_found":
		return domain.ErrorTypeNotFound, domain.ErrorCodeModelNotFound
	case "rate_limit_error", "rate_limit_exceeded":
		return domain.ErrorTypeRateLimit, domain.ErrorCodeRateLimitExceeded
	case "service_unavailable":
		return domain.ErrorTypeOverloaded, ""
	default:
		return domain.ErrorTypeServer, ""
	}
}

// ParseErrorResponse attempts to parse an error response from JSON.
func ParseErrorResponse(data []byte) (*APIError, error) {
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return nil, err
	}
	if errResp.Error == nil {
		return nil, nil
	}
	return errResp.Error, nil
}
