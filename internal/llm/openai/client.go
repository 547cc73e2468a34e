package openai

import (
	"context"
	"errors"

	"finagent/internal/llm"

	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI client with the given API key and model.
// If baseURL is empty, it uses the default OpenAI API endpoint; otherwise it
// targets the custom endpoint (useful for OpenAI-compatible APIs).
func NewClient(apiKey, model string, baseURL ...string) *Client {
	var client *openai.Client

	if len(baseURL) > 0 && baseURL[0] != "" {
		config := openai.DefaultConfig(apiKey)
		config.BaseURL = baseURL[0]
		client = openai.NewClientWithConfig(config)
	} else {
		client = openai.NewClient(apiKey)
	}

	return &Client{
		client: client,
		model:  model,
	}
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.convertMessages(req.Messages),
		Tools:       c.convertTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		// API-level errors (bad request, auth) come back as *openai.APIError
		// with a populated status code; everything else is a transport fault.
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
			return nil, err
		}
		return nil, &llm.TransportError{Provider: "openai", Err: err}
	}

	return c.convertResponse(resp), nil
}

func (c *Client) Provider() string {
	return "openai"
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) convertMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		ocMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if len(msg.ToolCalls) > 0 {
			ocMsg.ToolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				ocMsg.ToolCalls[j] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}
		}

		if msg.Role == llm.RoleTool {
			ocMsg.ToolCallID = msg.ToolCallID
		}

		result[i] = ocMsg
	}
	return result
}

func (c *Client) convertTools(tools []*llm.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		}
	}
	return result
}

func (c *Client) convertResponse(resp openai.ChatCompletionResponse) *llm.ChatResponse {
	if len(resp.Choices) == 0 {
		return &llm.ChatResponse{StopReason: llm.StopReasonStop}
	}

	choice := resp.Choices[0]
	msg := llm.Message{
		Role:    llm.Role(choice.Message.Role),
		Content: choice.Message.Content,
	}

	if len(choice.Message.ToolCalls) > 0 {
		msg.ToolCalls = make([]*llm.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			msg.ToolCalls[i] = &llm.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				Function: &llm.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	stopReason := llm.StopReasonStop
	switch choice.FinishReason {
	case openai.FinishReasonToolCalls:
		stopReason = llm.StopReasonToolCalls
	case openai.FinishReasonLength:
		stopReason = llm.StopReasonLength
	}

	return &llm.ChatResponse{
		Message:    msg,
		StopReason: stopReason,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
