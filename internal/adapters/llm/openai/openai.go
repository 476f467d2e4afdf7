package openai

import (
	"context"
	"encoding/json"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/stagelink/modgate/internal/adapters"
	"github.com/stagelink/modgate/internal/adapters/llm"
)

type API struct {
	client       *openai.Client
	systemPrompt string
	model        string
	parameters   *llm.GenerationParameters
	logger       *log.Entry
}

const DefaultModel = "gpt-4o-mini"

func NewOpenAI(apiKey, model, baseURL string, parameters *llm.GenerationParameters, logger *log.Entry) adapters.LLM {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	client := openai.NewClientWithConfig(config)
	api := &API{
		client: client,
		logger: logger,
	}
	api.WithModel(model)
	api.WithParameters(parameters)
	return api
}

func (o *API) WithModel(modelName string) adapters.LLM {
	if modelName == "" {
		modelName = DefaultModel
	}
	o.model = modelName
	return o
}

func (o *API) WithParameters(parameters *llm.GenerationParameters) adapters.LLM {
	if parameters == nil {
		parameters = &llm.GenerationParameters{
			Temperature:     0.1,
			TopP:            0.9,
			TopK:            50,
			MaxOutputTokens: 1024,
		}
	}
	o.parameters = parameters
	return o
}

func (o *API) WithSystemPrompt(prompt string) adapters.LLM {
	o.systemPrompt = prompt
	return o
}

func (o *API) ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	var openaiMessages []openai.ChatCompletionMessage
	systemPrompt := o.systemPrompt

	for _, msg := range messages {
		if msg.Role == openai.ChatMessageRoleSystem {
			systemPrompt = msg.Content
			continue
		}
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	openaiMessages = append([]openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
	}, openaiMessages...)

	request := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    openaiMessages,
		Temperature: o.parameters.Temperature,
		TopP:        o.parameters.TopP,
		MaxTokens:   o.parameters.MaxOutputTokens,
	}
	if format := o.responseFormat(); format != nil {
		request.ResponseFormat = format
	}

	resp, err := o.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return llm.ChatCompletionResponse{}, err
	}

	if len(resp.Choices) == 0 {
		return llm.ChatCompletionResponse{}, nil
	}

	return llm.ChatCompletionResponse{
		Choices: []llm.ChatCompletionChoice{
			{
				Message: llm.ChatCompletionMessage{
					Role:    resp.Choices[0].Message.Role,
					Content: resp.Choices[0].Message.Content,
				},
			},
		},
	}, nil
}

func (o *API) responseFormat() *openai.ChatCompletionResponseFormat {
	schema := o.parameters.ResponseSchema
	if schema != nil {
		raw, err := json.Marshal(schemaDefinition(schema))
		if err != nil {
			o.logger.WithError(err).Error("cant marshal response schema, falling back to json object mode")
		} else {
			return &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   schema.Name,
					Schema: json.RawMessage(raw),
					Strict: true,
				},
			}
		}
	}
	if o.parameters.ResponseMIMEType == "application/json" {
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return nil
}

func schemaDefinition(schema *llm.ResponseSchema) map[string]any {
	properties := make(map[string]any, len(schema.Properties))
	for name, property := range schema.Properties {
		definition := map[string]any{"type": property.Type}
		if property.Description != "" {
			definition["description"] = property.Description
		}
		if len(property.Enum) > 0 {
			definition["enum"] = property.Enum
		}
		properties[name] = definition
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             schema.Required,
		"additionalProperties": false,
	}
}
