package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []ChatCompletionChoice `json:"choices"`
}

type ChatCompletionChoice struct {
	Message ChatCompletionMessage `json:"message"`
}

type GenerationParameters struct {
	Temperature      float32
	TopK             int32
	TopP             float32
	MaxOutputTokens  int
	ResponseMIMEType string
	ResponseSchema   *ResponseSchema
}

// ResponseSchema is a provider-neutral description of a forced response
// shape. Adapters translate it into the vendor's structured-output request.
type ResponseSchema struct {
	Name       string
	Properties map[string]SchemaProperty
	Required   []string
}

type SchemaProperty struct {
	Type        string
	Description string
	Enum        []string
}
