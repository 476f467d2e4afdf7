package moderation

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagelink/modgate/internal/adapters"
	"github.com/stagelink/modgate/internal/adapters/llm"
	apperrors "github.com/stagelink/modgate/internal/errors"
	"github.com/stagelink/modgate/internal/observability"
)

// Classifier produces a structured verdict for one message. Implementations
// are stateless and re-evaluate every call.
type Classifier interface {
	Classify(ctx context.Context, messageText string) (*Verdict, error)
}

type llmClassifier struct {
	llm     adapters.LLM
	policy  *Policy
	timeout time.Duration
	logger  *log.Entry
}

func NewClassifier(llmAdapter adapters.LLM, policy *Policy, timeout time.Duration) Classifier {
	return &llmClassifier{
		llm:     llmAdapter,
		policy:  policy,
		timeout: timeout,
		logger:  log.WithField("service", "classifier"),
	}
}

// VerdictSchema is the forced response shape handed to the LLM adapters.
func VerdictSchema(policy *Policy) *llm.ResponseSchema {
	return &llm.ResponseSchema{
		Name: "moderation_verdict",
		Properties: map[string]llm.SchemaProperty{
			"isViolation": {Type: "boolean", Description: "whether the message violates the messaging policy"},
			"violationType": {
				Type: "string",
				Enum: append(policy.Types(), string(ViolationNone)),
			},
			"confidence":     {Type: "number", Description: "confidence between 0 and 1"},
			"flaggedContent": {Type: "string", Description: "the offending substring, empty if none"},
			"explanation":    {Type: "string", Description: "short reason for the verdict"},
		},
		Required: []string{"isViolation", "violationType", "confidence", "flaggedContent", "explanation"},
	}
}

func (c *llmClassifier) Classify(ctx context.Context, messageText string) (*Verdict, error) {
	entry := c.logger.WithField("method", "Classify")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: c.policy.SystemPrompt()},
		{Role: llm.RoleUser, Content: messageText},
	}

	started := time.Now()
	resp, err := c.llm.ChatCompletion(ctx, messages)
	if err != nil {
		observability.RecordClassifierCall("error", time.Since(started))
		entry.WithError(err).Error("classifier request failed")
		return nil, errors.Wrap(apperrors.ErrClassifierUnavailable, err.Error())
	}
	if len(resp.Choices) == 0 {
		observability.RecordClassifierCall("empty", time.Since(started))
		return nil, errors.Wrap(apperrors.ErrClassifierUnavailable, "no response choices available")
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		observability.RecordClassifierCall("malformed", time.Since(started))
		entry.WithError(err).WithField("raw", resp.Choices[0].Message.Content).Error("malformed verdict")
		return nil, errors.Wrap(apperrors.ErrClassifierUnavailable, err.Error())
	}
	observability.RecordClassifierCall("ok", time.Since(started))
	return verdict, nil
}

// parseVerdict fails on anything that deviates from the contract. An
// undecodable verdict means the gate cannot determine safety, so the caller
// must treat it as classifier unavailability, never as a clean message.
func parseVerdict(raw string) (*Verdict, error) {
	raw = strings.TrimSpace(raw)
	// Some models fence JSON output despite the response format contract.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var wire struct {
		IsViolation    *bool    `json:"isViolation"`
		ViolationType  *string  `json:"violationType"`
		Confidence     *float64 `json:"confidence"`
		FlaggedContent *string  `json:"flaggedContent"`
		Explanation    *string  `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, errors.Wrap(err, "unmarshal verdict")
	}
	if wire.IsViolation == nil || wire.ViolationType == nil || wire.Confidence == nil {
		return nil, errors.New("verdict is missing required fields")
	}
	violationType := ViolationType(*wire.ViolationType)
	if !violationType.Valid() {
		return nil, errors.Errorf("unknown violation type %q", *wire.ViolationType)
	}
	if *wire.Confidence < 0 || *wire.Confidence > 1 {
		return nil, errors.Errorf("confidence %v out of range", *wire.Confidence)
	}

	verdict := &Verdict{
		IsViolation:   *wire.IsViolation,
		ViolationType: violationType,
		Confidence:    *wire.Confidence,
	}
	if wire.FlaggedContent != nil {
		verdict.FlaggedContent = *wire.FlaggedContent
	}
	if wire.Explanation != nil {
		verdict.Explanation = *wire.Explanation
	}
	return verdict, nil
}
