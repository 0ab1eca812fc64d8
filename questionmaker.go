package studymcq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GenerationRequest asks for between MinQuestions and MaxQuestions questions about Content.
type GenerationRequest struct {
	Content      string
	MinQuestions int
	MaxQuestions int
	Chunk        int
}

// Generator proposes candidate questions for a piece of study material.
// It may return fewer candidates than asked for.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest, logger *GenerationLogger) ([]Candidate, error)
}

// QuestionMaker generates questions through an OpenAI-compatible chat completion API
type QuestionMaker struct {
	client          *openai.Client
	cfg             LLMConfig
	maxContentChars int
}

var _ Generator = (*QuestionMaker)(nil)

// NewQuestionMaker creates a question maker for the configured endpoint
func NewQuestionMaker(cfg LLMConfig, maxContentChars int) *QuestionMaker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &QuestionMaker{
		client:          openai.NewClientWithConfig(clientCfg),
		cfg:             cfg,
		maxContentChars: maxContentChars,
	}
}

const systemPrompt = "You are a university professor writing multiple choice questions for a final examination. " +
	"Keep questions and explanations in plain text without HTML or Markdown."

var submitQuestionsTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        "submit_questions",
		Description: "Submit generated multiple choice questions",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"questions": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"question": map[string]interface{}{
								"type":        "string",
								"description": "The question text, statements (i), (ii)... on their own lines",
							},
							"options": map[string]interface{}{
								"type": "array",
								"items": map[string]interface{}{
									"type": "string",
								},
								"description": `Exactly 4 options formatted "A) ...", "B) ...", "C) ...", "D) ..."`,
							},
							"correct_answer": map[string]interface{}{
								"type":        "string",
								"enum":        OptionLabels,
								"description": "Label of the correct option",
							},
							"explanation": map[string]interface{}{
								"type":        "string",
								"description": "Why the answer is correct, quoting the material",
							},
						},
						"required": []string{"question", "options", "correct_answer", "explanation"},
					},
				},
			},
			"required": []string{"questions"},
		},
	},
}

// Generate asks the model for questions about one chunk of material
func (qm *QuestionMaker) Generate(ctx context.Context, req GenerationRequest, logger *GenerationLogger) ([]Candidate, error) {
	VerboseLog("Generating %d-%d questions for chunk %d", req.MinQuestions, req.MaxQuestions, req.Chunk)

	prompt := qm.buildPrompt(req)
	logger.LogLLMRequest(req.Chunk, prompt)

	resp, err := qm.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       qm.cfg.Model,
			Temperature: qm.cfg.Temperature,
			MaxTokens:   qm.cfg.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Tools: []openai.Tool{submitQuestionsTool},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: "submit_questions",
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in model response")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		toolCall := msg.ToolCalls[0]
		logger.LogLLMResponse(req.Chunk, toolCall.Function.Arguments)
		if toolCall.Function.Name != "submit_questions" {
			return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
		}
		return ParseCandidates(toolCall.Function.Arguments)
	}

	// Some OpenAI-compatible servers ignore tool_choice and answer in plain content.
	logger.LogLLMResponse(req.Chunk, msg.Content)
	log.Printf("[WARN] Model answered without a tool call for chunk %d, parsing content", req.Chunk)
	return ParseCandidates(msg.Content)
}

func (qm *QuestionMaker) buildPrompt(req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Based on the following content, generate between %d and %d multiple choice questions.\n", req.MinQuestions, req.MaxQuestions))
	sb.WriteString("Pick the number from the depth of the content and how many distinct testable ideas it holds.\n\n")

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Test understanding, not memorization\n")
	sb.WriteString("- Exactly 4 options labelled A) to D) with one correct answer\n")
	sb.WriteString("- Options must be distinct; never repeat the same text under two labels\n")
	sb.WriteString("- The explanation quotes the content that supports the answer\n")
	sb.WriteString("- Cover different parts of the content\n")
	sb.WriteString("- Include a few \"Which of the following statements are true?\" questions, with statements (i), (ii), (iii) ")
	sb.WriteString("on separate lines inside the question text and options such as \"A) Only (i)\"\n")
	sb.WriteString("- Outside knowledge is allowed only when it supports the content and must be cited in the explanation\n")
	sb.WriteString("- Use the submit_questions tool to return your questions\n\n")

	sb.WriteString("Content:\n")
	sb.WriteString(truncateRunes(req.Content, qm.maxContentChars))
	sb.WriteString("\n")

	return sb.String()
}

// ParseCandidates decodes generator output: a {"questions": [...]} object or a bare array,
// optionally wrapped in a Markdown code fence.
func ParseCandidates(raw string) ([]Candidate, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	candidates, err := decodeCandidates(text)
	if err != nil {
		candidates, err = decodeCandidates(fixJSONEscapes(text))
		if err != nil {
			return nil, fmt.Errorf("failed to parse generated questions: %w", err)
		}
	}
	return candidates, nil
}

func decodeCandidates(text string) ([]Candidate, error) {
	if strings.HasPrefix(text, "[") {
		var list []Candidate
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var wrapped struct {
		Questions []Candidate `json:"questions"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Questions, nil
}

func stripCodeFence(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	body := text[start+3:]
	body = strings.TrimPrefix(body, "json")
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func fixJSONEscapes(text string) string {
	return strings.NewReplacer(`\'`, "'", `\<`, "<", `\>`, ">").Replace(text)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
