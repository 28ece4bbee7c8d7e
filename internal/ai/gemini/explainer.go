package gemini

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/logger"
	"github.com/spigell/gigmatch/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed explain.md
var promptTemplate string

const (
	systemInstruction = "You are a matching assistant of a local-services marketplace. " +
		"You write short, factual explanations for clients about why a freelancer fits their job. " +
		"Never invent qualifications that are not present in the candidate profile."

	defaultMaxLogLength     = 200
	maxUserInstructionRunes = 500
	defaultTone             = "Friendly"
	defaultLanguage         = "same as the job description"
)

// PromptOverrides are operator preferences merged into the explanation prompt.
type PromptOverrides struct {
	Tone             string `mapstructure:"tone"`
	Language         string `mapstructure:"language"`
	UserInstructions string `mapstructure:"user-instructions"`
}

// Explainer generates match rationales with a Gemini chat model.
type Explainer struct {
	generator contentGenerator
	overrides PromptOverrides
	logger    *zap.Logger
	maxLogLen int
}

// NewExplainer creates an Explainer on top of generator.
func NewExplainer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Explainer{
		generator: generator,
		logger:    logger.WithFields(log, zap.String("component", "explainer")),
		maxLogLen: maxLogLength,
	}
}

// SetPromptOverrides replaces the prompt preferences.
func (e *Explainer) SetPromptOverrides(o PromptOverrides) {
	e.overrides = o
}

// Explain returns a short rationale for why the candidate fits the job.
func (e *Explainer) Explain(ctx context.Context, jobText, candidateText string, candidateSkills []string) (string, error) {
	if e == nil || e.generator == nil {
		return "", errors.New("explainer is not initialized")
	}
	if strings.TrimSpace(jobText) == "" {
		return "", errors.New("job text is required")
	}
	if strings.TrimSpace(candidateText) == "" {
		return "", errors.New("candidate text is required")
	}

	prompt := e.buildPrompt(jobText, candidateText, candidateSkills)

	e.logger.Debug("explanation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}

	e.logger.Debug("explanation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	text := cleanResponse(raw)
	if text == "" {
		return "", errors.New("explanation is empty")
	}
	return text, nil
}

func (e *Explainer) buildPrompt(jobText, candidateText string, skills []string) string {
	tone := sanitizeLine(e.overrides.Tone)
	if tone == "" {
		tone = defaultTone
	}
	language := sanitizeLine(e.overrides.Language)
	if language == "" {
		language = defaultLanguage
	}

	cleaned := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = sanitizeLine(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	skillText := strings.Join(cleaned, ", ")
	if skillText == "" {
		skillText = "none listed"
	}

	replacer := strings.NewReplacer(
		"{{TONE}}", tone,
		"{{LANGUAGE}}", language,
		"{{USER_INSTRUCTIONS}}", sanitizeInstructions(e.overrides.UserInstructions),
		"{{JOB}}", neutralizeBrackets(strings.TrimSpace(jobText)),
		"{{CANDIDATE}}", neutralizeBrackets(strings.TrimSpace(candidateText)),
		"{{SKILLS}}", skillText,
	)

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job:\n{{JOB}}\n\nCandidate:\n{{CANDIDATE}}\n\nSkills: {{SKILLS}}\n\nExplanation:"
	}
	return replacer.Replace(template)
}

// sanitizeInstructions renders free-form operator instructions as an indented list, one entry per line.
func sanitizeInstructions(raw string) string {
	lines := make([]string, 0)
	budget := maxUserInstructionRunes
	for _, line := range strings.Split(raw, "\n") {
		line = sanitizeLine(line)
		if line == "" || budget <= 0 {
			continue
		}
		runes := []rune(line)
		if len(runes) > budget {
			runes = runes[:budget]
		}
		budget -= len(runes)
		lines = append(lines, "  - "+string(runes))
	}

	if len(lines) == 0 {
		return "  - none"
	}
	return strings.Join(lines, "\n")
}

func sanitizeLine(s string) string {
	s = neutralizeBrackets(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func neutralizeBrackets(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func cleanResponse(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```text")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "\"`")
	return strings.TrimSpace(raw)
}
