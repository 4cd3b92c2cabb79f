package assist

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/llm"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/transform"
)

// Rewriter runs assist commands through an LLM client.
type Rewriter struct {
	client llm.Client
	tier   llm.ModelTier
	logger *zap.Logger
}

// NewRewriter returns a Rewriter. An empty tier uses each command's own tier.
func NewRewriter(client llm.Client, tier llm.ModelTier, logger *zap.Logger) *Rewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{client: client, tier: tier, logger: logger}
}

type reply struct {
	Options []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	} `json:"options"`
	Reasoning string `json:"reasoning"`
}

// Rewrite runs cmd on text. section picks the writing rules; resume supplies the
// context summary and may be nil.
func (r *Rewriter) Rewrite(ctx context.Context, cmd Command, section, text string, resume document.Document) (string, error) {
	if _, ok := actions[cmd]; !ok {
		return "", ErrUnknownCommand
	}
	plain, err := PlainText(text)
	if err != nil {
		return "", err
	}
	if plain == "" {
		return "", ErrEmptyText
	}

	tier := r.tier
	if tier == "" {
		tier = cmd.Tier()
	}

	prompt := buildPrompt(cmd, section, plain, ContextSummary(resume))
	raw, err := r.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return "", &APICallError{Message: "failed to generate " + string(cmd) + " rewrite", Cause: err}
	}

	out, err := parseReply(raw)
	if err != nil {
		return "", err
	}
	if cmd == CommandContinue {
		out = plain + " " + out
	}

	r.logger.Debug("assist rewrite",
		zap.String("command", string(cmd)),
		zap.String("section", section),
		zap.Int("input_chars", len(plain)),
		zap.Int("output_chars", len(out)),
	)
	return out, nil
}

// Func adapts cmd into a transform for the coordinator. resume is the document the
// request was made from and only feeds the context summary.
func (r *Rewriter) Func(cmd Command, resume document.Document) transform.Func {
	return func(ctx context.Context, p path.Path, current any) (any, error) {
		if current == nil {
			return nil, ErrEmptyText
		}
		text, ok := current.(string)
		if !ok {
			return nil, ErrNotText
		}
		return r.Rewrite(ctx, cmd, p.Root(), text, resume)
	}
}

func parseReply(raw string) (string, error) {
	cleaned := llm.CleanJSONBlock(raw)
	var rep reply
	if err := json.Unmarshal([]byte(cleaned), &rep); err != nil {
		// some models ignore the format and answer with the text itself
		if !strings.HasPrefix(cleaned, "{") && !strings.HasPrefix(cleaned, "[") {
			if text := llm.CleanText(raw); text != "" {
				return text, nil
			}
		}
		return "", &ParseError{Reply: raw, Cause: err}
	}
	for _, opt := range rep.Options {
		if text := llm.CleanText(opt.Text); text != "" {
			return text, nil
		}
	}
	return "", &ParseError{Reply: raw}
}
