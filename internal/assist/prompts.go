package assist

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-editor/internal/llm"
)

// Command is an AI writing action on one field.
type Command string

// Commands
const (
	CommandContinue Command = "continue"
	CommandImprove  Command = "improve"
	CommandFix      Command = "fix"
	CommandShorter  Command = "shorter"
	CommandLonger   Command = "longer"
	CommandSimplify Command = "simplify"
)

type action struct {
	verb     string
	guidance string
	tier     llm.ModelTier
}

var actions = map[Command]action{
	CommandContinue: {"Continue", "Write 2-3 sentences maximum. Keep the same tone and style.", llm.TierStandard},
	CommandImprove:  {"Improve", "Make it more professional, clear, and impactful. Maintain the original meaning.", llm.TierAdvanced},
	CommandFix:      {"Fix grammar and spelling in", "Keep the original meaning and style.", llm.TierLite},
	CommandShorter:  {"Make shorter and more concise", "Keep the key information and impact.", llm.TierLite},
	CommandLonger:   {"Expand with more details", "Add relevant details and examples while keeping it professional.", llm.TierStandard},
	CommandSimplify: {"Simplify", "Make it clearer and easier to understand while maintaining professionalism.", llm.TierStandard},
}

// Commands lists every supported command.
var Commands = []Command{
	CommandContinue, CommandImprove, CommandFix, CommandShorter, CommandLonger, CommandSimplify,
}

// ParseCommand validates s.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actions[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	return c, nil
}

// Tier returns the model tier the command runs on.
func (c Command) Tier() llm.ModelTier {
	return actions[c].tier
}

type sectionPrompt struct {
	role  string
	noun  string
	rules []string
}

var sectionPrompts = map[string]sectionPrompt{
	"summary": {
		role: "professional summaries",
		noun: "professional summary",
		rules: []string{
			"DO NOT mention specific company names or institutions (they are in Experience/Education)",
			"Focus on skills, expertise, years of experience, and unique value proposition",
			"Use the context to understand seniority level and field, but don't copy specific details",
		},
	},
	"experience": {
		role: "work experience descriptions",
		noun: "work experience description",
		rules: []string{
			"Use action verbs and quantify achievements where possible",
			"Focus on impact, results, and specific accomplishments",
			"Use past tense for previous roles, present tense for current role",
		},
	},
	"skills": {
		role: "skills sections",
		noun: "skills list",
		rules: []string{
			"Be specific and relevant to the candidate's field",
			"Avoid generic terms",
		},
	},
	"education": {
		role: "education sections",
		noun: "education description",
		rules: []string{
			"Keep it factual and concise",
			"Highlight academic achievements and relevant projects",
		},
	},
	"projects": {
		role: "project descriptions",
		noun: "project description",
		rules: []string{
			"Focus on technologies used, your role, and outcomes",
			"Be specific about your contributions",
		},
	},
}

var defaultSectionPrompt = sectionPrompt{
	noun: "text",
	rules: []string{
		"Keep the text professional and concise",
		"Avoid redundancy with other sections",
	},
}

// buildPrompt assembles the instruction for one command on one field of section.
func buildPrompt(cmd Command, section, text, context string) string {
	a := actions[cmd]
	sp, ok := sectionPrompts[section]
	if !ok {
		sp = defaultSectionPrompt
	}

	var sb strings.Builder
	if sp.role != "" {
		fmt.Fprintf(&sb, "You are a professional CV writer specializing in %s.\n\n", sp.role)
	} else {
		sb.WriteString("You are a professional CV writer.\n\n")
	}

	sb.WriteString("IMPORTANT RULES:\n")
	for _, rule := range sp.rules {
		fmt.Fprintf(&sb, "- %s\n", rule)
	}
	sb.WriteString("- Return plain text only, without markdown or HTML\n\n")

	fmt.Fprintf(&sb, "TASK: %s\n\n", a.guidance)
	sb.WriteString(`OUTPUT FORMAT:
Respond with JSON matching this structure:
{"options": [{"text": "The rewritten text", "label": "Brief description"}], "reasoning": "Optional"}
Provide a single option.

`)

	if context != "" {
		fmt.Fprintf(&sb, "Resume Context:\n%s\n\n", context)
	}
	fmt.Fprintf(&sb, "%s this %s:\n\n%s", a.verb, sp.noun, text)
	return sb.String()
}
