package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
)

// PromptConfig contains prompt configuration
type PromptConfig struct {
	Persona               string // Default persona when the account has none
	OutputContract        string // JSON output instructions
	CorrectionsHeader     string // Header above past corrections
	RegenerateInstruction string // Appended on regeneration, supports {{previous}}
	MaxCorrections        int
}

const defaultPersona = `You reply to direct messages and comments on behalf of a creator's social account.
Be warm, brief and specific. Never invent prices, dates or promises that are not in the message.`

const defaultOutputContract = `Respond with a JSON object only:
{"response": "<reply text>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}
confidence is how sure you are the reply can be sent without human review.`

const defaultRegenerateInstruction = `A previous suggestion was rejected by the account owner:
"{{previous}}"
Write a noticeably different reply.`

// DefaultPromptConfig returns the built-in prompts
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		Persona:               defaultPersona,
		OutputContract:        defaultOutputContract,
		CorrectionsHeader:     "Past replies the account owner corrected. Match the corrected style:",
		RegenerateInstruction: defaultRegenerateInstruction,
		MaxCorrections:        10,
	}
}

// GenerateRequest is the input of one generation
type GenerateRequest struct {
	Account     *domain.Account
	Sender      domain.SenderProfile
	Kind        domain.EventKind
	Content     string
	MediaType   string
	ParentID    string
	Corrections []*domain.Correction
}

// buildMessages assembles the chat messages for a generation
func (c PromptConfig) buildMessages(req GenerateRequest, previous string) []repo.ChatMessage {
	persona := c.Persona
	if req.Account != nil && strings.TrimSpace(req.Account.SystemPrompt) != "" {
		persona = req.Account.SystemPrompt
	}

	var sys strings.Builder
	sys.WriteString(persona)
	sys.WriteString("\n\n")
	sys.WriteString(c.OutputContract)

	if len(req.Corrections) > 0 {
		sys.WriteString("\n\n")
		sys.WriteString(c.CorrectionsHeader)
		limit := len(req.Corrections)
		if c.MaxCorrections > 0 && limit > c.MaxCorrections {
			limit = c.MaxCorrections
		}
		for i, corr := range req.Corrections[:limit] {
			fmt.Fprintf(&sys, "\n%d. Message: %s\n   Suggested: %s\n   Corrected: %s",
				i+1, oneLine(corr.MessageContent), oneLine(corr.OriginalResponse), oneLine(corr.CorrectedResponse))
		}
	}

	var user strings.Builder
	kind := "direct message"
	if req.Kind == domain.EventKindComment {
		kind = "comment"
		if req.ParentID != "" {
			kind = "reply in a comment thread"
		}
	}
	fmt.Fprintf(&user, "New %s from %s", kind, req.Sender.DisplayName())
	if req.Sender.Username != "" && req.Sender.Name != "" {
		fmt.Fprintf(&user, " (@%s)", req.Sender.Username)
	}
	user.WriteString(":\n")
	if req.Content != "" {
		user.WriteString(req.Content)
	} else {
		user.WriteString("(no text)")
	}
	if req.MediaType != "" {
		fmt.Fprintf(&user, "\n[attachment: %s]", req.MediaType)
	}

	msgs := []repo.ChatMessage{
		{Role: repo.RoleSystem, Content: sys.String()},
		{Role: repo.RoleUser, Content: user.String()},
	}
	if previous != "" {
		msgs = append(msgs, repo.ChatMessage{
			Role:    repo.RoleUser,
			Content: strings.ReplaceAll(c.RegenerateInstruction, "{{previous}}", previous),
		})
	}
	return msgs
}

type completionPayload struct {
	Response   string          `json:"response"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// parseCompletion reads the JSON contract out of a completion. Markdown code
// fences are tolerated; anything else unparseable is a PARSE_ERROR.
func parseCompletion(raw string) domain.Generation {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i > 0 && j > i {
		s = s[i : j+1]
	}

	var p completionPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return domain.FailedGeneration(domain.ErrorCodeParseError, "unparseable completion: "+err.Error())
	}
	suggestion := strings.TrimSpace(p.Response)
	if suggestion == "" {
		return domain.FailedGeneration(domain.ErrorCodeParseError, "completion had no response text")
	}

	return domain.Generation{
		Suggestion: suggestion,
		Confidence: domain.ClampConfidence(parseConfidence(p.Confidence)),
		Reasoning:  strings.TrimSpace(p.Reasoning),
	}
}

// parseConfidence accepts a number, a numeric string or a "NN%" string
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0
	}
	if percent {
		f /= 100
	}
	return f
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
