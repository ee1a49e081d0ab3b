// Package assistant answers questions about a financial view with a
// generative model and keeps the conversation history in the store.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"afasrapport/internal/backend"
	"afasrapport/internal/core"
	"afasrapport/internal/finview"
	"afasrapport/internal/log"
)

const maxTitleLen = 60

const chatInstructions = "Je bent een financieel assistent voor een Nederlandse onderneming.\n" +
	"Beantwoord vragen uitsluitend op basis van de meegeleverde cijfers uit de financiele administratie (AFAS).\n" +
	"Bedragen zijn in euro. Netto bedragen zijn credit min debet: kosten en activa zijn dus negatief.\n" +
	"Als het antwoord niet uit de cijfers volgt, zeg dat dan. Antwoord kort en in het Nederlands.\n"

const suggestInstructions = "You map ledger categories of a Dutch bookkeeping to report groups.\n" +
	"Output STRICT JSON only: an array of objects with fields \"category\" and \"reportGroup\".\n" +
	"Use the exact category strings given. Prefer existing report groups when one fits.\n" +
	"Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n" +
	"Output must begin with \"[\" and end with \"]\".\n"

// Answer is the result of one Ask call.
type Answer struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
}

type Assistant struct {
	gen    Generator
	store  backend.ConversationStore
	logger *log.Logger
	now    func() time.Time
}

func New(gen Generator, store backend.ConversationStore, logger *log.Logger) *Assistant {
	if logger == nil {
		logger = log.Discard()
	}
	return &Assistant{
		gen:    gen,
		store:  store,
		logger: logger.WithComponent(log.ComponentAssistant),
		now:    time.Now,
	}
}

// Ask sends question with the conversation history and the view as context.
// An empty conversationID starts a new conversation. Both turns are stored
// only after the model answered.
func (a *Assistant) Ask(ctx context.Context, conversationID, question string, view *core.FinancialView) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, errors.New("question is required")
	}

	var history []core.ChatMessage
	if conversationID == "" {
		conv, err := a.store.CreateConversation(ctx, title(question))
		if err != nil {
			return Answer{}, fmt.Errorf("create conversation: %w", err)
		}
		conversationID = conv.ID
	} else {
		var err error
		history, err = a.History(ctx, conversationID)
		if err != nil {
			return Answer{}, err
		}
	}

	system, err := BuildContext(view)
	if err != nil {
		return Answer{}, err
	}

	userTurn := core.ChatMessage{
		ConversationID: conversationID,
		Role:           core.RoleUser,
		Content:        question,
		CreatedAt:      a.now(),
	}
	turns := append(history, userTurn)

	start := time.Now()
	reply, err := a.gen.Generate(ctx, system, turns)
	if err != nil {
		return Answer{}, fmt.Errorf("ask model: %w", err)
	}
	a.logger.InfoContext(ctx, "Assistant answered",
		log.FieldConvID, conversationID,
		log.FieldDuration, time.Since(start).Milliseconds())

	modelTurn := core.ChatMessage{
		ConversationID: conversationID,
		Role:           core.RoleModel,
		Content:        reply,
		CreatedAt:      a.now(),
	}
	for _, m := range []core.ChatMessage{userTurn, modelTurn} {
		if err := a.store.AppendMessage(ctx, m); err != nil {
			return Answer{}, fmt.Errorf("store %s turn: %w", m.Role, err)
		}
	}
	return Answer{ConversationID: conversationID, Reply: reply}, nil
}

// History returns the stored turns of a conversation, or core.ErrNotFound
// when it does not exist.
func (a *Assistant) History(ctx context.Context, conversationID string) ([]core.ChatMessage, error) {
	if _, err := a.store.GetConversation(ctx, conversationID); err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	msgs, err := a.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	return msgs, nil
}

// SuggestMappings asks the model for a report group per category. Suggestions
// for categories that were not asked for are dropped.
func (a *Assistant) SuggestMappings(ctx context.Context, categories, existingGroups []string) ([]core.CategoryMapping, error) {
	if len(categories) == 0 {
		return []core.CategoryMapping{}, nil
	}

	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, c := range categories {
		b.WriteString("- " + c + "\n")
	}
	if len(existingGroups) > 0 {
		b.WriteString("\nExisting report groups:\n")
		for _, g := range existingGroups {
			b.WriteString("- " + g + "\n")
		}
	}

	raw, err := a.gen.Generate(ctx, suggestInstructions, []core.ChatMessage{{Role: core.RoleUser, Content: b.String()}})
	if err != nil {
		return nil, fmt.Errorf("ask model: %w", err)
	}

	var suggested []core.CategoryMapping
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &suggested); err != nil {
		return nil, fmt.Errorf("unmarshal suggestions: %w\nraw response: %s", err, raw)
	}

	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	out := make([]core.CategoryMapping, 0, len(suggested))
	for _, s := range suggested {
		s.ReportGroup = strings.TrimSpace(s.ReportGroup)
		if !wanted[s.Category] || s.ReportGroup == "" {
			continue
		}
		delete(wanted, s.Category)
		out = append(out, s)
	}
	return out, nil
}

type viewContext struct {
	Period            core.DateRange         `json:"period"`
	Summary           core.Summary           `json:"summary"`
	AccountTypeTotals map[string]core.Totals `json:"accountTypeTotals"`
	CategoryTotals    map[string]core.Totals `json:"categoryTotals"`
	Balans            core.BalansTotals      `json:"balans"`
	Results           []core.MonthResult     `json:"results"`
	Checks            []core.CheckResult     `json:"checks,omitempty"`
}

// BuildContext renders the pre-aggregated view as model instructions.
// Individual records are left out.
func BuildContext(view *core.FinancialView) (string, error) {
	if view == nil {
		return chatInstructions, nil
	}
	data, err := json.Marshal(viewContext{
		Period:            view.Summary.DateRange,
		Summary:           view.Summary,
		AccountTypeTotals: view.AccountTypeTotals,
		CategoryTotals:    view.CategoryTotals,
		Balans:            view.Balans.BalansTotals,
		Results:           finview.Results(view),
		Checks:            view.FinancialChecks.Overall,
	})
	if err != nil {
		return "", fmt.Errorf("encode view context: %w", err)
	}
	return chatInstructions + "\nCijfers (JSON):\n" + string(data), nil
}

func title(question string) string {
	r := []rune(question)
	if len(r) <= maxTitleLen {
		return question
	}
	return strings.TrimSpace(string(r[:maxTitleLen])) + "..."
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
