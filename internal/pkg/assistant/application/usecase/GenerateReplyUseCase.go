package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	llmport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/llm/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
	repository "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/port"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/prompts"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/retrieval"
)

const maxToolRounds = 3

// greekPhone matches Greek mobile and landline numbers, with or without the
// country prefix.
var greekPhone = regexp.MustCompile(`(?:\+30\s?)?(?:69\d{8}|2\d{9})`)

// ToolExecutor is the calendar tool surface the model can call.
type ToolExecutor interface {
	Definitions() []llmport.Tool
	Execute(ctx context.Context, userID, name, argsJSON string) (string, error)
}

// GenerateReplyUseCase turns a combined batch into one reply: it classifies
// the message, assembles an intent-specific prompt with retrieved examples,
// and runs the completion with calendar tools when booking is in play.
type GenerateReplyUseCase struct {
	states   repository.StateRepository
	llm      llmport.Client
	tools    ToolExecutor
	examples retrieval.ExampleSource
	cfg      *config.Config
	log      *slog.Logger
}

func NewGenerateReplyUseCase(states repository.StateRepository, llm llmport.Client, tools ToolExecutor, examples retrieval.ExampleSource, cfg *config.Config, log *slog.Logger) *GenerateReplyUseCase {
	return &GenerateReplyUseCase{states: states, llm: llm, tools: tools, examples: examples, cfg: cfg, log: log.With(sl.Module("reply"))}
}

func (uc *GenerateReplyUseCase) Execute(ctx context.Context, userID, combined string, hasImages bool) (string, error) {
	history, err := uc.states.History(ctx, userID)
	if err != nil {
		// A reply without context beats no reply.
		uc.log.Error("could not read conversation context", sl.User(userID), sl.Err(err))
		history = nil
	}

	classification := uc.classify(ctx, combined, history, hasImages)
	intents := assistant.PromoteAvailableSlots(assistant.SortIntents(classification.Intents))
	top := intents[0]
	uc.log.Debug("message classified", sl.User(userID),
		slog.String("intent", top.Primary), slog.String("subcategory", top.Subcategory))

	system := uc.systemPrompt(ctx, combined, top, history)
	messages := uc.toMessages(history, combined)

	needsTools := top.Primary == assistant.IntentBooking
	var tools []llmport.Tool
	if needsTools {
		tools = uc.tools.Definitions()
	}

	req := llmport.ChatRequest{
		Model:       uc.cfg.OpenAI.ModelDefault,
		System:      system,
		Messages:    messages,
		Temperature: 0.7,
		Tools:       tools,
	}

	for round := 0; ; round++ {
		completion, err := uc.llm.Chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("reply: completion: %w", err)
		}
		if len(completion.ToolCalls) == 0 || round >= maxToolRounds-1 {
			if completion.Content == "" {
				return "", fmt.Errorf("reply: empty completion")
			}
			return completion.Content, nil
		}

		// Tool turns live only in this request; the stored context keeps
		// user and final assistant turns.
		req.Messages = append(req.Messages, llmport.Message{
			Role:      assistant.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			result, err := uc.tools.Execute(ctx, userID, call.Name, call.Arguments)
			if err != nil {
				uc.log.Error("tool failed", sl.User(userID), slog.String("tool", call.Name), sl.Err(err))
				result = `{"status":"error","message":"Το εργαλείο απέτυχε. Ενημέρωσε τον πελάτη ότι υπήρξε τεχνικό πρόβλημα."}`
			}
			req.Messages = append(req.Messages, llmport.Message{
				Role:       assistant.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}
}

// classify runs the intent model. On any failure the message is treated as a
// single low-confidence "other" so a reply still goes out.
func (uc *GenerateReplyUseCase) classify(ctx context.Context, combined string, history []assistant.Turn, hasImages bool) assistant.Classification {
	fallback := assistant.Classification{Intents: []assistant.Intent{{Primary: assistant.IntentOther, Confidence: 0.5}}}

	var b strings.Builder
	fmt.Fprintf(&b, "[CURRENT_DATE %s]\n", time.Now().Format("02/01/2006"))
	if prev := assistant.LastAssistantContent(history); prev != "" {
		fmt.Fprintf(&b, "[PREVIOUS_ASSISTANT] %s\n", prev)
	}
	if hasImages {
		b.WriteString("[HAS_IMAGE]\n")
	}
	b.WriteString("Μήνυμα πελάτη: " + combined)

	raw, err := uc.llm.ClassifyJSON(ctx, uc.cfg.OpenAI.ModelClassify, prompts.Classification, b.String())
	if err != nil {
		uc.log.Error("classification failed", sl.Err(err))
		return fallback
	}

	var classification assistant.Classification
	if err := json.Unmarshal([]byte(raw), &classification); err != nil || len(classification.Intents) == 0 {
		uc.log.Warn("unusable classification", slog.String("raw", raw))
		return fallback
	}
	return classification
}

func (uc *GenerateReplyUseCase) systemPrompt(ctx context.Context, combined string, top assistant.Intent, history []assistant.Turn) string {
	sections := []string{
		prompts.SystemDefault,
		fmt.Sprintf("Σημερινή ημερομηνία: %s.", time.Now().Format("02/01/2006")),
	}

	switch top.Primary {
	case assistant.IntentPricing:
		sections = append(sections, prompts.Pricing)
		switch top.Subcategory {
		case assistant.SubQuoteWithImage:
			sections = append(sections, "Ο πελάτης έστειλε φωτογραφία του σχεδίου. Βάσισε την εκτίμηση τιμής στην ανάλυση της φωτογραφίας.")
		case assistant.SubQuoteNoImage:
			sections = append(sections, "Ο πελάτης ζητά τιμή χωρίς φωτογραφία. Ζήτησε φωτογραφία ή λεπτομερή περιγραφή για ακριβέστερη εκτίμηση.")
		}
	case assistant.IntentBooking:
		sections = append(sections, prompts.Booking)
		switch top.Subcategory {
		case assistant.SubNewAppointment:
			sections = append(sections, "Ο πελάτης ξεκινά νέο ραντεβού. Μάζεψε πρώτα σχέδιο, όνομα και τηλέφωνο πριν κλείσεις ώρα.")
		case assistant.SubProvideDetails:
			sections = append(sections, "Ο πελάτης δίνει τα στοιχεία του. Αν έχεις πλέον όνομα, τηλέφωνο και ώρα, κάλεσε το create_tattoo_booking χωρίς να ξαναρωτήσεις.")
		case assistant.SubAvailableSlots:
			sections = append(sections, "Ο πελάτης ρωτά για διαθέσιμες ώρες. Κάλεσε το check_calendar_availability και απάντησε με τις πρώτες επιλογές.")
		case assistant.SubCancel, assistant.SubReschedule:
			if phone := findPhone(history); phone != "" {
				sections = append(sections, "Το τηλέφωνο του πελάτη από τη συνομιλία: "+phone)
			}
		}
		if top.StartDate != "" {
			sections = append(sections, fmt.Sprintf("Ο πελάτης ενδιαφέρεται για το διάστημα %s έως %s.", top.StartDate, dateOr(top.EndDate, top.StartDate)))
		}
	case assistant.IntentStudioInfo:
		sections = append(sections, prompts.Information)
	case assistant.IntentFollowUp:
		sections = append(sections, prompts.FollowUp)
	}

	examples, err := uc.examples.Similar(ctx, combined, top.Primary)
	if err != nil {
		uc.log.Warn("example retrieval failed", sl.Err(err))
	} else if block := retrieval.FormatExamples(examples); block != "" {
		sections = append(sections, block)
	}

	return strings.Join(sections, "\n\n")
}

func (uc *GenerateReplyUseCase) toMessages(history []assistant.Turn, combined string) []llmport.Message {
	messages := make([]llmport.Message, 0, len(history)+1)
	for _, t := range history {
		if t.Role != assistant.RoleUser && t.Role != assistant.RoleAssistant {
			continue
		}
		messages = append(messages, llmport.Message{Role: t.Role, Content: t.Content})
	}
	// The combined batch may not be in the stored context yet when
	// persistence degraded; make sure the model always sees it last.
	if len(messages) == 0 || messages[len(messages)-1].Role != assistant.RoleUser || messages[len(messages)-1].Content != combined {
		messages = append(messages, llmport.Message{Role: assistant.RoleUser, Content: combined})
	}
	return messages
}

// findPhone scans the conversation, newest first, for a phone number the
// customer already gave.
func findPhone(history []assistant.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != assistant.RoleUser {
			continue
		}
		if m := greekPhone.FindString(history[i].Content); m != "" {
			return m
		}
	}
	return ""
}

func dateOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
