package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	cacheadapter "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/cache/adapter"
	llmport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/llm/port"
	queueport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/queue/port"
	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
	stateadapter "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/adapter"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/retrieval"
)

// ---------------------------------------------------------------- fakes

type enqueuedTask struct {
	task queueport.Task
	opt  queueport.EnqueueOption
}

type fakeQueueClient struct {
	mu    sync.Mutex
	tasks []enqueuedTask
	err   error
}

func (f *fakeQueueClient) Enqueue(ctx context.Context, t queueport.Task, opts ...queueport.EnqueueOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	var opt queueport.EnqueueOption
	if len(opts) > 0 {
		opt = opts[0]
	}
	f.tasks = append(f.tasks, enqueuedTask{task: t, opt: opt})
	return "task-id", nil
}

func (f *fakeQueueClient) Close() error { return nil }

func (f *fakeQueueClient) byType(taskType string) []enqueuedTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []enqueuedTask
	for _, e := range f.tasks {
		if e.task.Type == taskType {
			out = append(out, e)
		}
	}
	return out
}

type fakeLLM struct {
	classifyJSON string
	classifyErr  error
	completions  []llmport.Completion
	chatErr      error
	chatCalls    []llmport.ChatRequest
}

func (f *fakeLLM) ClassifyJSON(ctx context.Context, model, system, user string) (string, error) {
	if f.classifyErr != nil {
		return "", f.classifyErr
	}
	return f.classifyJSON, nil
}

func (f *fakeLLM) Chat(ctx context.Context, req llmport.ChatRequest) (llmport.Completion, error) {
	if f.chatErr != nil {
		return llmport.Completion{}, f.chatErr
	}
	f.chatCalls = append(f.chatCalls, req)
	if len(f.completions) == 0 {
		return llmport.Completion{Content: "ok"}, nil
	}
	c := f.completions[0]
	f.completions = f.completions[1:]
	return c, nil
}

func (f *fakeLLM) AnalyzeImage(ctx context.Context, model, system, instruction string, image []byte) (string, error) {
	return "γραμμικό σχέδιο", nil
}

func (f *fakeLLM) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) SendLong(ctx context.Context, recipientID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type fakeTools struct {
	results map[string]string
	calls   []string
}

func (f *fakeTools) Definitions() []llmport.Tool {
	return []llmport.Tool{{Name: "check_calendar_availability"}}
}

func (f *fakeTools) Execute(ctx context.Context, userID, name, argsJSON string) (string, error) {
	f.calls = append(f.calls, name)
	if r, ok := f.results[name]; ok {
		return r, nil
	}
	return `{"status":"ok"}`, nil
}

type fakeDownloader struct{ err error }

func (f *fakeDownloader) DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("jpeg"), nil
}

// ---------------------------------------------------------------- helpers

type fixture struct {
	cfg    *config.Config
	states *stateadapter.RedisStateRepository
	queue  *fakeQueueClient
	llm    *fakeLLM
	sender *fakeSender
	tools  *fakeTools
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		cfg:    cfg,
		states: stateadapter.NewRedisStateRepository(cacheadapter.NewMemoryCache(), cfg, slog.Default()),
		queue:  &fakeQueueClient{},
		llm:    &fakeLLM{classifyJSON: `{"intents":[{"primary":"other","confidence":0.9}]}`},
		sender: &fakeSender{},
		tools:  &fakeTools{},
	}
}

func (f *fixture) scheduleUC() *ScheduleProcessingUseCase {
	return NewScheduleProcessingUseCase(f.states, f.queue, f.cfg, slog.Default())
}

func (f *fixture) generateUC() *GenerateReplyUseCase {
	return NewGenerateReplyUseCase(f.states, f.llm, f.tools, retrieval.NoopSource{}, f.cfg, slog.Default())
}

func (f *fixture) processUC() *ProcessBatchUseCase {
	return NewProcessBatchUseCase(f.states, f.queue, f.generateUC(), f.sender, f.cfg, slog.Default())
}

func textMessage(ts int64, text string) assistant.QueuedMessage {
	return assistant.QueuedMessage{
		Timestamp: ts,
		Data: assistant.Messaging{
			Sender:    assistant.Principal{ID: "user-1"},
			Timestamp: ts,
			Message:   &assistant.EventMessage{Text: text},
		},
	}
}

// ---------------------------------------------------------------- schedule

func TestScheduleArmsOncePerWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.scheduleUC()

	for i := 0; i < 5; i++ {
		if err := uc.Execute(ctx, "user-1"); err != nil {
			t.Fatal(err)
		}
	}

	tasks := f.queue.byType(ProcessBatchTaskType)
	if len(tasks) != 1 {
		t.Fatalf("scheduled %d batch tasks, want 1", len(tasks))
	}
}

func TestScheduleDelayWithinJitterRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.scheduleUC()

	if err := uc.Execute(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}

	tasks := f.queue.byType(ProcessBatchTaskType)
	if len(tasks) != 1 {
		t.Fatalf("scheduled %d tasks, want 1", len(tasks))
	}
	delay := tasks[0].opt.ProcessIn
	min := f.cfg.Batching.GraceWindow + time.Second
	max := f.cfg.Batching.GraceWindow + time.Duration(f.cfg.Batching.GraceJitterMax)*time.Second
	if delay < min || delay > max {
		t.Fatalf("delay %v outside [%v, %v]", delay, min, max)
	}
	if tasks[0].opt.Queue != assistantQueue {
		t.Fatalf("queue = %q, want %q", tasks[0].opt.Queue, assistantQueue)
	}
}

func TestScheduleDisarmsOnEnqueueFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.scheduleUC()

	f.queue.err = errors.New("broker down")
	if err := uc.Execute(ctx, "user-1"); err == nil {
		t.Fatal("expected error")
	}

	// The flag must not stay armed, otherwise the user waits out the TTL.
	f.queue.err = nil
	if err := uc.Execute(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if tasks := f.queue.byType(ProcessBatchTaskType); len(tasks) != 1 {
		t.Fatalf("scheduled %d tasks after recovery, want 1", len(tasks))
	}
}

// ---------------------------------------------------------------- enqueue

func TestEnqueueDropsMutedUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := NewEnqueueMessageUseCase(f.states, f.scheduleUC(), slog.Default())

	if err := f.states.Mute(ctx, "user-1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := uc.Execute(ctx, "user-1", textMessage(1, "hello")); err != nil {
		t.Fatal(err)
	}

	msgs, err := f.states.QueuedMessages(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("muted user's message was queued: %v", msgs)
	}
	if tasks := f.queue.byType(ProcessBatchTaskType); len(tasks) != 0 {
		t.Fatal("batch scheduled for muted user")
	}
}

func TestEnqueueQueuesAndSchedules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := NewEnqueueMessageUseCase(f.states, f.scheduleUC(), slog.Default())

	if err := uc.Execute(ctx, "user-1", textMessage(1, "hello")); err != nil {
		t.Fatal(err)
	}
	if err := uc.Execute(ctx, "user-1", textMessage(2, "world")); err != nil {
		t.Fatal(err)
	}

	msgs, err := f.states.QueuedMessages(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("queued %d messages, want 2", len(msgs))
	}
	if tasks := f.queue.byType(ProcessBatchTaskType); len(tasks) != 1 {
		t.Fatalf("scheduled %d batch tasks, want 1", len(tasks))
	}
}

// ---------------------------------------------------------------- batch

func TestProcessBatchAnswersBurstWithOneReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.completions = []llmport.Completion{{Content: "Γεια σου!"}}
	uc := f.processUC()

	for i, text := range []string{"γεια", "θέλω τατουάζ", "πόσο κοστίζει;"} {
		if err := f.states.EnqueueMessage(ctx, "user-1", textMessage(int64(i+1), text)); err != nil {
			t.Fatal(err)
		}
	}

	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}

	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(f.sender.sent))
	}
	if f.sender.sent[0] != "Γεια σου!" {
		t.Fatalf("unexpected reply %q", f.sender.sent[0])
	}

	// The model must have seen the whole burst in order.
	if len(f.llm.chatCalls) != 1 {
		t.Fatalf("chat called %d times, want 1", len(f.llm.chatCalls))
	}
	last := f.llm.chatCalls[0].Messages[len(f.llm.chatCalls[0].Messages)-1]
	want := "γεια\nθέλω τατουάζ\nπόσο κοστίζει;"
	if last.Content != want {
		t.Fatalf("combined message %q, want %q", last.Content, want)
	}

	msgs, err := f.states.QueuedMessages(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatal("queue not cleared after processing")
	}
}

func TestProcessBatchNoopWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.processUC()

	if err := f.states.EnqueueMessage(ctx, "user-1", textMessage(1, "γεια")); err != nil {
		t.Fatal(err)
	}
	if locked, _ := f.states.TryLock(ctx, "user-1"); !locked {
		t.Fatal("could not pre-take lock")
	}

	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("reply sent while another worker held the lock")
	}

	msgs, _ := f.states.QueuedMessages(ctx, "user-1")
	if len(msgs) != 1 {
		t.Fatal("queue touched while another worker held the lock")
	}
}

func TestProcessBatchReleasesLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.processUC()

	if err := f.states.EnqueueMessage(ctx, "user-1", textMessage(1, "γεια")); err != nil {
		t.Fatal(err)
	}
	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}

	locked, err := f.states.TryLock(ctx, "user-1")
	if err != nil || !locked {
		t.Fatalf("lock not released: locked=%v err=%v", locked, err)
	}
}

func TestProcessBatchSkipsMutedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.processUC()

	if err := f.states.EnqueueMessage(ctx, "user-1", textMessage(1, "γεια")); err != nil {
		t.Fatal(err)
	}
	if err := f.states.Mute(ctx, "user-1", time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("reply sent to muted user")
	}
}

func TestProcessBatchEmptyQueueIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.processUC()

	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("reply sent for empty queue")
	}
}

func TestProcessBatchWaitsForPendingImages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.processUC()

	if err := f.states.EnqueueMessage(ctx, "user-1", textMessage(1, "δες αυτό")); err != nil {
		t.Fatal(err)
	}
	if err := f.states.AddPendingImages(ctx, "user-1", 1); err != nil {
		t.Fatal(err)
	}

	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}

	if len(f.sender.sent) != 0 {
		t.Fatal("replied before image analysis settled")
	}
	tasks := f.queue.byType(ProcessBatchTaskType)
	if len(tasks) != 1 {
		t.Fatalf("rescheduled %d tasks, want 1", len(tasks))
	}
	if tasks[0].opt.ProcessIn != f.cfg.Batching.PendingPollWait {
		t.Fatalf("retry delay %v, want %v", tasks[0].opt.ProcessIn, f.cfg.Batching.PendingPollWait)
	}

	// The lock must be free for the retry.
	if locked, _ := f.states.TryLock(ctx, "user-1"); !locked {
		t.Fatal("lock still held after reschedule")
	}
}

func TestProcessBatchProceedsPastAttemptCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.processUC()

	if err := f.states.EnqueueMessage(ctx, "user-1", textMessage(1, "δες αυτό")); err != nil {
		t.Fatal(err)
	}
	if err := f.states.AddPendingImages(ctx, "user-1", 1); err != nil {
		t.Fatal(err)
	}

	maxAttempts := int(f.cfg.Batching.PendingTTL / f.cfg.Batching.PendingPollWait)
	if err := uc.Execute(ctx, "user-1", maxAttempts); err != nil {
		t.Fatal(err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatal("did not proceed once the attempt cap was reached")
	}
}

func TestProcessBatchIncludesImageAnalyses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.processUC()

	m := textMessage(1, "πόσο πάει αυτό;")
	m.HasImage = true
	if err := f.states.EnqueueMessage(ctx, "user-1", m); err != nil {
		t.Fatal(err)
	}
	if err := f.states.AppendAnalysis(ctx, "user-1", "Εικόνα 1: μικρό γραμμικό σχέδιο"); err != nil {
		t.Fatal(err)
	}

	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}

	last := f.llm.chatCalls[0].Messages[len(f.llm.chatCalls[0].Messages)-1].Content
	for _, want := range []string{"πόσο πάει αυτό;", "[Ο χρήστης έστειλε μια φωτογραφία]", "Εικόνα 1: μικρό γραμμικό σχέδιο"} {
		if !strings.Contains(last, want) {
			t.Fatalf("combined message %q missing %q", last, want)
		}
	}

	// Analyses are consumed together with the batch.
	if analyses, _ := f.states.Analyses(ctx, "user-1"); len(analyses) != 0 {
		t.Fatalf("analyses not cleared: %v", analyses)
	}
}

func TestProcessBatchFallsBackOnGenerationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.chatErr = errors.New("model down")
	uc := f.processUC()

	if err := f.states.EnqueueMessage(ctx, "user-1", textMessage(1, "γεια")); err != nil {
		t.Fatal(err)
	}
	if err := uc.Execute(ctx, "user-1", 0); err != nil {
		t.Fatal(err)
	}

	if len(f.sender.sent) != 1 || f.sender.sent[0] != fallbackReply {
		t.Fatalf("expected fallback reply, got %v", f.sender.sent)
	}
}

// ---------------------------------------------------------------- reply

func TestGenerateReplyRunsToolLoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.classifyJSON = `{"intents":[{"primary":"booking_request","confidence":0.95,"subcategory":"available_slots"}]}`
	f.llm.completions = []llmport.Completion{
		{ToolCalls: []llmport.ToolCall{{ID: "c1", Name: "check_calendar_availability", Arguments: `{"start_date":"2026-09-07","end_date":"2026-09-07"}`}}},
		{Content: "Έχουμε διαθεσιμότητα τη Δευτέρα στις 12:00."},
	}
	uc := f.generateUC()

	reply, err := uc.Execute(ctx, "user-1", "έχετε κάτι τη Δευτέρα;", false)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Έχουμε διαθεσιμότητα τη Δευτέρα στις 12:00." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(f.tools.calls) != 1 || f.tools.calls[0] != "check_calendar_availability" {
		t.Fatalf("tool calls %v", f.tools.calls)
	}

	// Tool turns stay out of the persisted context.
	history, err := f.states.History(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, turn := range history {
		if turn.Role == assistant.RoleTool {
			t.Fatal("tool turn persisted to conversation context")
		}
	}
}

func TestGenerateReplyStopsToolLoopAtCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.classifyJSON = `{"intents":[{"primary":"booking_request","confidence":0.9}]}`
	call := llmport.Completion{ToolCalls: []llmport.ToolCall{{ID: "c", Name: "check_calendar_availability", Arguments: `{}`}}}
	f.llm.completions = []llmport.Completion{call, call, {Content: "τελικό"}}
	uc := f.generateUC()

	reply, err := uc.Execute(ctx, "user-1", "ραντεβού", false)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "τελικό" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(f.tools.calls) != 2 {
		t.Fatalf("executed %d tool rounds, want 2", len(f.tools.calls))
	}
}

func TestGenerateReplyPromotesSlotQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.classifyJSON = `{"intents":[` +
		`{"primary":"pricing","confidence":0.9,"subcategory":"new_quote_no_image"},` +
		`{"primary":"booking_request","confidence":0.8,"subcategory":"available_slots","start_date":"15/09/2026","end_date":"20/09/2026"}]}`
	f.llm.completions = []llmport.Completion{{Content: "Έχουμε χώρο την Τρίτη."}}
	uc := f.generateUC()

	if _, err := uc.Execute(ctx, "user-1", "πόσο πάει και πότε έχετε ώρες;", false); err != nil {
		t.Fatal(err)
	}

	// The slot question outranks the pricing intent even though pricing
	// sorts first, and its dates reach the prompt normalized.
	req := f.llm.chatCalls[0]
	if len(req.Tools) == 0 {
		t.Fatal("calendar tools not offered for the slot question")
	}
	if !strings.Contains(req.System, "διαθέσιμες ώρες") {
		t.Fatal("availability instruction missing from system prompt")
	}
	if !strings.Contains(req.System, "2026-09-15") || !strings.Contains(req.System, "2026-09-20") {
		t.Fatalf("dates not normalized in system prompt: %q", req.System)
	}
}

func TestGenerateReplyClassificationFailureStillReplies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.llm.classifyErr = errors.New("classifier down")
	f.llm.completions = []llmport.Completion{{Content: "Γεια!"}}
	uc := f.generateUC()

	reply, err := uc.Execute(ctx, "user-1", "γεια", false)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Γεια!" {
		t.Fatalf("unexpected reply %q", reply)
	}
}

// ---------------------------------------------------------------- vision

func TestAnalyzeImageStoresLabeledAnalysis(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := NewAnalyzeImageUseCase(f.states, f.llm, &fakeDownloader{}, f.cfg, slog.Default())

	if err := f.states.AddPendingImages(ctx, "user-1", 1); err != nil {
		t.Fatal(err)
	}
	if err := uc.Execute(ctx, "user-1", "https://cdn.example/img.jpg", 1); err != nil {
		t.Fatal(err)
	}

	analyses, err := f.states.Analyses(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(analyses) != 1 || analyses[0] != "Εικόνα 1: γραμμικό σχέδιο" {
		t.Fatalf("unexpected analyses %v", analyses)
	}
	if n, _ := f.states.PendingImages(ctx, "user-1"); n != 0 {
		t.Fatalf("pending counter = %d, want 0", n)
	}
}

func TestAnalyzeImageSettlesCounterOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := NewAnalyzeImageUseCase(f.states, f.llm, &fakeDownloader{err: errors.New("cdn gone")}, f.cfg, slog.Default())

	if err := f.states.AddPendingImages(ctx, "user-1", 1); err != nil {
		t.Fatal(err)
	}
	if err := uc.Execute(ctx, "user-1", "https://cdn.example/img.jpg", 1); err != nil {
		t.Fatal(err)
	}

	if n, _ := f.states.PendingImages(ctx, "user-1"); n != 0 {
		t.Fatalf("pending counter = %d, want 0", n)
	}
	if analyses, _ := f.states.Analyses(ctx, "user-1"); len(analyses) != 0 {
		t.Fatalf("analysis stored despite failure: %v", analyses)
	}
}

// ---------------------------------------------------------------- ingest

func TestIngestReactionMutesConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.ingestUC()

	event := assistant.Messaging{
		Sender:    assistant.Principal{ID: f.cfg.Instagram.AdminSenderIDs[0]},
		Recipient: assistant.Principal{ID: "customer-1"},
		Reaction:  &assistant.Reaction{Action: "react", Emoji: f.cfg.Instagram.MuteEmoji},
	}
	if err := uc.Execute(ctx, event); err != nil {
		t.Fatal(err)
	}

	muted, err := f.states.IsMuted(ctx, "customer-1")
	if err != nil || !muted {
		t.Fatalf("conversation not muted: muted=%v err=%v", muted, err)
	}
}

func TestIngestIgnoresCustomerReaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.ingestUC()

	event := assistant.Messaging{
		Sender:    assistant.Principal{ID: "customer-1"},
		Recipient: assistant.Principal{ID: "studio"},
		Reaction:  &assistant.Reaction{Action: "react", Emoji: f.cfg.Instagram.MuteEmoji},
	}
	if err := uc.Execute(ctx, event); err != nil {
		t.Fatal(err)
	}

	if muted, _ := f.states.IsMuted(ctx, "studio"); muted {
		t.Fatal("customer reaction muted the conversation")
	}
}

func TestIngestFansOutImageAnalyses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.ingestUC()

	event := assistant.Messaging{
		Sender:    assistant.Principal{ID: "user-1"},
		Timestamp: 5,
		Message: &assistant.EventMessage{
			Text: "πόσο πάνε αυτά;",
			Attachments: []assistant.Attachment{
				{Type: assistant.AttachmentTypeImage, Payload: assistant.AttachmentPayload{URL: "https://cdn.example/1.jpg"}},
				{Type: assistant.AttachmentTypeImage, Payload: assistant.AttachmentPayload{URL: "https://cdn.example/2.jpg"}},
				{Type: "share", Payload: assistant.AttachmentPayload{URL: "https://cdn.example/post"}},
			},
		},
	}
	if err := uc.Execute(ctx, event); err != nil {
		t.Fatal(err)
	}

	if tasks := f.queue.byType(AnalyzeImageTaskType); len(tasks) != 2 {
		t.Fatalf("queued %d analysis tasks, want 2", len(tasks))
	}
	if n, _ := f.states.PendingImages(ctx, "user-1"); n != 2 {
		t.Fatalf("pending counter = %d, want 2", n)
	}

	msgs, err := f.states.QueuedMessages(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || !msgs[0].HasImage {
		t.Fatalf("unexpected queued messages %v", msgs)
	}
}

func TestIngestSkipsEmptyEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	uc := f.ingestUC()

	event := assistant.Messaging{
		Sender:  assistant.Principal{ID: "user-1"},
		Message: &assistant.EventMessage{},
	}
	if err := uc.Execute(ctx, event); err != nil {
		t.Fatal(err)
	}
	if msgs, _ := f.states.QueuedMessages(ctx, "user-1"); len(msgs) != 0 {
		t.Fatal("empty event was queued")
	}
}

func (f *fixture) ingestUC() *IngestEventUseCase {
	enqueue := NewEnqueueMessageUseCase(f.states, f.scheduleUC(), slog.Default())
	mute := NewMuteUserUseCase(f.states, f.cfg, slog.Default())
	return NewIngestEventUseCase(enqueue, mute, f.queue, f.states, f.cfg, slog.Default())
}

