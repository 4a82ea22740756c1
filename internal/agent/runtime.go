package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"coachspine/internal/apperr"
	"coachspine/internal/domain"
	"coachspine/internal/telemetry"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var toolCallCounter = func() metric.Int64Counter {
	c, _ := telemetry.Meter().Int64Counter("agent.tool_call_count")
	return c
}()

// State is one point in the per-turn state machine: every non-terminal
// state has an exit path into Finalizing, so a failure anywhere mid-turn
// still reaches Persisted or Aborted rather than leaking an incomplete
// transaction.
type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateStreaming     State = "streaming"
	StateToolDispatch  State = "tool_dispatch"
	StateToolAwaiting  State = "tool_awaiting"
	StateFinalizing    State = "finalizing"
	StatePersisted     State = "persisted"
	StateAborted       State = "aborted"
)

// defaultHistoryMessages bounds how many prior turns are replayed into
// the model — enough to cover roughly 8k input tokens of context.
const defaultHistoryMessages = 20

// defaultMaxTokens bounds one assistant turn's output.
const defaultMaxTokens = 4096

// ToolCallRecord mirrors domain.ToolCallRecord for the runtime's own
// accounting before a turn is persisted via internal/chat.
type ToolCallRecord = domain.ToolCallRecord

// TurnResult is everything internal/chat needs to persist one assistant
// turn: the aggregated text, the tool-call log, and the terminal state
// the turn actually reached.
type TurnResult struct {
	State     State
	Text      string
	ToolCalls []ToolCallRecord
}

// TextDeltaFunc receives streamed text chunks as they arrive; the
// runtime never writes to the database per chunk,
// it only forwards bytes to whatever transport (SSE, chunked HTTP) the
// caller is driving.
type TextDeltaFunc func(delta string)

// Runtime drives the tool-calling loop against an Anthropic backend.
// Model portability means only this file talks to the SDK
// directly; everything else in the package is backend-agnostic.
type Runtime struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	toolTimeout  time.Duration
	historyLimit int
	registry     *Registry
}

func NewRuntime(apiKey, model string, registry *Registry, toolTimeout time.Duration) *Runtime {
	return &Runtime{
		client:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:        model,
		maxTokens:    defaultMaxTokens,
		toolTimeout:  toolTimeout,
		historyLimit: defaultHistoryMessages,
		registry:     registry,
	}
}

// RunTurn executes one full user turn: load history, call the model,
// dispatch any tool calls the model requests, and loop until the model
// reaches an end-of-turn stop reason. onDelta is invoked for every text
// fragment as it streams; the caller is responsible for forwarding it
// to the client transport.
func (r *Runtime) RunTurn(ctx context.Context, rc *RunContext, history []domain.ChatMessage, userMessage string, onDelta TextDeltaFunc) (result TurnResult) {
	ctx, span := telemetry.Tracer().Start(ctx, "agent.run_turn")
	defer func() {
		span.SetAttributes(
			attribute.String("agent.turn_state", string(result.State)),
			attribute.Int("agent.tool_call_count", len(result.ToolCalls)),
		)
		if result.State == StateAborted {
			span.SetStatus(codes.Error, "turn aborted")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	messages := r.buildHistory(history)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	tools := r.toolParams()

	var toolCalls []ToolCallRecord
	var finalText string

	for {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(r.model),
			MaxTokens: r.maxTokens,
			System:    []anthropic.TextBlockParam{{Text: SystemPrompt}},
			Messages:  messages,
			Tools:     tools,
		}

		response, text, err := r.streamOnce(ctx, params, onDelta)
		if err != nil {
			return TurnResult{State: StateAborted, Text: finalText, ToolCalls: toolCalls}
		}
		finalText += text

		messages = append(messages, response.ToParam())

		toolUseBlocks := extractToolUse(response)
		if len(toolUseBlocks) == 0 {
			return TurnResult{State: StatePersisted, Text: finalText, ToolCalls: toolCalls}
		}

		records, blocks := r.dispatchTools(ctx, rc, toolUseBlocks)
		toolCalls = append(toolCalls, records...)
		messages = append(messages, anthropic.NewUserMessage(blocks...))
	}
}

// streamOnce issues one model call and accumulates the stream into a
// final Message, forwarding text deltas as they arrive.
func (r *Runtime) streamOnce(ctx context.Context, params anthropic.MessageNewParams, onDelta TextDeltaFunc) (*anthropic.Message, string, error) {
	stream := r.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var message anthropic.Message
	var text string

	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			continue
		}

		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if textDelta, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
				text += textDelta.Text
				if onDelta != nil {
					onDelta(textDelta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, text, apperr.WrapModel(err, "streaming response from model")
	}
	return &message, text, nil
}

// dispatchTools launches every tool-use block the model requested in
// this step concurrently and awaits all of them. Each call opens its own short-
// lived work against the shared connection pool, so no tool blocks
// another. Results are fed back to the model in the order requested,
// regardless of completion order.
func (r *Runtime) dispatchTools(ctx context.Context, rc *RunContext, toolUseBlocks []anthropic.ToolUseBlock) ([]ToolCallRecord, []anthropic.ContentBlockParamUnion) {
	records := make([]ToolCallRecord, len(toolUseBlocks))
	blocks := make([]anthropic.ContentBlockParamUnion, len(toolUseBlocks))

	if len(toolUseBlocks) == 1 {
		records[0], blocks[0] = r.dispatchTool(ctx, rc, toolUseBlocks[0])
		return records, blocks
	}

	var wg sync.WaitGroup
	wg.Add(len(toolUseBlocks))
	for i, tu := range toolUseBlocks {
		go func(i int, tu anthropic.ToolUseBlock) {
			defer wg.Done()
			records[i], blocks[i] = r.dispatchTool(ctx, rc, tu)
		}(i, tu)
	}
	wg.Wait()
	return records, blocks
}

// dispatchTool invokes one tool-use block against the registry, under
// the per-tool deadline, and
// returns both the bookkeeping record and the tool-result content block
// to feed back to the model. A tool error or timeout is inserted as the
// tool result rather than aborting the turn, so the model can recover.
func (r *Runtime) dispatchTool(ctx context.Context, rc *RunContext, tu anthropic.ToolUseBlock) (ToolCallRecord, anthropic.ContentBlockParamUnion) {
	ctx, span := telemetry.Tracer().Start(ctx, "agent.tool_call",
		trace.WithAttributes(attribute.String("tool.name", tu.Name)))
	defer span.End()

	toolCtx, cancel := context.WithTimeout(ctx, r.toolTimeout)
	defer cancel()

	argsJSON, _ := json.Marshal(tu.Input)
	result, err := r.registry.Invoke(toolCtx, rc, tu.Name, argsJSON)

	record := ToolCallRecord{ToolName: tu.Name, Arguments: rawArgs(tu.Input)}

	if toolCallCounter != nil {
		toolCallCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool.name", tu.Name),
			attribute.Bool("tool.error", err != nil),
		))
	}

	if err != nil {
		msg := errorToolMessage(toolCtx, err)
		record.ResultDigest = msg
		span.SetStatus(codes.Error, msg)
		return record, anthropic.NewToolResultBlock(tu.ID, msg, true)
	}

	out, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		msg := "tool result could not be serialized"
		record.ResultDigest = msg
		span.SetStatus(codes.Error, msg)
		return record, anthropic.NewToolResultBlock(tu.ID, msg, true)
	}
	record.ResultDigest = digest(out)
	span.SetStatus(codes.Ok, "")
	return record, anthropic.NewToolResultBlock(tu.ID, string(out), false)
}

// errorToolMessage truncates a tool error to a safe length and flags a
// context-deadline error distinctly, so the model receives a structured
// timeout rather than a transport stack trace.
func errorToolMessage(ctx context.Context, err error) string {
	if ctx.Err() == context.DeadlineExceeded {
		return "tool call timed out"
	}
	msg := err.Error()
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "...(truncated)"
	}
	return msg
}

func rawArgs(input any) json.RawMessage {
	b, err := json.Marshal(input)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// digest keeps the persisted tool-call log bounded in size; the full
// structured result is available to the model in-stream, but the
// ChatMessage row only needs enough to audit what happened.
func digest(result json.RawMessage) string {
	const maxLen = 300
	if len(result) > maxLen {
		return string(result[:maxLen]) + "...(truncated)"
	}
	return string(result)
}

func extractToolUse(msg *anthropic.Message) []anthropic.ToolUseBlock {
	var out []anthropic.ToolUseBlock
	for _, block := range msg.Content {
		if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			out = append(out, tu)
		}
	}
	return out
}

// buildHistory converts the last historyLimit persisted ChatMessage
// rows into model messages. Tool-call detail is not replayed — only the
// aggregated per-turn text — since the persisted schema stores one row
// per turn rather than one row per content block.
func (r *Runtime) buildHistory(history []domain.ChatMessage) []anthropic.MessageParam {
	start := 0
	if len(history) > r.historyLimit {
		start = len(history) - r.historyLimit
	}
	trimmed := history[start:]

	out := make([]anthropic.MessageParam, 0, len(trimmed))
	for _, m := range trimmed {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case domain.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// toolParams builds the model-facing tool schema list from the
// registry's local tools plus every MCP-namespaced tracker tool schema
// the registry has cached (populated separately, see
// Registry.DiscoverTrackerTools).
func (r *Runtime) toolParams() []anthropic.ToolUnionParam {
	tools := r.registry.Tools()
	out := make([]anthropic.ToolUnionParam, 0, len(tools)+len(r.registry.TrackerTools()))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name(),
				Description: anthropic.String(t.Description()),
				InputSchema: toInputSchema(t.InputSchema()),
			},
		})
	}
	for _, t := range r.registry.TrackerTools() {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: toInputSchema(t.InputSchema),
			},
		})
	}
	return out
}

func toInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	properties, _ := schema["properties"]
	return anthropic.ToolInputSchemaParam{
		Properties: properties,
	}
}
