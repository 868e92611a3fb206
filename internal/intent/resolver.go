package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/sui-agent/internal/api/openai"
	"github.com/tjfontaine/sui-agent/internal/domain"
	"github.com/tjfontaine/sui-agent/internal/tokens"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const defaultClarification = "Could you tell me a bit more about what you would like to do?"

// Completer is the part of the OpenAI client the resolver needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(r *Resolver) {
		if model != "" {
			r.model = model
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTokenLimit rejects messages longer than max tokens before any request
// is made. A max of zero disables the check.
func WithTokenLimit(counter tokens.Counter, max int) Option {
	return func(r *Resolver) {
		r.counter = counter
		r.maxTokens = max
	}
}

// Resolver resolves messages into typed intents. It holds no per-request
// state and is safe for concurrent use.
type Resolver struct {
	completer Completer
	registry  *Registry
	model     string
	counter   tokens.Counter
	maxTokens int
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewResolver creates a resolver backed by completer.
func NewResolver(completer Completer, registry *Registry, opts ...Option) *Resolver {
	r := &Resolver{
		completer: completer,
		registry:  registry,
		model:     DefaultModel,
		logger:    slog.Default(),
		tracer:    otel.Tracer("github.com/tjfontaine/sui-agent/internal/intent"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve asks the model to pick an action for message. It never returns an
// error: failures come back as an unknown intent that asks the user to
// rephrase, and a missing selection comes back as an ambiguous intent.
func (r *Resolver) Resolve(ctx context.Context, message string, userContext map[string]any) domain.ResolvedIntent {
	ctx, span := r.tracer.Start(ctx, "intent.Resolve",
		trace.WithAttributes(attribute.Int("message.length", len(message))))
	defer span.End()

	result, err := r.resolve(ctx, message, userContext)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("intent resolution failed",
			slog.Int("message_length", len(message)),
			slog.String("error", err.Error()),
		)
		return domain.Unresolved(
			fmt.Sprintf("I encountered an error: %s. Could you rephrase your request?", err),
			"resolution failed: "+err.Error(),
		)
	}

	span.SetAttributes(
		attribute.String("intent.action", result.Action.String()),
		attribute.Bool("intent.needs_clarification", result.NeedsClarification),
	)
	r.logger.Info("intent resolved",
		slog.String("action", result.Action.String()),
		slog.Int("message_length", len(message)),
	)
	return result
}

func (r *Resolver) resolve(ctx context.Context, message string, userContext map[string]any) (domain.ResolvedIntent, error) {
	content, err := userContent(message, userContext)
	if err != nil {
		return domain.ResolvedIntent{}, err
	}

	if r.counter != nil && r.maxTokens > 0 {
		n, err := r.counter.CountText(r.model, content)
		if err == nil && n > r.maxTokens {
			return domain.ResolvedIntent{}, fmt.Errorf("message is too long (%d tokens, limit %d)", n, r.maxTokens)
		}
	}

	parallel := false
	resp, err := r.completer.CreateChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Tools:             r.registry.Tools(),
		ToolChoice:        "auto",
		ParallelToolCalls: &parallel,
	})
	if err != nil {
		return domain.ResolvedIntent{}, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return domain.ResolvedIntent{}, errors.New("no choices in model response")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonToolCalls && len(choice.Message.ToolCalls) > 0 {
		return r.fromToolCall(choice.Message.ToolCalls[0].Function)
	}

	prompt := strings.TrimSpace(choice.Message.Content)
	if prompt == "" {
		prompt = defaultClarification
	}
	return domain.Ambiguous(prompt, "intent unclear, requesting clarification"), nil
}

func userContent(message string, userContext map[string]any) (string, error) {
	if len(userContext) == 0 {
		return message, nil
	}
	b, err := json.Marshal(userContext)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return message + "\n\nContext: " + string(b), nil
}

// fromToolCall converts the model's selection into the typed parameter
// union. This is the only place free-form model output crosses into typed
// values.
func (r *Resolver) fromToolCall(call openai.FunctionCall) (domain.ResolvedIntent, error) {
	action := ActionForTool(call.Name)
	if action == domain.ActionUnknown {
		// Reported as unresolved with zero confidence, not as a confident unknown.
		return domain.ResolvedIntent{}, fmt.Errorf("model selected unsupported tool %q", call.Name)
	}

	raw := []byte(call.Arguments)
	if len(strings.TrimSpace(call.Arguments)) == 0 {
		raw = []byte("{}")
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return domain.ResolvedIntent{}, fmt.Errorf("malformed arguments for %s: %w", call.Name, err)
	}

	if action == domain.ActionTransfer {
		if missing := missingTransferFields(args); len(missing) > 0 {
			return domain.Ambiguous(
				"To make this transfer I still need the "+joinFields(missing)+". Could you provide it?",
				"transfer is missing "+strings.Join(missing, ", "),
			), nil
		}
	}

	if err := r.registry.Validate(call.Name, args); err != nil {
		return domain.ResolvedIntent{}, err
	}

	params, err := decodeParams(action, raw)
	if err != nil {
		return domain.ResolvedIntent{}, fmt.Errorf("decode arguments for %s: %w", call.Name, err)
	}

	return domain.ResolvedIntent{
		Action:     action,
		Confidence: domain.ConfidenceSelected,
		Parameters: params,
		Rationale:  "selected " + call.Name,
	}, nil
}

// missingTransferFields lists the user-facing fields a transfer lacks.
// is_contact_name is derived from the recipient so its absence is reported
// as a missing recipient.
func missingTransferFields(args map[string]any) []string {
	var missing []string
	if !hasString(args, "amount") {
		missing = append(missing, "amount")
	}
	if !hasString(args, "recipient") {
		missing = append(missing, "recipient")
	} else if _, ok := args["is_contact_name"].(bool); !ok {
		missing = append(missing, "recipient")
	}
	if !hasString(args, "token") {
		missing = append(missing, "token")
	}
	return missing
}

func hasString(args map[string]any, key string) bool {
	s, ok := args[key].(string)
	return ok && strings.TrimSpace(s) != ""
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
	}
}

func decodeParams(action domain.ActionKind, raw []byte) (domain.Parameters, error) {
	switch action {
	case domain.ActionTransfer:
		var p domain.TransferParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		p.Recipient = strings.TrimSpace(p.Recipient)
		p.Amount = strings.TrimSpace(p.Amount)
		p.RecipientIsContactName = !domain.IsAddress(p.Recipient)
		return p, nil
	case domain.ActionResolveContact:
		return decode[domain.ResolveContactParams](raw)
	case domain.ActionGetBalance:
		return decode[domain.BalanceParams](raw)
	case domain.ActionStake:
		return decode[domain.StakeParams](raw)
	case domain.ActionUnstake:
		return decode[domain.UnstakeParams](raw)
	case domain.ActionGetStakeInfo:
		return decode[domain.StakeInfoParams](raw)
	case domain.ActionCreateAddressBook:
		return domain.CreateAddressBookParams{}, nil
	case domain.ActionSaveContact:
		var p domain.SaveContactParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		p.Key = domain.NormalizeContactKey(p.Key)
		return p, nil
	case domain.ActionListContacts:
		return domain.ListContactsParams{}, nil
	default:
		return nil, fmt.Errorf("no parameters for action %s", action)
	}
}

func decode[T domain.Parameters](raw []byte) (domain.Parameters, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}
