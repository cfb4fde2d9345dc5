package research

import (
	"context"
	"fmt"
)

// ProviderKind selects which backing strategy a provider client implements.
type ProviderKind string

const (
	// KindResponses drives background research tasks on the Responses API.
	KindResponses ProviderKind = "responses"
	// KindChat answers synchronously through the chat completions API.
	KindChat ProviderKind = "chat"
	// KindManual makes no remote calls; callers research on their own and
	// submit the report back through get_result.
	KindManual ProviderKind = "manual"
)

// ParseProviderKind validates a configured provider name.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch ProviderKind(s) {
	case KindResponses, KindChat, KindManual:
		return ProviderKind(s), nil
	default:
		return "", fmt.Errorf("unknown provider kind %q (want responses, chat, or manual)", s)
	}
}

// TaskRequest carries the arguments for creating one research task.
type TaskRequest struct {
	// SessionID is the locally generated session id, set before the call for
	// kinds that do not receive a provider-issued handle.
	SessionID          string
	Query              string
	Model              string
	MaxToolCalls       int
	MaxTokens          int
	MaxSources         int
	UseCodeInterpreter bool
}

// Task is a provider response already normalized into the flat shape the
// registry stores. Raw provider payloads never cross this boundary.
type Task struct {
	Handle       string
	Status       Status
	Report       string
	Citations    []Citation
	Steps        []Step
	Err          string
	ErrDetails   string
	Instructions string
}

// Provider is the client the service calls out to. Implementations must be
// safe for concurrent use.
type Provider interface {
	Kind() ProviderKind

	// CreateTask starts one research task. For KindChat the call is
	// synchronous and the returned task is already terminal.
	CreateTask(ctx context.Context, req TaskRequest) (*Task, error)

	// FetchTask re-polls a previously created task by its provider handle.
	FetchTask(ctx context.Context, handle string) (*Task, error)

	// ListModels returns the model ids visible to the configured credential.
	// Kinds without a remote endpoint return errors.ErrUnsupported.
	ListModels(ctx context.Context) ([]string, error)
}
