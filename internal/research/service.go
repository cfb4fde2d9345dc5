package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kateleext/openai-deep-research-mcp/internal/session"
)

// Default request parameters, shared with the configuration layer.
const (
	DefaultResponsesModel = "o4-mini-deep-research"
	DefaultChatModel      = "gpt-4-turbo"
	DefaultApproach       = "comprehensive"
	DefaultMaxToolCalls   = 50
	DefaultMaxTokens      = 4000
	DefaultMaxSources     = 5
)

const (
	chatCompletedMessage = "Research completed using chat completions"
	notFoundMessage      = "Research session not found"
	manualPendingReport  = "Research in progress - complete it externally and submit findings via the report argument"
	manualReminder       = "Research this query with your own tooling, then call get_result with the report argument"
)

// researchModelCap bounds the model ids reported by test_connection.
const researchModelCap = 5

// Defaults are the fallback request parameters applied when a caller omits
// an argument.
type Defaults struct {
	ResponsesModel string
	ChatModel      string
	Approach       string
	MaxToolCalls   int
	MaxTokens      int
	MaxSources     int
}

// StandardDefaults returns the built-in defaults.
func StandardDefaults() Defaults {
	return Defaults{
		ResponsesModel: DefaultResponsesModel,
		ChatModel:      DefaultChatModel,
		Approach:       DefaultApproach,
		MaxToolCalls:   DefaultMaxToolCalls,
		MaxTokens:      DefaultMaxTokens,
		MaxSources:     DefaultMaxSources,
	}
}

// Service implements the four research operations on top of a Registry and a
// Provider. Every operation returns a structured result and never panics or
// propagates an error past its own boundary.
type Service struct {
	reg      *Registry
	provider Provider
	audit    session.Logger
	logger   *slog.Logger
	defaults Defaults

	keyConfigured bool
	keyFormat     string

	now   func() time.Time
	newID func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditLogger sets the audit event sink.
func WithAuditLogger(l session.Logger) ServiceOption {
	return func(s *Service) { s.audit = l }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithDefaults replaces the built-in request defaults.
func WithDefaults(d Defaults) ServiceOption {
	return func(s *Service) { s.defaults = d }
}

// WithCredential records whether an API credential is configured and its
// redacted fingerprint, for test_connection reporting.
func WithCredential(configured bool, format string) ServiceOption {
	return func(s *Service) {
		s.keyConfigured = configured
		s.keyFormat = format
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the local session id generator.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// NewService wires a Service from its registry and provider.
func NewService(reg *Registry, provider Provider, opts ...ServiceOption) *Service {
	s := &Service{
		reg:      reg,
		provider: provider,
		audit:    session.NopLogger{},
		logger:   slog.Default(),
		defaults: StandardDefaults(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- start_research ---

// StartParams are the arguments of start_research.
type StartParams struct {
	Query              string
	Model              string
	MaxToolCalls       int
	MaxSources         int
	MaxTokens          int
	UseCodeInterpreter bool
}

// StartResult is the response of start_research.
type StartResult struct {
	ID           string `json:"id"`
	Status       Status `json:"status"`
	Message      string `json:"message,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	NextStep     string `json:"next_step,omitempty"`
	Err          string `json:"error,omitempty"`
}

// Kind reports which provider variant backs this service.
func (s *Service) Kind() ProviderKind {
	return s.provider.Kind()
}

// StartResearch creates a session and, for provider-backed kinds, one
// research task. A session id comes back even when the provider call fails,
// so the caller has a handle to inspect the failure.
func (s *Service) StartResearch(ctx context.Context, p StartParams) StartResult {
	req := s.taskRequest(p)

	switch s.provider.Kind() {
	case KindManual:
		return s.startManual(ctx, req)
	case KindChat:
		return s.startChat(ctx, req)
	default:
		return s.startResponses(ctx, req)
	}
}

func (s *Service) taskRequest(p StartParams) TaskRequest {
	req := TaskRequest{
		Query:              p.Query,
		Model:              p.Model,
		MaxToolCalls:       p.MaxToolCalls,
		MaxTokens:          p.MaxTokens,
		MaxSources:         p.MaxSources,
		UseCodeInterpreter: p.UseCodeInterpreter,
	}
	if req.Model == "" {
		switch s.provider.Kind() {
		case KindManual:
			req.Model = s.defaults.Approach
		case KindChat:
			req.Model = s.defaults.ChatModel
		default:
			req.Model = s.defaults.ResponsesModel
		}
	}
	if req.MaxToolCalls <= 0 {
		req.MaxToolCalls = s.defaults.MaxToolCalls
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = s.defaults.MaxTokens
	}
	if req.MaxSources <= 0 {
		req.MaxSources = s.defaults.MaxSources
	}
	return req
}

func (s *Service) startResponses(ctx context.Context, req TaskRequest) StartResult {
	task, err := s.provider.CreateTask(ctx, req)
	if err != nil {
		return s.recordStartFailure(s.newID(), req, err)
	}
	if task.Handle == "" {
		s.logger.Warn("provider returned a task without an id")
		return s.recordStartFailure(s.newID(), req, errNoHandle)
	}

	rec := &SessionRecord{
		ID:             task.Handle,
		Query:          req.Query,
		Model:          req.Model,
		Status:         task.Status,
		StartedAt:      s.now(),
		ProviderHandle: task.Handle,
	}
	if err := s.reg.Create(rec); err != nil {
		s.logger.Warn("registering session", "id", rec.ID, "error", err)
		return StartResult{ID: rec.ID, Status: StatusFailed, Err: err.Error()}
	}

	s.auditLog(session.EventResearchStarted,
		session.ResearchStartedData(rec.ID, rec.Query, rec.Model, string(rec.Status)))
	s.logger.Debug("research started", "id", rec.ID, "model", rec.Model, "status", rec.Status)

	return StartResult{ID: rec.ID, Status: rec.Status}
}

func (s *Service) startChat(ctx context.Context, req TaskRequest) StartResult {
	id := s.newID()
	req.SessionID = id

	task, err := s.provider.CreateTask(ctx, req)
	if err != nil {
		return s.recordStartFailure(id, req, err)
	}

	now := s.now()
	rec := &SessionRecord{
		ID:        id,
		Query:     req.Query,
		Model:     req.Model,
		Status:    StatusPending,
		StartedAt: now,
	}
	applyTask(rec, task, now)
	if err := s.reg.Create(rec); err != nil {
		s.logger.Warn("registering session", "id", id, "error", err)
		return StartResult{ID: id, Status: StatusFailed, Err: err.Error()}
	}

	s.auditLog(session.EventResearchStarted,
		session.ResearchStartedData(id, req.Query, req.Model, string(rec.Status)))

	res := StartResult{ID: id, Status: rec.Status}
	switch rec.Status {
	case StatusCompleted:
		res.Message = chatCompletedMessage
		s.auditLog(session.EventResearchCompleted,
			session.ResearchCompletedData(id, len(rec.Citations), len(rec.Report), 0))
	case StatusFailed:
		res.Err = rec.Err
		s.auditLog(session.EventResearchFailed, session.ResearchFailedData(id, rec.Err))
	}
	return res
}

func (s *Service) startManual(ctx context.Context, req TaskRequest) StartResult {
	id := s.newID()
	req.SessionID = id

	task, err := s.provider.CreateTask(ctx, req)
	if err != nil {
		return s.recordStartFailure(id, req, err)
	}

	rec := &SessionRecord{
		ID:           id,
		Query:        req.Query,
		Model:        req.Model,
		Status:       StatusManualRequired,
		StartedAt:    s.now(),
		Instructions: task.Instructions,
		MaxSources:   req.MaxSources,
	}
	if err := s.reg.Create(rec); err != nil {
		s.logger.Warn("registering session", "id", id, "error", err)
		return StartResult{ID: id, Status: StatusFailed, Err: err.Error()}
	}

	s.auditLog(session.EventResearchStarted,
		session.ResearchStartedData(id, req.Query, req.Model, string(StatusManualRequired)))

	return StartResult{
		ID:           id,
		Status:       StatusManualRequired,
		Instructions: task.Instructions,
		NextStep:     fmt.Sprintf("Research externally, then call get_result('%s') with your findings as the report", id),
	}
}

// recordStartFailure registers a failed session so the id stays inspectable.
func (s *Service) recordStartFailure(id string, req TaskRequest, err error) StartResult {
	rec := &SessionRecord{
		ID:        id,
		Query:     req.Query,
		Model:     req.Model,
		Status:    StatusFailed,
		StartedAt: s.now(),
		Err:       err.Error(),
	}
	if cerr := s.reg.Create(rec); cerr != nil {
		s.logger.Warn("registering failed session", "id", id, "error", cerr)
	}
	s.auditLog(session.EventResearchFailed, session.ResearchFailedData(id, err.Error()))
	s.logger.Debug("research start failed", "id", id, "error", err)
	return StartResult{ID: id, Status: StatusFailed, Err: err.Error()}
}

// --- get_result ---

// ResultView is the response of get_result.
type ResultView struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Query        string     `json:"query,omitempty"`
	Model        string     `json:"model,omitempty"`
	Report       string     `json:"report,omitempty"`
	Citations    []Citation `json:"citations,omitempty"`
	Steps        []Step     `json:"steps,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Err          string     `json:"error,omitempty"`
	ErrDetails   string     `json:"error_details,omitempty"`
}

// GetResult returns the current state of a session. Provider-backed sessions
// that are not yet terminal are re-polled and normalized; manual sessions
// accept an optional report that completes them. Unknown ids come back as
// status not_found, never as an error.
func (s *Service) GetResult(ctx context.Context, id, report string) ResultView {
	rec, ok := s.reg.Get(id)
	if !ok {
		return ResultView{ID: id, Status: StatusNotFound, Err: notFoundMessage}
	}

	if s.provider.Kind() == KindManual {
		return s.manualResult(rec, report)
	}

	// Terminal records are served from the registry; repeated calls return
	// identical report and citations without another provider round trip.
	if rec.Status.Terminal() {
		s.auditLog(session.EventResultFetched, session.ResultFetchedData(id, string(rec.Status)))
		return viewFromRecord(rec)
	}

	task, err := s.provider.FetchTask(ctx, rec.ProviderHandle)
	if err != nil {
		// The stored record keeps its last known status; a transient fetch
		// failure must not regress it.
		s.logger.Warn("fetching task", "id", id, "error", err)
		return ResultView{ID: id, Status: StatusError, Err: err.Error()}
	}

	s.reg.Update(id, func(r *SessionRecord) {
		applyTask(r, task, s.now())
	})
	rec, _ = s.reg.Get(id)

	s.auditLog(session.EventResultFetched, session.ResultFetchedData(id, string(rec.Status)))
	switch rec.Status {
	case StatusCompleted:
		s.auditLog(session.EventResearchCompleted, session.ResearchCompletedData(
			id, len(rec.Citations), len(rec.Report), s.now().Sub(rec.StartedAt).Milliseconds()))
	case StatusFailed:
		s.auditLog(session.EventResearchFailed, session.ResearchFailedData(id, rec.Err))
	}

	attrs := []any{"id", id, "status", rec.Status}
	attrs = addIf(attrs, "error", rec.Err)
	attrs = addIfN(attrs, "citations", len(rec.Citations))
	attrs = addIfN(attrs, "report_chars", len(rec.Report))
	s.logger.Debug("task polled", attrs...)

	return viewFromRecord(rec)
}

func (s *Service) manualResult(rec SessionRecord, report string) ResultView {
	if report != "" && rec.Status != StatusCompleted {
		s.reg.Update(rec.ID, func(r *SessionRecord) {
			r.Report = report
			r.Status = StatusCompleted
			if r.CompletedAt == nil {
				ts := s.now()
				r.CompletedAt = &ts
			}
		})
		rec, _ = s.reg.Get(rec.ID)
		s.auditLog(session.EventResearchCompleted, session.ResearchCompletedData(
			rec.ID, 0, len(rec.Report), s.now().Sub(rec.StartedAt).Milliseconds()))
	}

	view := viewFromRecord(rec)
	if view.Report == "" {
		view.Report = manualPendingReport
	}
	view.Instructions = manualReminder
	return view
}

// viewFromRecord projects a record into the get_result response shape.
func viewFromRecord(rec SessionRecord) ResultView {
	started := rec.StartedAt
	v := ResultView{
		ID:          rec.ID,
		Status:      rec.Status,
		Query:       rec.Query,
		Model:       rec.Model,
		StartedAt:   &started,
		CompletedAt: rec.CompletedAt,
	}
	switch rec.Status {
	case StatusCompleted:
		v.Report = rec.Report
		v.Citations = rec.Citations
		v.Steps = rec.Steps
	case StatusFailed, StatusError:
		v.Err = rec.Err
		v.ErrDetails = rec.ErrDetails
	}
	return v
}

// applyTask overwrites a record's provider-derived fields from a normalized
// task. Terminal records never regress, and CompletedAt is set exactly once.
func applyTask(rec *SessionRecord, task *Task, now time.Time) {
	if rec.Status.Terminal() {
		return
	}
	rec.Status = task.Status
	rec.Report = task.Report
	rec.Citations = task.Citations
	rec.Steps = task.Steps
	rec.Err = task.Err
	rec.ErrDetails = task.ErrDetails
	if task.Status == StatusCompleted && rec.CompletedAt == nil {
		ts := now
		rec.CompletedAt = &ts
	}
}

// --- list_sessions ---

// SessionsResult is the response of list_sessions.
type SessionsResult struct {
	Sessions []Summary `json:"sessions"`
}

// ListSessions returns all session summaries in creation order.
func (s *Service) ListSessions() SessionsResult {
	return SessionsResult{Sessions: s.reg.List()}
}

// --- test_connection ---

// ConnectionResult is the response of test_connection.
type ConnectionResult struct {
	APIKeyConfigured   bool     `json:"api_key_configured"`
	APIKeyFormat       string   `json:"api_key_format"`
	Connection         string   `json:"connection"`
	ModelCount         int      `json:"model_count,omitempty"`
	DeepResearchModels []string `json:"deep_research_models,omitempty"`
	Err                string   `json:"error,omitempty"`
}

// TestConnection probes the provider's model listing endpoint. Network
// failure is reported as data, never as an error.
func (s *Service) TestConnection(ctx context.Context) ConnectionResult {
	res := ConnectionResult{
		APIKeyConfigured: s.keyConfigured,
		APIKeyFormat:     s.keyFormat,
	}

	ids, err := s.provider.ListModels(ctx)
	if err != nil {
		res.Connection = "failed"
		res.Err = err.Error()
		s.auditLog(session.EventConnectionTested, session.ConnectionTestedData(res.Connection, 0))
		return res
	}

	res.Connection = "working"
	res.ModelCount = len(ids)
	res.DeepResearchModels = filterResearchModels(ids)
	s.auditLog(session.EventConnectionTested, session.ConnectionTestedData(res.Connection, res.ModelCount))
	return res
}

// filterResearchModels keeps ids that look like research-capable models.
func filterResearchModels(ids []string) []string {
	var out []string
	for _, id := range ids {
		if strings.Contains(id, "deep-research") || strings.Contains(id, "o3") || strings.Contains(id, "o4") {
			out = append(out, id)
			if len(out) == researchModelCap {
				break
			}
		}
	}
	return out
}

// --- helpers ---

var errNoHandle = errors.New("provider returned no task id")

func (s *Service) auditLog(t session.EventType, data map[string]any) {
	if err := s.audit.Log(session.NewEvent(t, data)); err != nil {
		s.logger.Debug("writing audit event", "type", t, "error", err)
	}
}

// addIf appends a log attribute only when the value is present.
func addIf(attrs []any, name, v string) []any {
	if v != "" {
		attrs = append(attrs, name, v)
	}
	return attrs
}

func addIfN(attrs []any, name string, n int) []any {
	if n != 0 {
		attrs = append(attrs, name, n)
	}
	return attrs
}
