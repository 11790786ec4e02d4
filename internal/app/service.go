package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"faqpage/internal/auth"
	"faqpage/internal/config"
	"faqpage/internal/document"
	"faqpage/internal/handle"
	"faqpage/internal/page"
	"faqpage/internal/store"
	"faqpage/internal/theme"
	"faqpage/internal/util"
)

const (
	DefaultQuestionText = "New Question"

	minQuestionRunes = 3
	maxQuestionRunes = 100
	minNameRunes     = 1
	maxNameRunes     = 32
)

// Caller is the authenticated identity every call acts for.
type Caller struct {
	UserID string
}

type Settings struct {
	Handle      string `json:"handle"`
	URL         string `json:"url,omitempty"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	IsBoxed     bool   `json:"isBoxed"`
	IsNumbered  bool   `json:"isNumbered"`
	Theme       int    `json:"theme"`
}

type SettingsInput struct {
	IsBoxed    bool `json:"isBoxed"`
	IsNumbered bool `json:"isNumbered"`
	Theme      int  `json:"theme"`
}

type QuestionSummary struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type QuestionDetail struct {
	ID     string          `json:"id"`
	Index  int             `json:"index"`
	Text   string          `json:"text"`
	Answer json.RawMessage `json:"answer"`
}

type UpdateQuestionInput struct {
	Text   string          `json:"text"`
	Answer json.RawMessage `json:"answer"`
}

type dataStore interface {
	Ping(context.Context) error
	EnsureUser(context.Context, store.User) (store.User, error)
	GetUser(context.Context, string) (store.User, error)
	UpdateSettings(context.Context, string, store.Settings) (string, error)
	UpdateDisplayName(context.Context, string, string) (string, error)
	ClaimHandle(context.Context, string, string) (string, error)
	ListQuestions(context.Context, string) ([]store.Question, error)
	GetQuestion(context.Context, string, string) (store.Question, error)
	AddQuestion(context.Context, store.Question) (store.Question, string, error)
	UpdateQuestion(context.Context, string, string, string, json.RawMessage) (string, error)
	DeleteQuestion(context.Context, string, string) (string, error)
	MoveQuestion(context.Context, string, string, int) (string, error)
	GetPublicPage(context.Context, string) (store.Page, error)
}

// pageInvalidator is told about every public path a committed write touched.
type pageInvalidator interface {
	Invalidate(ctx context.Context, paths ...string)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	handles   *handle.Registry
	pages     pageInvalidator
	logger    zerolog.Logger
	mutations *prometheus.CounterVec
}

func New(cfg config.Config, dataStore *store.PostgresStore, pages pageInvalidator, logger zerolog.Logger, reg prometheus.Registerer) *Service {
	return newService(cfg, dataStore, pages, logger, reg)
}

func newService(cfg config.Config, dataStore dataStore, pages pageInvalidator, logger zerolog.Logger, reg prometheus.Registerer) *Service {
	return &Service{
		cfg:     cfg,
		store:   dataStore,
		handles: handle.NewRegistry(dataStore),
		pages:   pages,
		logger:  logger.With().Str("component", "service").Logger(),
		mutations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "faqpage_mutations_total",
			Help: "Owner mutations by operation and result code.",
		}, []string{"op", "result"}),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// EnsureUser upserts the identity-provider profile behind a verified token.
func (s *Service) EnsureUser(ctx context.Context, claims auth.Claims) (Caller, error) {
	if strings.TrimSpace(claims.Sub) == "" {
		return Caller{}, errUnauthorized
	}
	user, err := s.store.EnsureUser(ctx, store.User{
		ID:          claims.Sub,
		DisplayName: truncateRunes(strings.TrimSpace(claims.Name), maxNameRunes),
		AvatarURL:   strings.TrimSpace(claims.Picture),
	})
	if err != nil {
		return Caller{}, err
	}
	return Caller{UserID: user.ID}, nil
}

func (s *Service) GetSettings(ctx context.Context, caller Caller) (Settings, error) {
	if err := caller.check(); err != nil {
		return Settings{}, err
	}
	user, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		return Settings{}, translateError(err)
	}
	settings := Settings{
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		IsBoxed:     user.Settings.Boxed,
		IsNumbered:  user.Settings.Numbered,
		Theme:       user.Settings.Theme,
	}
	if user.Handle != "" {
		settings.URL = s.cfg.PublicURL + handle.Path(user.Handle)
	}
	return settings, nil
}

func (s *Service) ListQuestions(ctx context.Context, caller Caller) ([]QuestionSummary, error) {
	if err := caller.check(); err != nil {
		return nil, err
	}
	items, err := s.store.ListQuestions(ctx, caller.UserID)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]QuestionSummary, 0, len(items))
	for _, q := range items {
		out = append(out, QuestionSummary{ID: q.ID, Index: q.Index, Text: q.Text})
	}
	return out, nil
}

func (s *Service) GetQuestion(ctx context.Context, caller Caller, questionID string) (QuestionDetail, error) {
	if err := caller.check(); err != nil {
		return QuestionDetail{}, err
	}
	if !util.IsID("", questionID) {
		return QuestionDetail{}, translateError(store.ErrNotFound)
	}
	q, err := s.store.GetQuestion(ctx, caller.UserID, questionID)
	if err != nil {
		return QuestionDetail{}, translateError(err)
	}
	return QuestionDetail{ID: q.ID, Index: q.Index, Text: q.Text, Answer: q.Answer}, nil
}

// AddQuestion appends a placeholder question at the end of the caller's list.
func (s *Service) AddQuestion(ctx context.Context, caller Caller) (QuestionSummary, error) {
	if err := caller.check(); err != nil {
		return QuestionSummary{}, err
	}
	answer, err := json.Marshal(document.Placeholder())
	if err != nil {
		return QuestionSummary{}, err
	}
	created, current, err := s.store.AddQuestion(ctx, store.Question{
		ID:     util.NewID(""),
		UserID: caller.UserID,
		Text:   DefaultQuestionText,
		Answer: answer,
	})
	if err = s.observe("add_question", err); err != nil {
		return QuestionSummary{}, err
	}
	s.pages.Invalidate(ctx, handle.Path(current))
	return QuestionSummary{ID: created.ID, Index: created.Index, Text: created.Text}, nil
}

// UpdateQuestion replaces text and answer in place. The answer is stored in its
// canonical form.
func (s *Service) UpdateQuestion(ctx context.Context, caller Caller, questionID string, input UpdateQuestionInput) error {
	if err := caller.check(); err != nil {
		return err
	}
	text := strings.TrimSpace(input.Text)
	if n := utf8.RuneCountInString(text); n < minQuestionRunes || n > maxQuestionRunes {
		return s.observe("update_question", validationError("Question must be 3-100 characters"))
	}
	doc, err := document.Parse(input.Answer)
	if err != nil {
		return s.observe("update_question", err)
	}
	answer, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if !util.IsID("", questionID) {
		return s.observe("update_question", store.ErrNotFound)
	}

	current, err := s.store.UpdateQuestion(ctx, caller.UserID, questionID, text, answer)
	if err = s.observe("update_question", err); err != nil {
		return err
	}
	s.pages.Invalidate(ctx, handle.Path(current))
	return nil
}

func (s *Service) DeleteQuestion(ctx context.Context, caller Caller, questionID string) error {
	if err := caller.check(); err != nil {
		return err
	}
	if !util.IsID("", questionID) {
		return s.observe("delete_question", store.ErrNotFound)
	}
	current, err := s.store.DeleteQuestion(ctx, caller.UserID, questionID)
	if err = s.observe("delete_question", err); err != nil {
		return err
	}
	s.pages.Invalidate(ctx, handle.Path(current))
	return nil
}

// MoveQuestion places a question at newIndex. A concurrent reorder surfaces as
// CONFLICT and is not retried here.
func (s *Service) MoveQuestion(ctx context.Context, caller Caller, questionID string, newIndex int) error {
	if err := caller.check(); err != nil {
		return err
	}
	if !util.IsID("", questionID) {
		return s.observe("move_question", store.ErrNotFound)
	}
	current, err := s.store.MoveQuestion(ctx, caller.UserID, questionID, newIndex)
	if err = s.observe("move_question", err); err != nil {
		return err
	}
	s.pages.Invalidate(ctx, handle.Path(current))
	return nil
}

func (s *Service) SetDisplaySettings(ctx context.Context, caller Caller, input SettingsInput) error {
	if err := caller.check(); err != nil {
		return err
	}
	if !theme.Valid(input.Theme) {
		return s.observe("set_settings", validationError("theme must be between 0 and 5"))
	}
	current, err := s.store.UpdateSettings(ctx, caller.UserID, store.Settings{
		Boxed:    input.IsBoxed,
		Numbered: input.IsNumbered,
		Theme:    input.Theme,
	})
	if err = s.observe("set_settings", err); err != nil {
		return err
	}
	s.pages.Invalidate(ctx, handle.Path(current))
	return nil
}

// ClaimHandle assigns candidate to the caller and returns the normalized handle.
// Both the new page and the released one are invalidated.
func (s *Service) ClaimHandle(ctx context.Context, caller Caller, candidate string) (string, error) {
	if err := caller.check(); err != nil {
		return "", err
	}
	claim, err := s.handles.Claim(ctx, caller.UserID, candidate)
	if err = s.observe("claim_handle", err); err != nil {
		return "", err
	}
	s.pages.Invalidate(ctx, claim.Paths()...)
	return claim.Handle, nil
}

func (s *Service) SetDisplayName(ctx context.Context, caller Caller, name string) error {
	if err := caller.check(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameRunes || n > maxNameRunes {
		return s.observe("set_name", validationError("Name must be 1-32 characters"))
	}
	current, err := s.store.UpdateDisplayName(ctx, caller.UserID, name)
	if err = s.observe("set_name", err); err != nil {
		return err
	}
	s.pages.Invalidate(ctx, handle.Path(current))
	return nil
}

// GetPublicPage looks a page up by handle, ignoring case. An unknown handle is
// reported through found=false, not as an error.
func (s *Service) GetPublicPage(ctx context.Context, pageHandle string) (page.View, bool, error) {
	pageHandle = strings.TrimSpace(pageHandle)
	if pageHandle == "" {
		return page.View{}, false, nil
	}
	p, err := s.store.GetPublicPage(ctx, strings.ToLower(pageHandle))
	if errors.Is(err, store.ErrNotFound) {
		return page.View{}, false, nil
	}
	if err != nil {
		return page.View{}, false, err
	}
	return page.Build(p, s.cfg.PublicURL), true, nil
}

// observe counts a mutation outcome and returns err translated for the caller.
func (s *Service) observe(op string, err error) error {
	err = translateError(err)
	result := "ok"
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			result = domainErr.Code
		} else {
			result = CodeServer
			s.logger.Error().Err(err).Str("op", op).Msg("mutation failed")
		}
	}
	s.mutations.WithLabelValues(op, result).Inc()
	return err
}

func (c Caller) check() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errUnauthorized
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
