package dispatch

import (
	"net/url"
	"strings"

	"asksource-be/pkg/apperror"

	"github.com/google/uuid"
)

// Strategy selects the answering endpoint and the parameters it accepts.
type Strategy string

const (
	StrategySimple   Strategy = "simple"
	StrategyHybrid   Strategy = "hybrid"
	StrategyAdvanced Strategy = "advanced"
)

// Strategies lists every supported strategy in display order.
var Strategies = []Strategy{StrategySimple, StrategyHybrid, StrategyAdvanced}

type route struct {
	endpoint    string
	hybrid      bool
	limit       int
	denseLimit  int
	sparseLimit int
}

var routes = map[Strategy]route{
	StrategySimple:   {endpoint: "answer_search", limit: 2},
	StrategyHybrid:   {endpoint: "answer_hybrid", hybrid: true, limit: 3, denseLimit: 10, sparseLimit: 3},
	StrategyAdvanced: {endpoint: "answer_hybrid_cross", hybrid: true, limit: 5, denseLimit: 10, sparseLimit: 5},
}

// ParseStrategy rejects anything outside the closed set instead of falling back to a default.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := routes[st]; !ok {
		return "", apperror.Newf(apperror.KindInvalidStrategy, "invalid search mode %q", s)
	}
	return st, nil
}

// Overrides replaces strategy defaults field by field. Nil means "use the default".
type Overrides struct {
	Limit       *int
	DenseLimit  *int
	SparseLimit *int
}

// Params is a strategy plus its overrides, as held by the session store.
type Params struct {
	Strategy  Strategy
	Overrides Overrides
}

// Body is the JSON payload sent to the answering service.
// Dense and sparse limits are omitted for the simple strategy.
type Body struct {
	Text        string `json:"text"`
	DenseLimit  *int   `json:"dense_limit,omitempty"`
	SparseLimit *int   `json:"sparse_limit,omitempty"`
	Limit       int    `json:"limit"`
}

type Request struct {
	Strategy Strategy
	Endpoint string
	Body     Body
	// ConversationID names the conversation the answer belongs to. It is not sent to
	// the answering service; the backend proxy uses it to mark the conversation busy.
	ConversationID uuid.UUID
}

// BuildRequest shapes the outbound request for strategy against projectID. It does no I/O.
func BuildRequest(strategy Strategy, projectID, text string, overrides Overrides) (Request, error) {
	r, ok := routes[strategy]
	if !ok {
		return Request{}, apperror.Newf(apperror.KindInvalidStrategy, "invalid search mode %q", strategy)
	}
	if strings.TrimSpace(projectID) == "" {
		return Request{}, apperror.ErrMissingProject
	}

	// Every supplied override is checked, even those the strategy does not send.
	limit, err := pick(overrides.Limit, r.limit, "limit")
	if err != nil {
		return Request{}, err
	}
	dense, err := pick(overrides.DenseLimit, r.denseLimit, "dense_limit")
	if err != nil {
		return Request{}, err
	}
	sparse, err := pick(overrides.SparseLimit, r.sparseLimit, "sparse_limit")
	if err != nil {
		return Request{}, err
	}

	body := Body{Text: text, Limit: limit}
	if r.hybrid {
		body.DenseLimit = &dense
		body.SparseLimit = &sparse
	}

	return Request{
		Strategy: strategy,
		Endpoint: r.endpoint + "/" + url.PathEscape(projectID),
		Body:     body,
	}, nil
}

// Defaults returns the canonical parameters for strategy with no overrides applied.
func Defaults(strategy Strategy) (Overrides, error) {
	r, ok := routes[strategy]
	if !ok {
		return Overrides{}, apperror.Newf(apperror.KindInvalidStrategy, "invalid search mode %q", strategy)
	}
	o := Overrides{Limit: intPtr(r.limit)}
	if r.hybrid {
		o.DenseLimit = intPtr(r.denseLimit)
		o.SparseLimit = intPtr(r.sparseLimit)
	}
	return o, nil
}

func pick(override *int, def int, field string) (int, error) {
	if override == nil {
		return def, nil
	}
	if *override <= 0 {
		return 0, apperror.Newf(apperror.KindInvalidParameter, "%s must be positive, got %d", field, *override)
	}
	return *override, nil
}

func intPtr(v int) *int {
	return &v
}
