// Package achievements evaluates the declarative achievement catalog against
// a user's financial facts and emits each unlock at most once.
package achievements

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coppia/internal/core"
)

var (
	ErrInvalidCatalog = errors.New("invalid achievement catalog")
	ErrRuleFault      = errors.New("achievement rule fault")
)

// AchievementSet holds the types a user already owns.
type AchievementSet map[core.AchievementType]struct{}

// NewAchievementSet builds a set from types.
func NewAchievementSet(types ...core.AchievementType) AchievementSet {
	s := make(AchievementSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// SetOf collects the types of stored achievements.
func SetOf(held []core.Achievement) AchievementSet {
	s := make(AchievementSet, len(held))
	for _, a := range held {
		s[a.Type] = struct{}{}
	}
	return s
}

func (s AchievementSet) Has(t core.AchievementType) bool {
	_, ok := s[t]
	return ok
}

func (s AchievementSet) Add(t core.AchievementType) {
	s[t] = struct{}{}
}

// UnlockEvent signals that a user newly satisfied a rule.
type UnlockEvent struct {
	ID       uuid.UUID
	UserID   string
	Type     core.AchievementType
	Title    string
	EarnedAt time.Time
}

// Achievement converts the event into the row to persist.
func (e UnlockEvent) Achievement() core.Achievement {
	return core.Achievement{UserID: e.UserID, Type: e.Type, EarnedAt: e.EarnedAt}
}

// RuleFault records a rule that could not be evaluated in this pass.
type RuleFault struct {
	Type core.AchievementType
	Err  error
}

// Result is the outcome of one evaluation pass.
type Result struct {
	Unlocked []UnlockEvent
	Faults   []RuleFault
}

// Engine evaluates a fixed catalog. It is safe for concurrent use.
type Engine struct {
	rules   []Rule
	logger  *slog.Logger
	onFault func(core.AchievementType)
	newID   func() uuid.UUID
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report rule faults.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFaultObserver registers fn to be called once per faulted rule.
func WithFaultObserver(fn func(core.AchievementType)) Option {
	return func(e *Engine) { e.onFault = fn }
}

// WithIDGenerator overrides how unlock event ids are generated.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine validates catalog and returns an engine over a private copy of it.
func NewEngine(catalog []Rule, opts ...Option) (*Engine, error) {
	seen := make(map[core.AchievementType]struct{}, len(catalog))
	for i, r := range catalog {
		if r.Type == "" {
			return nil, fmt.Errorf("%w: entry %d has no type", ErrInvalidCatalog, i)
		}
		if r.Predicate == nil {
			return nil, fmt.Errorf("%w: %s has no predicate", ErrInvalidCatalog, r.Type)
		}
		if _, dup := seen[r.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate type %s", ErrInvalidCatalog, r.Type)
		}
		seen[r.Type] = struct{}{}
	}

	e := &Engine{
		rules:  append([]Rule(nil), catalog...),
		logger: slog.Default(),
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rules returns the catalog in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Rule looks up a catalog entry by type.
func (e *Engine) Rule(t core.AchievementType) (Rule, bool) {
	for _, r := range e.rules {
		if r.Type == t {
			return r, true
		}
	}
	return Rule{}, false
}

// Evaluate returns an unlock for every rule not in held whose predicate holds.
// A rule that panics is reported in Result.Faults and skipped; it stays
// unheld and is tried again on the next pass.
func (e *Engine) Evaluate(held AchievementSet, facts Facts) Result {
	var res Result
	for _, r := range e.rules {
		if held.Has(r.Type) {
			continue
		}
		ok, err := check(r, facts)
		if err != nil {
			res.Faults = append(res.Faults, RuleFault{Type: r.Type, Err: err})
			e.logger.Warn("Achievement rule faulted",
				"user_id", facts.UserID,
				"achievement", string(r.Type),
				"error", err)
			if e.onFault != nil {
				e.onFault(r.Type)
			}
			continue
		}
		if !ok {
			continue
		}
		res.Unlocked = append(res.Unlocked, UnlockEvent{
			ID:       e.newID(),
			UserID:   facts.UserID,
			Type:     r.Type,
			Title:    r.Title,
			EarnedAt: facts.Now,
		})
	}
	return res
}

func check(r Rule, f Facts) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrRuleFault, r.Type, p)
		}
	}()
	return r.Predicate(f), nil
}
