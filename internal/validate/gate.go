// Package validate implements the gates that sit between pipeline stages.
//
// A gate is an ordered list of named checks. Each check inspects a subject
// (a table, or a set of tables) and returns the offending cells as Evidence.
// In fail-fast mode the gate stops at the first failing check; in collect mode
// it runs every check and reports all failures in one error.
package validate

import (
	"fmt"
	"strings"

	"github.com/churnlab/churnprep/internal/errors"
	"github.com/churnlab/churnprep/internal/logger"
)

// Mode selects how a gate reacts to a failing check.
type Mode string

const (
	ModeFailFast Mode = "failfast"
	ModeCollect  Mode = "collect"
)

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeFailFast:
		return ModeFailFast, nil
	case ModeCollect:
		return ModeCollect, nil
	}
	return "", fmt.Errorf("unknown validation mode %q", s)
}

// Evidence is one offending cell. Note carries related cells when the rule
// spans several columns, e.g. "tenure=5".
type Evidence struct {
	EntityID string `json:"entity_id" yaml:"entity_id"`
	Column   string `json:"column" yaml:"column"`
	Value    string `json:"value" yaml:"value"`
	Note     string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Check is a named predicate over a gate subject.
type Check[T any] struct {
	Name     string
	Category errors.ErrorCategory
	Rule     string // human-readable statement of what must hold
	Limit    int    // evidence kept on failure
	Eval     func(subject T) []Evidence
}

// Result is the outcome of one check.
type Result struct {
	Check      string
	Category   errors.ErrorCategory
	Rule       string
	Violations int
	Evidence   []Evidence // at most the check's Limit
}

// Passed reports whether the check found nothing.
func (r Result) Passed() bool {
	return r.Violations == 0
}

// Report lists the results of every check a gate ran.
type Report struct {
	Gate    string
	Results []Result
}

// Failures returns the failed results in run order.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// GateError is returned when at least one check of a gate failed.
type GateError struct {
	Gate     string
	Failures []Result
}

func (e *GateError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s (%d violations)", f.Check, f.Rule, f.Violations))
	}
	return fmt.Sprintf("gate %s failed: %s", e.Gate, strings.Join(parts, "; "))
}

// Checks returns the names of the failed checks.
func (e *GateError) Checks() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Check
	}
	return names
}

// Observer is told about every completed check.
type Observer interface {
	CheckCompleted(gate, check string, passed bool, violations int)
}

type gateOptions struct {
	mode      Mode
	maxLogged int
	observer  Observer
}

// GateOption configures a gate.
type GateOption func(*gateOptions)

// WithMode sets the failure mode; the default is fail-fast.
func WithMode(m Mode) GateOption {
	return func(o *gateOptions) { o.mode = m }
}

// WithMaxLogged bounds the evidence rows written to the log per failing check.
func WithMaxLogged(n int) GateOption {
	return func(o *gateOptions) { o.maxLogged = n }
}

// WithObserver registers an observer for check outcomes.
func WithObserver(obs Observer) GateOption {
	return func(o *gateOptions) { o.observer = obs }
}

// Gate runs checks over a subject of type T.
type Gate[T any] struct {
	name   string
	checks []Check[T]
	opts   gateOptions
	log    logger.Logger
}

// NewGate builds a gate from checks, run in the given order.
func NewGate[T any](name string, log logger.Logger, checks []Check[T], opts ...GateOption) *Gate[T] {
	o := gateOptions{mode: ModeFailFast, maxLogged: 10}
	for _, opt := range opts {
		opt(&o)
	}
	return &Gate[T]{
		name:   name,
		checks: checks,
		opts:   o,
		log:    log.With(logger.String("gate", name)),
	}
}

// Name returns the gate name.
func (g *Gate[T]) Name() string {
	return g.name
}

// Checks returns the names of the gate's checks in run order.
func (g *Gate[T]) Checks() []string {
	names := make([]string, len(g.checks))
	for i, c := range g.checks {
		names[i] = c.Name
	}
	return names
}

// Run evaluates the checks against subject. The returned error wraps a
// *GateError and carries the category of the first failure.
func (g *Gate[T]) Run(subject T) (Report, error) {
	report := Report{Gate: g.name}

	for _, c := range g.checks {
		res := runCheck(c, subject)
		report.Results = append(report.Results, res)

		if g.opts.observer != nil {
			g.opts.observer.CheckCompleted(g.name, c.Name, res.Passed(), res.Violations)
		}

		if res.Passed() {
			g.log.Info("check passed", logger.String("check", c.Name))
			continue
		}

		g.logFailure(res)
		if g.opts.mode == ModeFailFast {
			break
		}
	}

	failures := report.Failures()
	if len(failures) == 0 {
		g.log.Info("gate passed", logger.Int("checks", len(report.Results)))
		return report, nil
	}

	gerr := &GateError{Gate: g.name, Failures: failures}
	return report, errors.New(gerr).
		Component("validate").
		Category(failures[0].Category).
		Context("gate", g.name).
		Context("failed_checks", gerr.Checks()).
		Context("mode", string(g.opts.mode)).
		Build()
}

func runCheck[T any](c Check[T], subject T) Result {
	evidence := c.Eval(subject)
	res := Result{
		Check:      c.Name,
		Category:   c.Category,
		Rule:       c.Rule,
		Violations: len(evidence),
		Evidence:   evidence,
	}
	if c.Limit > 0 && len(res.Evidence) > c.Limit {
		res.Evidence = res.Evidence[:c.Limit]
	}
	return res
}

func (g *Gate[T]) logFailure(res Result) {
	rows := make([][]string, len(res.Evidence))
	for i, ev := range res.Evidence {
		rows[i] = []string{ev.EntityID, ev.Column, ev.Value, ev.Note}
	}
	logger.Table(
		g.log.With(
			logger.String("check", res.Check),
			logger.String("category", string(res.Category)),
			logger.String("rule", res.Rule)),
		logger.LogLevelError,
		"check failed",
		[]string{"entity_id", "column", "value", "note"},
		rows, res.Violations, g.opts.maxLogged)
}
