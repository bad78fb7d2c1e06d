package risk

import "fmt"

// Engine dispatches to a strategy per variant.
type Engine struct {
	strategies      map[Variant]Strategy
	defaultVariant  Variant
	policy          InputPolicy
	linearMissing   float64
	logisticMissing float64
	overrides       []Strategy
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaultVariant sets the variant used when a call passes "".
func WithDefaultVariant(v Variant) EngineOption {
	return func(e *Engine) {
		if v == VariantLinear || v == VariantLogistic {
			e.defaultVariant = v
		}
	}
}

// WithEnginePolicy sets the input policy of the built-in strategies.
func WithEnginePolicy(p InputPolicy) EngineOption {
	return func(e *Engine) {
		if p != "" {
			e.policy = p
		}
	}
}

// WithMissingValues sets the absent-input values of the built-in strategies.
func WithMissingValues(linear, logistic float64) EngineOption {
	return func(e *Engine) {
		e.linearMissing = linear
		e.logisticMissing = logistic
	}
}

// WithStrategy registers s for its variant, replacing the built-in one.
func WithStrategy(s Strategy) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.overrides = append(e.overrides, s)
		}
	}
}

// NewEngine creates an engine with both built-in strategies. The default
// variant is linear.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		defaultVariant:  VariantLinear,
		policy:          PolicyPassthrough,
		linearMissing:   DefaultLinearMissing,
		logisticMissing: DefaultLogisticMissing,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.strategies = map[Variant]Strategy{
		VariantLinear:   NewLinear(WithMissingValue(e.linearMissing), WithInputPolicy(e.policy)),
		VariantLogistic: NewLogistic(WithMissingValue(e.logisticMissing), WithInputPolicy(e.policy)),
	}
	for _, s := range e.overrides {
		e.strategies[s.Variant()] = s
	}
	e.overrides = nil
	return e
}

// DefaultVariant returns the variant used for "".
func (e *Engine) DefaultVariant() Variant { return e.defaultVariant }

// Policy returns the input policy of the built-in strategies.
func (e *Engine) Policy() InputPolicy { return e.policy }

// Strategy returns the strategy registered for v ("" means default).
func (e *Engine) Strategy(v Variant) (Strategy, error) {
	if v == "" {
		v = e.defaultVariant
	}
	s, ok := e.strategies[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
	return s, nil
}

// Score evaluates s with variant v ("" means default).
func (e *Engine) Score(v Variant, s Signals) (Result, error) {
	st, err := e.Strategy(v)
	if err != nil {
		return Result{}, err
	}
	return st.Score(s)
}

var passthroughEngine = NewEngine()

// ScoreRisk scores raw percentages with the given variant using the default
// missing values and the passthrough policy. NaN or infinite inputs are
// treated as absent.
func ScoreRisk(marks, attendance, homework float64, variant Variant) (Result, error) {
	if variant == "" {
		return Result{}, fmt.Errorf("%w: empty", ErrUnknownVariant)
	}
	return passthroughEngine.Score(variant, NewSignals(marks, attendance, homework))
}
