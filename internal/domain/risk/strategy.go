package risk

import "math"

// Linear model weights and bands.
const (
	linearMarksWeight      = 0.4
	linearAttendanceWeight = 0.4
	linearHomeworkWeight   = 0.2
	linearMediumFrom       = 40
	linearLowFrom          = 75
)

// Logistic model coefficients and bands.
const (
	logisticIntercept      = 5.0
	logisticMarksCoef      = -0.04
	logisticAttendanceCoef = -0.03
	logisticHomeworkCoef   = -0.02
	logisticMediumFrom     = 40
	logisticHighFrom       = 70
)

// Values substituted for absent inputs unless overridden.
const (
	DefaultLinearMissing   = 0.0
	DefaultLogisticMissing = 50.0
)

// Option configures a strategy.
type Option func(*params)

type params struct {
	missing float64
	policy  InputPolicy
}

// WithMissingValue sets the value used for absent inputs. Values outside
// [0,100] and non-finite values are ignored.
func WithMissingValue(v float64) Option {
	return func(p *params) {
		if !math.IsNaN(v) && v >= minPercent && v <= maxPercent {
			p.missing = v
		}
	}
}

// WithInputPolicy sets how out-of-range inputs are treated.
func WithInputPolicy(policy InputPolicy) Option {
	return func(p *params) {
		if policy != "" {
			p.policy = policy
		}
	}
}

func newParams(missing float64, opts []Option) params {
	p := params{missing: missing, policy: PolicyPassthrough}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p params) inputs(s Signals) (m, a, h float64, err error) {
	if m, err = resolve("marks", s.Marks, p.missing, p.policy); err != nil {
		return 0, 0, 0, err
	}
	if a, err = resolve("attendance", s.Attendance, p.missing, p.policy); err != nil {
		return 0, 0, 0, err
	}
	if h, err = resolve("homework", s.Homework, p.missing, p.policy); err != nil {
		return 0, 0, 0, err
	}
	return m, a, h, nil
}

// LinearStrategy is the weighted-average performance score.
type LinearStrategy struct {
	p params
}

// NewLinear creates the linear strategy. Absent inputs default to 0.
func NewLinear(opts ...Option) *LinearStrategy {
	return &LinearStrategy{p: newParams(DefaultLinearMissing, opts)}
}

// Variant implements Strategy.
func (*LinearStrategy) Variant() Variant { return VariantLinear }

// Polarity implements Strategy.
func (*LinearStrategy) Polarity() Polarity { return PolarityPerformance }

// Score computes round(0.4m + 0.4a + 0.2h).
func (l *LinearStrategy) Score(s Signals) (Result, error) {
	m, a, h, err := l.p.inputs(s)
	if err != nil {
		return Result{}, err
	}
	score := toScore(linearMarksWeight*m + linearAttendanceWeight*a + linearHomeworkWeight*h)
	return Result{Score: score, Level: l.Classify(score), Variant: VariantLinear, Polarity: PolarityPerformance}, nil
}

// Classify maps a performance score: <40 HIGH, 40-74 MEDIUM, >=75 LOW.
func (*LinearStrategy) Classify(score int) Level {
	switch {
	case score < linearMediumFrom:
		return LevelHigh
	case score < linearLowFrom:
		return LevelMedium
	default:
		return LevelLow
	}
}

// LogisticStrategy is the sigmoid risk model.
type LogisticStrategy struct {
	p params
}

// NewLogistic creates the logistic strategy. Absent inputs default to 50.
func NewLogistic(opts ...Option) *LogisticStrategy {
	return &LogisticStrategy{p: newParams(DefaultLogisticMissing, opts)}
}

// Variant implements Strategy.
func (*LogisticStrategy) Variant() Variant { return VariantLogistic }

// Polarity implements Strategy.
func (*LogisticStrategy) Polarity() Polarity { return PolarityRisk }

// Score computes round(100 / (1 + e^-z)) with z = 5 - 0.04m - 0.03a - 0.02h.
func (l *LogisticStrategy) Score(s Signals) (Result, error) {
	m, a, h, err := l.p.inputs(s)
	if err != nil {
		return Result{}, err
	}
	z := logisticIntercept + logisticMarksCoef*m + logisticAttendanceCoef*a + logisticHomeworkCoef*h
	probability := 1 / (1 + math.Exp(-z))
	score := toScore(probability * 100)
	return Result{Score: score, Level: l.Classify(score), Variant: VariantLogistic, Polarity: PolarityRisk}, nil
}

// Classify maps a risk score: >=70 HIGH, 40-69 MEDIUM, <40 LOW.
func (*LogisticStrategy) Classify(score int) Level {
	switch {
	case score >= logisticHighFrom:
		return LevelHigh
	case score >= logisticMediumFrom:
		return LevelMedium
	default:
		return LevelLow
	}
}
