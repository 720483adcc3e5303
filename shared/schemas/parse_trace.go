package schemas

import "go.uber.org/zap"

// ParseTracer receives the outcome of every recovery strategy attempt.
// It exists so callers can see WHICH strategy rescued a malformed response:
// a model that keeps drifting into fenced output is a prompt problem,
// not a parsing problem.
type ParseTracer interface {
	Attempt(strategy string, err error)
	Success(strategy string)
}

// NopTracer discards all trace events.
type NopTracer struct{}

func (NopTracer) Attempt(string, error) {}
func (NopTracer) Success(string)        {}

// ZapTracer logs attempts at debug level and non-direct successes at warn,
// because a recovered response is a signal worth noticing in production.
type ZapTracer struct {
	Log *zap.Logger
}

func (t ZapTracer) Attempt(strategy string, err error) {
	t.Log.Debug("parse strategy failed", zap.String("strategy", strategy), zap.Error(err))
}

func (t ZapTracer) Success(strategy string) {
	if strategy == StrategyDirect {
		t.Log.Debug("response parsed directly")
		return
	}
	t.Log.Warn("response recovered by fallback strategy", zap.String("strategy", strategy))
}
