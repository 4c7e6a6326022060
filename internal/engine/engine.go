// Package engine runs a set of compliance rules against one connected
// device. It owns the per-rule isolation boundary: a rule that fails, times
// out or panics is recorded as an error verdict and the remaining rules
// still run.
package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"netaudit/internal/domain"
	"netaudit/internal/rule"
)

// DefaultRuleTimeout bounds one rule invocation when the caller does not
// configure its own.
const DefaultRuleTimeout = 60 * time.Second

// Engine evaluates rules sequentially on a single device session. Sessions
// are not safe for concurrent commands, so parallelism lives one level up,
// across devices.
type Engine struct {
	RuleTimeout time.Duration
	Settings    map[string]rule.Config
	Log         zerolog.Logger
}

func (e *Engine) ruleTimeout() time.Duration {
	if e.RuleTimeout > 0 {
		return e.RuleTimeout
	}

	return DefaultRuleTimeout
}

func (e *Engine) settings(name string) rule.Config {
	if cfg, ok := e.Settings[name]; ok {
		return cfg
	}

	return rule.Config{}
}

// RunAll evaluates every rule in order against the target. Inapplicable
// rules are recorded as skipped without touching the session. The returned
// slice always has one result per rule, in input order.
func (e *Engine) RunAll(ctx context.Context, rules []rule.Rule, target rule.Target) []domain.RuleResult {
	results := make([]domain.RuleResult, 0, len(rules))

	for _, rl := range rules {
		if err := ctx.Err(); err != nil {
			results = append(results, domain.RuleResult{
				Rule:    rl.Name(),
				Verdict: domain.VerdictError,
				Detail:  "audit deadline exceeded before rule ran",
			})

			continue
		}

		results = append(results, e.runOne(ctx, rl, target))
	}

	return results
}

func (e *Engine) runOne(ctx context.Context, rl rule.Rule, target rule.Target) (result domain.RuleResult) {
	name := rl.Name()
	log := e.Log.With().Str("rule", name).Str("device", target.Device.Address).Logger()

	if !rl.Applicable(target.Device) {
		log.Debug().Str("vendor", string(target.Device.Vendor)).Msg("Rule not applicable, skipping")

		return domain.RuleResult{
			Rule:    name,
			Verdict: domain.VerdictSkipped,
			Detail:  fmt.Sprintf("not applicable to platform %s", target.Device.Vendor),
		}
	}

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Rule panicked")

			result = domain.RuleResult{
				Rule:     name,
				Verdict:  domain.VerdictError,
				Detail:   fmt.Sprintf("rule panicked: %v", r),
				Duration: time.Since(start),
			}
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.ruleTimeout())
	defer cancel()

	result = rl.Run(runCtx, target, e.settings(name))
	result.Rule = name
	result.Duration = time.Since(start)

	log.Debug().
		Str("verdict", string(result.Verdict)).
		Dur("duration", result.Duration).
		Msg("Rule evaluated")

	return result
}
