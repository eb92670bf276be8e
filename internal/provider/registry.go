package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/altseo/internal/config"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
)

// DefaultCallTimeout bounds a single provider call.
const DefaultCallTimeout = 30 * time.Second

// FallbackResult is the outcome of InvokeWithFallback.
// Errors holds the failure message of every provider that was tried and failed.
type FallbackResult struct {
	Success  bool                   `json:"success"`
	Result   *domain.AnalysisResult `json:"result,omitempty"`
	Provider string                 `json:"provider,omitempty"`
	Errors   map[string]string      `json:"errors,omitempty"`
}

// Status is a provider's registration summary.
type Status struct {
	Name         string       `json:"name"`
	Model        string       `json:"model"`
	Configured   bool         `json:"configured"`
	Primary      bool         `json:"primary"`
	Capabilities Capabilities `json:"capabilities"`
}

// Registry holds the configured providers and invokes them in fallback order.
// Retrying with the next provider is done here only; callers never retry
// individual providers themselves.
type Registry struct {
	providers map[string]Provider
	timeouts  map[string]time.Duration
	order     []string
	primary   string
	timeout   time.Duration
}

// RegistryConfig holds configuration for creating a Registry.
type RegistryConfig struct {
	Providers     []Provider
	Timeouts      map[string]time.Duration // per-provider overrides
	Primary       string                   // tried first when set and configured
	FallbackOrder []string                 // empty means registration order
	Timeout       time.Duration            // default per-call timeout
}

// NewRegistry creates a Registry.
func NewRegistry(cfg *RegistryConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(cfg.Providers)),
		timeouts:  make(map[string]time.Duration, len(cfg.Timeouts)),
		primary:   cfg.Primary,
		timeout:   cfg.Timeout,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultCallTimeout
	}
	for k, v := range cfg.Timeouts {
		r.timeouts[k] = v
	}

	var registered []string
	for _, p := range cfg.Providers {
		if _, dup := r.providers[p.Name()]; dup {
			continue
		}
		r.providers[p.Name()] = p
		registered = append(registered, p.Name())
	}

	order := cfg.FallbackOrder
	if len(order) == 0 {
		order = registered
	}
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		r.order = append(r.order, name)
	}
	if p, ok := r.providers[r.primary]; ok && p.Configured() {
		add(r.primary)
	}
	for _, name := range order {
		add(name)
	}
	return r
}

// NewRegistryFromConfig builds providers from configuration. Invalid
// entries are logged and skipped. The first configured entry marked
// primary is tried first.
func NewRegistryFromConfig(cfgs []config.ProviderConfig, settings config.Settings) *Registry {
	var (
		providers []Provider
		primary   string
		timeouts  = make(map[string]time.Duration)
	)
	for i := range cfgs {
		pc := cfgs[i].Clone()
		pc.ResolveEnvVars()

		if err := pc.Validate(); err != nil {
			logger.Warn("Skipping invalid provider config: index=%d, error=%v", i, err)
			continue
		}
		p, err := New(pc)
		if err != nil {
			logger.Warn("Failed to create provider, skipping: name=%s, error=%v", pc.Name, err)
			continue
		}
		providers = append(providers, p)
		if pc.Timeout > 0 {
			timeouts[pc.Name] = pc.Timeout
		}
		if pc.Primary && pc.Configured() && primary == "" {
			primary = pc.Name
		}

		logger.Info("Registered provider: name=%s, type=%s, model=%s, configured=%v, primary=%v",
			pc.Name, pc.Type, pc.Model, pc.Configured(), pc.Primary)
	}

	return NewRegistry(&RegistryConfig{
		Providers:     providers,
		Timeouts:      timeouts,
		Primary:       primary,
		FallbackOrder: settings.FallbackOrder,
		Timeout:       settings.ProviderTimeout,
	})
}

func (r *Registry) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Order returns the provider names in invocation order.
func (r *Registry) Order() []string {
	return append([]string(nil), r.order...)
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// HasConfigured reports whether any provider in the order has a credential.
func (r *Registry) HasConfigured() bool {
	for _, name := range r.order {
		if p, ok := r.providers[name]; ok && p.Configured() {
			return true
		}
	}
	return false
}

// Statuses summarizes every provider in invocation order.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.order))
	for _, name := range r.order {
		p, ok := r.providers[name]
		if !ok {
			continue
		}
		out = append(out, Status{
			Name:         name,
			Model:        p.Model(),
			Configured:   p.Configured(),
			Primary:      name == r.primary,
			Capabilities: p.Capabilities(),
		})
	}
	return out
}

// TestConnection checks a single provider.
func (r *Registry) TestConnection(ctx context.Context, name string) error {
	p, ok := r.providers[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownProvider)
	}
	if !p.Configured() {
		return NewError(name, ReasonNotConfigured, errors.New("missing credential"))
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeoutFor(name))
	defer cancel()
	return p.TestConnection(ctx)
}

func (r *Registry) timeoutFor(name string) time.Duration {
	if d, ok := r.timeouts[name]; ok && d > 0 {
		return d
	}
	return r.timeout
}

// InvokeWithFallback tries each configured provider in order and returns
// the first success. Providers without a credential are skipped.
// Parameters:
//   - ctx: parent context; cancellation stops the iteration.
//   - req: the analysis request.
//
// Returns:
//   - *FallbackResult: always non-nil, carrying per-provider errors.
//   - error: ErrNoProviderAvailable when nothing is configured, *AggregateError
//     when every configured provider failed.
func (r *Registry) InvokeWithFallback(ctx context.Context, req *Request) (*FallbackResult, error) {
	result := &FallbackResult{Errors: make(map[string]string)}
	tried := 0

	for _, name := range r.order {
		p, ok := r.providers[name]
		if !ok {
			r.log(ctx).WithField(logger.FieldProvider, name).Warn("Provider in fallback order is not registered")
			continue
		}
		if !p.Configured() {
			r.log(ctx).WithField(logger.FieldProvider, name).Debug("Skipping provider without credential")
			continue
		}
		if err := ctx.Err(); err != nil {
			result.Errors[name] = err.Error()
			break
		}
		tried++

		start := time.Now()
		analysis, err := r.invoke(ctx, p, req)
		elapsed := time.Since(start).Milliseconds()

		if err == nil {
			result.Success = true
			result.Result = analysis
			result.Provider = name
			logger.With(logger.Fields{
				logger.FieldProvider:   name,
				logger.FieldDurationMs: elapsed,
			}).Debug(ctx, "Provider call succeeded")
			return result, nil
		}

		result.Errors[name] = err.Error()
		r.log(ctx).WithFields(logger.Fields{
			logger.FieldProvider:   name,
			logger.FieldDurationMs: elapsed,
		}).WithError(err).Warn("Provider call failed, trying next")
	}

	if tried == 0 && len(result.Errors) == 0 {
		return result, ErrNoProviderAvailable
	}
	return result, &AggregateError{Errors: result.Errors}
}

func (r *Registry) invoke(ctx context.Context, p Provider, req *Request) (*domain.AnalysisResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeoutFor(p.Name()))
	defer cancel()

	analysis, err := p.Analyze(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			var pe *Error
			if !errors.As(err, &pe) || pe.Reason != ReasonTimeout {
				err = NewError(p.Name(), ReasonTimeout, err)
			}
		}
		return nil, err
	}
	if analysis == nil {
		return nil, NewError(p.Name(), ReasonMalformed, errors.New("empty result"))
	}
	return analysis, nil
}
