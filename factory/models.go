package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/model"
	"github.com/hupe1980/agentfactory/model/anthropic"
	"github.com/hupe1980/agentfactory/model/bedrock"
	"github.com/hupe1980/agentfactory/model/gemini"
	"github.com/hupe1980/agentfactory/model/openai"
)

// ModelSource resolves the Model serving a model identifier. apiKey is the
// workflow's credential; empty means the configured default.
type ModelSource interface {
	Model(ctx context.Context, name, apiKey string) (model.Model, error)
}

// ModelSourceFunc adapts a function to ModelSource.
type ModelSourceFunc func(ctx context.Context, name, apiKey string) (model.Model, error)

// Model implements ModelSource.
func (f ModelSourceFunc) Model(ctx context.Context, name, apiKey string) (model.Model, error) {
	return f(ctx, name, apiKey)
}

// StaticModel serves every identifier with m.
func StaticModel(m model.Model) ModelSource {
	return ModelSourceFunc(func(context.Context, string, string) (model.Model, error) { return m, nil })
}

// ProviderFunc builds the provider model for a prefix and key.
type ProviderFunc func(ctx context.Context, provider, apiKey string) (model.Model, error)

// ModelsOptions configures Models.
type ModelsOptions struct {
	Logger logging.Logger
	// Fallback serves identifiers without a known provider.
	Fallback model.Model
	// NewProvider replaces the SDK backed constructors.
	NewProvider ProviderFunc
}

// Models builds provider clients on demand and caches them per provider and
// credential. Every client is wrapped with the shared rate limiter and its
// own circuit breaker.
type Models struct {
	cfg      config.ModelsConfig
	opts     ModelsOptions
	limiter  *rate.Limiter
	logger   *logging.ContextLogger
	mu       sync.Mutex
	routers  map[string]*model.Router
	provided map[string]model.Model
}

// NewModels creates a Models source.
func NewModels(cfg config.ModelsConfig, optFns ...func(o *ModelsOptions)) *Models {
	opts := ModelsOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Models{
		cfg:      cfg,
		opts:     opts,
		logger:   logging.With(opts.Logger, "component", "models"),
		routers:  make(map[string]*model.Router),
		provided: make(map[string]model.Model),
	}

	if m.opts.NewProvider == nil {
		m.opts.NewProvider = m.sdkProvider
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return m
}

// Model implements ModelSource. The result is a Router bound to apiKey that
// dispatches on the request's model identifier.
func (m *Models) Model(ctx context.Context, name, apiKey string) (model.Model, error) {
	provider := model.ProviderOf(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	router, ok := m.routers[apiKey]
	if !ok {
		router = model.NewRouter()
		if m.opts.Fallback != nil {
			router.SetFallback(m.opts.Fallback)
		}
		m.routers[apiKey] = router
	}

	if provider == "" {
		if m.opts.Fallback == nil {
			return nil, fmt.Errorf("%w %q", model.ErrNoProvider, name)
		}
		return router, nil
	}

	cacheKey := provider + "\x00" + apiKey
	if _, ok := m.provided[cacheKey]; !ok {
		key := apiKey
		if key == "" {
			key = m.defaultKey(provider)
		}

		pm, err := m.opts.NewProvider(ctx, provider, key)
		if err != nil {
			return nil, fmt.Errorf("create %s model: %w", provider, err)
		}

		pm = m.wrap(provider, pm)
		m.provided[cacheKey] = pm
		router.Register(provider, pm)

		m.logger.Info("model provider ready", "provider", provider)
	}

	return router, nil
}

func (m *Models) wrap(provider string, pm model.Model) model.Model {
	if m.cfg.BreakerFailures > 0 {
		pm = model.WithCircuitBreaker(pm, model.BreakerOptions{
			Name:                provider,
			ConsecutiveFailures: m.cfg.BreakerFailures,
			OpenTimeout:         m.cfg.BreakerTimeout,
			OnStateChange: func(name string, from, to gobreaker.State) {
				m.logger.Warn("model circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
			},
		})
	}

	if m.limiter != nil {
		pm = model.WithRateLimit(pm, m.limiter)
	}

	return pm
}

func (m *Models) defaultKey(provider string) string {
	switch provider {
	case "openai":
		return m.cfg.OpenAIAPIKey
	case "anthropic":
		return m.cfg.AnthropicAPIKey
	case "gemini":
		return m.cfg.GeminiAPIKey
	default:
		return ""
	}
}

func (m *Models) sdkProvider(ctx context.Context, provider, apiKey string) (model.Model, error) {
	switch provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = apiKey
			o.BaseURL = m.cfg.OpenAIBaseURL
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) { o.APIKey = apiKey }), nil
	case "gemini":
		return gemini.NewModel(ctx, func(o *gemini.Options) { o.APIKey = apiKey })
	case "bedrock":
		return bedrock.NewModel(ctx, func(o *bedrock.Options) { o.Region = m.cfg.BedrockRegion })
	default:
		if m.opts.Fallback != nil {
			return m.opts.Fallback, nil
		}
		return nil, fmt.Errorf("%w %q", model.ErrNoProvider, provider)
	}
}
