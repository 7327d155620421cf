// Package healthbot wires the health assistant from configuration.
//
// New assembles every component named in a config.Config: the logger, the
// long-term store (gorm over postgres or sqlite, or in memory), the session
// store (Redis or in memory), the model providers, web search, the emergency
// notifier and metrics. The resulting App exposes the chat runner and the
// HTTP server. Most applications only need:
//
//	cfg, _ := config.Load("")
//	app, _ := healthbot.New(cfg)
//	defer app.Close()
//	res, _ := app.Chat(ctx, runner.ChatInput{UserID: "u1", Message: "I have a headache"})
package healthbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/healthbot/assistant"
	"github.com/hupe1980/healthbot/config"
	"github.com/hupe1980/healthbot/core"
	"github.com/hupe1980/healthbot/logging"
	"github.com/hupe1980/healthbot/memory"
	"github.com/hupe1980/healthbot/metrics"
	"github.com/hupe1980/healthbot/model"
	anthropicmodel "github.com/hupe1980/healthbot/model/anthropic"
	openaimodel "github.com/hupe1980/healthbot/model/openai"
	"github.com/hupe1980/healthbot/notify"
	"github.com/hupe1980/healthbot/prompt"
	"github.com/hupe1980/healthbot/runner"
	"github.com/hupe1980/healthbot/search"
	"github.com/hupe1980/healthbot/server"
	"github.com/hupe1980/healthbot/session"
	"github.com/hupe1980/healthbot/store"
)

// Options overrides components New would otherwise build from the config.
type Options struct {
	Logger    logging.Logger
	Model     model.Model
	Responder model.Model
	Searcher  search.Searcher
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
}

// App is a fully wired health assistant.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Metrics   *metrics.Metrics
	Store     core.LongTermStore
	Sessions  core.SessionStore
	Assistant *assistant.Assistant
	Runner    *runner.Runner

	checks  map[string]server.HealthCheck
	closers []func() error
}

// New builds an App. The configuration is validated first; the database
// schema is migrated on start.
func New(cfg *config.Config, optFns ...func(o *Options)) (*App, error) {
	if cfg == nil {
		return nil, errors.New("healthbot: config is required")
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{Config: cfg, checks: map[string]server.HealthCheck{}}

	logger := opts.Logger
	if logger == nil {
		l, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Backend: cfg.Log.Backend})
		if err != nil {
			return nil, err
		}

		logger = l
	}

	app.Logger = logger

	app.Metrics = opts.Metrics
	if app.Metrics == nil {
		app.Metrics = metrics.New("healthbot")
	}

	if err := app.openStores(); err != nil {
		_ = app.Close()
		return nil, err
	}

	if err := app.buildAssistant(opts); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Runner = runner.New(app.Assistant, func(o *runner.Options) {
		o.MaxModelCalls = cfg.Assistant.MaxModelCalls
		o.Timeout = cfg.Assistant.Timeout
		o.Symptoms = app.Store
		o.Memory = app.Store
		o.Sessions = app.Sessions
		o.Metrics = app.Metrics
		o.Logger = logger
	})

	return app, nil
}

func (a *App) openStores() error {
	cfg := a.Config

	switch cfg.Database.Type {
	case "memory":
		a.Store = memory.NewInMemoryStore()
	default:
		db, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}

		a.closers = append(a.closers, db.Close)

		if err := db.Migrate(); err != nil {
			return err
		}

		a.Store = db
		a.checks["database"] = db.Ping
	}

	switch cfg.Session.Backend {
	case "redis":
		rs, err := session.NewRedisStoreFromURL(cfg.Session.RedisURL, func(o *session.RedisOptions) {
			o.MaxTurns = cfg.Session.MaxTurns
			o.TTL = cfg.Session.TTL
		})
		if err != nil {
			return err
		}

		a.closers = append(a.closers, rs.Close)
		a.Sessions = rs
		a.checks["redis"] = rs.Ping
	default:
		a.Sessions = session.NewInMemoryStore(func(o *session.InMemoryOptions) {
			o.MaxTurns = cfg.Session.MaxTurns
		})
	}

	a.Logger.Info("stores ready", "database", cfg.Database.Type, "sessions", cfg.Session.Backend)

	return nil
}

func (a *App) buildAssistant(opts Options) error {
	cfg := a.Config

	main := opts.Model
	if main == nil {
		m, err := NewModel(cfg.LLM)
		if err != nil {
			return err
		}

		main = m
	}

	responder := opts.Responder
	if responder == nil && cfg.Responder.Provider != "" {
		m, err := NewModel(cfg.Responder)
		if err != nil {
			return err
		}

		responder = m
	}

	catalog, err := loadCatalog(cfg.Assistant.PromptsFile)
	if err != nil {
		return err
	}

	searcher := opts.Searcher
	if searcher == nil && cfg.Search.Provider == "tavily" {
		searcher = search.NewTavily(cfg.Search.APIKey, func(o *search.TavilyOptions) {
			if cfg.Search.BaseURL != "" {
				o.BaseURL = cfg.Search.BaseURL
			}

			o.Logger = a.Logger
		})
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = a.newNotifier()
	}

	ac := cfg.Assistant

	a.Assistant, err = assistant.New(main, func(o *assistant.Options) {
		o.Region = ac.Region
		o.MemoryPairs = ac.MemoryPairs
		o.FrequencyWindow = ac.FrequencyWindow
		o.FrequencyThreshold = ac.FrequencyThreshold
		o.EmergencyWindow = ac.EmergencyWindow
		o.EmergencyThreshold = ac.EmergencyThreshold
		o.RiskThreshold = ac.RiskThreshold
		o.SearchMaxResults = cfg.Search.MaxResults
		o.MaxSteps = ac.MaxSteps
		o.ResponderModel = responder
		o.Catalog = catalog
		o.Searcher = searcher
		o.Notifier = notifier
		o.Metrics = a.Metrics
	})

	return err
}

func (a *App) newNotifier() notify.Notifier {
	ac := a.Config.Alert

	var n notify.Notifier = notify.LogNotifier{Logger: a.Logger}

	if ac.Provider == "twilio" {
		n = notify.NewTwilio(ac.AccountSID, ac.AuthToken, func(o *notify.TwilioOptions) {
			if ac.BaseURL != "" {
				o.BaseURL = ac.BaseURL
			}

			o.From = ac.From
			o.DefaultTo = ac.To
			o.Logger = a.Logger
		})
	}

	return notify.NewCooldown(n, ac.Cooldown)
}

func loadCatalog(path string) (*prompt.Catalog, error) {
	if path == "" {
		return prompt.Load()
	}

	return prompt.LoadFile(path)
}

// NewModel builds a model for the configured provider.
func NewModel(cfg config.LLMConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai", "openrouter":
		fns := []func(o *openaimodel.Options){func(o *openaimodel.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}

			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}

			if cfg.Temperature != nil {
				o.Temperature = *cfg.Temperature
			}
		}}

		if cfg.Provider == "openrouter" {
			return openaimodel.NewOpenRouter(cfg.APIKey, fns...), nil
		}

		return openaimodel.NewModel(append([]func(o *openaimodel.Options){func(o *openaimodel.Options) {
			o.APIKey = cfg.APIKey
		}}, fns...)...), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.APIKey

			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}

			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}

			if cfg.Temperature != nil {
				o.Temperature = *cfg.Temperature
			}
		}), nil
	case "mock":
		return NewDemoModel(), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// NewDemoModel returns an offline model with canned replies for every
// prompt. It lets the whole workflow run without an API key.
func NewDemoModel() *model.MockModel {
	return model.NewMockModel("demo").
		On("multi-agent system", "Summary: rest, stay hydrated and see a doctor if symptoms persist.").
		On("Respond ONLY in JSON format", `{"symptoms": [], "stress_level": "unknown", "risk_score": 0.1, "response_message": "I'm here to help. What can I do for you today?"}`).
		On("You are an intent classifier", "general_medical").
		On("medical emergency classifier", "SAFE").
		On("cautious medical assistant", "Suspected Disease(s):\n- Unknown\n\nRemedies:\n1. Rest").
		On("Summarize this info", "No summary available in demo mode.").
		SetDefault("Please consult a doctor for personalised advice.")
}

// Chat runs one chat turn synchronously.
func (a *App) Chat(ctx context.Context, in runner.ChatInput) (*runner.Result, error) {
	return a.Runner.RunSync(ctx, in)
}

// Server builds the HTTP API for the app.
func (a *App) Server() *server.Server {
	sc := a.Config.Server

	return server.New(a.Runner, func(o *server.Options) {
		o.Addr = sc.Addr
		o.ReadTimeout = sc.ReadTimeout
		o.WriteTimeout = sc.WriteTimeout
		o.CORSOrigins = sc.CORSOrigins
		o.RateLimit = sc.RateLimit
		o.RateBurst = sc.RateBurst
		o.History = a.Store
		o.Checks = a.checks
		o.Metrics = a.Metrics
		o.Logger = a.Logger
	})
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	a.closers = nil

	return errors.Join(errs...)
}
