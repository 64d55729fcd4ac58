package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"streamtap/internal/agent"
	"streamtap/internal/cache"
	"streamtap/internal/channel"
	"streamtap/internal/config"
	"streamtap/internal/eventbus"
	"streamtap/internal/intercept"
	"streamtap/internal/llm"
	"streamtap/internal/logging"
	"streamtap/internal/memory"
	"streamtap/internal/metrics"
	"streamtap/internal/security"
	"streamtap/internal/tool"
)

const (
	secretNameLLMKey         = "llm_api_key"
	secretNameFallbackLLMKey = "fallback_llm_api_key"
	secretNameTelegramToken  = "telegram_token"

	// vaultPasswordEnv unlocks the encrypted vault used when no OS keychain
	// is available.
	vaultPasswordEnv = config.EnvPrefix + "VAULT_PASSWORD"

	// drainTimeout bounds how long a finished run waits for its observers.
	drainTimeout = 30 * time.Second
)

// App holds the wiring shared by every command.
type App struct {
	cfg       *config.Config
	loader    *config.Loader
	dataDir   string
	log       *slog.Logger
	keys      *security.KeyStore
	sanitizer *security.Sanitizer
	bus       *eventbus.Bus
	channels  *channel.Manager

	interceptor *intercept.Interceptor[agent.Event]

	// Opened on demand.
	agent *agent.Agent
	mem   *memory.SQLiteMemory
	store cache.Store
}

// NewApp loads configuration and sets up the parts every command needs.
// configPath may be empty for ~/.streamtap/config.json.
func NewApp(configPath string) (*App, error) {
	loader, err := newLoader(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dataDir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}

	log := logging.New(cfg.Log)
	a := &App{
		cfg:       cfg,
		loader:    loader,
		dataDir:   dataDir,
		log:       log,
		sanitizer: security.NewSanitizer(cfg.Security.PIIFiltering),
		bus:       eventbus.New(),
		channels:  channel.NewManager(log),
	}

	if a.keys, err = openKeyStore(dataDir); err != nil {
		log.Warn("key store unavailable, secrets stay in config", "error", err)
	}
	a.resolveSecrets()

	policy, ok := intercept.ParseOverflowPolicy(cfg.Intercept.Overflow)
	if !ok {
		log.Warn("unknown overflow policy, dropping oldest", "overflow", cfg.Intercept.Overflow)
		policy = intercept.DropOldest
	}
	a.interceptor = intercept.New[agent.Event](
		intercept.WithQueueLimit(cfg.Intercept.QueueLimit, policy),
		intercept.WithLogger(log),
	)

	if cfg.Telegram.Enabled() {
		tg, err := channel.NewTelegram(channel.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		})
		if err != nil {
			log.Warn("telegram disabled", "error", err)
		} else {
			a.channels.Register(tg)
		}
	}

	a.subscribeLogs()
	return a, nil
}

func newLoader(path string) (*config.Loader, error) {
	if path != "" {
		return config.NewFileLoader(path), nil
	}
	return config.NewLoader()
}

func openKeyStore(dir string) (*security.KeyStore, error) {
	if pw := os.Getenv(vaultPasswordEnv); pw != "" {
		return security.NewKeyStoreWithPassword(dir, pw)
	}
	return security.NewKeyStore(dir, nil)
}

// resolveSecrets swaps [keyring] placeholders for the stored secrets. The
// resolved values live only in memory.
func (a *App) resolveSecrets() {
	resolve := func(value *string, name string) {
		if a.keys == nil || *value != security.Placeholder {
			return
		}
		v, err := a.keys.Resolve(*value, name)
		if err != nil {
			a.log.Warn("failed to read secret", "name", name, "error", err)
			*value = ""
			return
		}
		*value = v
	}
	resolve(&a.cfg.LLM.APIKey, secretNameLLMKey)
	if a.cfg.FallbackLLM != nil {
		resolve(&a.cfg.FallbackLLM.APIKey, secretNameFallbackLLMKey)
	}
	resolve(&a.cfg.Telegram.Token, secretNameTelegramToken)
}

func (a *App) subscribeLogs() {
	a.bus.Subscribe(eventbus.TopicToolUse, func(e eventbus.Event) {
		if ev, ok := e.Payload.(agent.Event); ok {
			a.log.Debug("tool call", "run", ev.RunID, "tool", ev.ToolName)
		}
	})
	a.bus.Subscribe(eventbus.TopicStreamError, func(e eventbus.Event) {
		if end, ok := e.Payload.(eventbus.StreamEnd); ok {
			a.log.Warn("run failed", "run", end.RunID, "events", end.Events, "error", end.Err)
		}
	})
	a.bus.Subscribe(eventbus.TopicStreamComplete, func(e eventbus.Event) {
		if end, ok := e.Payload.(eventbus.StreamEnd); ok {
			a.log.Debug("run complete", "run", end.RunID, "events", end.Events)
		}
	})
}

// initAgent opens memory and builds the provider, tools and agent.
func (a *App) initAgent() error {
	if a.agent != nil {
		return nil
	}
	if a.cfg.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set %sLLM_API_KEY or run 'streamtap key set %s')",
			config.EnvPrefix, secretNameLLMKey)
	}

	provider, err := llm.NewFromConfig(a.cfg.LLM, a.cfg.FallbackLLM, a.log)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	mem, err := memory.NewSQLiteMemory(filepath.Join(a.dataDir, "memory.db"))
	if err != nil {
		return fmt.Errorf("open memory: %w", err)
	}
	a.mem = mem

	workspace := a.cfg.Agent.WorkspaceDir
	if workspace == "" {
		workspace = filepath.Join(a.dataDir, "workspace")
	}
	registry := tool.NewRegistry()
	if err := security.ValidateWorkspace(workspace); err != nil {
		a.log.Warn("filesystem tool disabled", "workspace", workspace, "error", err)
	} else {
		registry.Register(tool.NewFilesystemTool(workspace))
	}

	a.agent = agent.New(a.cfg.Agent, provider, registry, mem, a.log)
	return nil
}

// openCache opens the configured store. A disabled cache yields nil.
func (a *App) openCache(ctx context.Context) (cache.Store, error) {
	if a.store != nil || !a.cfg.Cache.Enabled {
		return a.store, nil
	}
	store, err := cache.Open(ctx, a.cfg.Cache, a.dataDir, a.log)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// RunResult describes a finished run.
type RunResult struct {
	Metrics metrics.Snapshot
	Cached  bool
	Stats   []intercept.ObserverStats
}

// Ask answers prompt, from the cache when possible, rendering each event as
// it arrives. Observers persist the run, cache it, count it and relay the
// answer to the configured channels.
func (a *App) Ask(ctx context.Context, chatID, prompt string, render func(agent.Event)) (RunResult, error) {
	if err := a.initAgent(); err != nil {
		return RunResult{}, err
	}
	store, err := a.openCache(ctx)
	if err != nil {
		a.log.Warn("cache unavailable", "error", err)
	}

	key := cache.Key(a.cfg.LLM.Provider, a.cfg.LLM.Model, a.cfg.Agent.SystemPrompt, prompt)
	var src intercept.Source[agent.Event]
	var extra []intercept.Observer[agent.Event]
	cached := false

	if store != nil {
		entry, err := store.Get(ctx, key)
		switch {
		case err == nil:
			src, cached = cache.Replay(entry), true
		case !errors.Is(err, cache.ErrMiss):
			a.log.Warn("cache lookup failed", "error", err)
		}
	}
	if !cached {
		src = a.agent.Run(ctx, chatID, prompt)
		extra = append(extra, memory.NewTranscript(a.mem, chatID, a.log))
		if store != nil {
			extra = append(extra, cache.NewWriter(store, key,
				cache.WithTTL(cache.TTL(a.cfg.Cache)),
				cache.WithSanitizer(a.sanitizer),
				cache.WithLogger(a.log),
			))
		}
	}

	res, err := a.consume(ctx, src, render, extra...)
	res.Cached = cached
	return res, err
}

// Stream answers prompt with a single streaming completion and no tools.
func (a *App) Stream(ctx context.Context, prompt string, render func(agent.Event)) (RunResult, error) {
	if err := a.initAgent(); err != nil {
		return RunResult{}, err
	}
	return a.consume(ctx, a.agent.Stream(ctx, prompt), render)
}

// consume drives src through the interceptor, then waits for the observers
// to drain. Cancelling ctx while the caller is still reading tears the
// session down; cancelling it after the last event does not, and the
// observers get up to drainTimeout to finish.
func (a *App) consume(
	ctx context.Context,
	src intercept.Source[agent.Event],
	render func(agent.Event),
	extra ...intercept.Observer[agent.Event],
) (RunResult, error) {
	collector := metrics.NewCollector()
	observers := []intercept.Observer[agent.Event]{collector, eventbus.NewObserver(a.bus)}
	observers = append(observers, extra...)
	if a.channels.Len() > 0 {
		observers = append(observers, channel.NewRelay(a.channels, "", a.log))
	}
	if a.cfg.Intercept.Debug {
		observers = append(observers, intercept.NewDebug[agent.Event](a.log))
	}

	sessCtx, cancelSession := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSession()
	var read atomic.Bool
	stop := context.AfterFunc(ctx, func() {
		if !read.Load() {
			cancelSession()
		}
	})
	defer stop()

	st := a.interceptor.Intercept(sessCtx, src, observers...)
	var runErr error
	for ev, err := range st.All() {
		if err != nil {
			runErr = err
			break
		}
		render(ev)
	}
	read.Store(true)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := st.Wait(wctx); err != nil {
		a.log.Warn("observers still running", "stream", st.ID(), "error", err)
	}

	stats := st.Stats()
	for _, s := range stats {
		if s.Dropped > 0 {
			a.log.Warn("observer dropped events", "observer", s.Name, "dropped", s.Dropped)
		}
		if s.Err != nil {
			a.log.Warn("observer failed", "observer", s.Name, "error", s.Err)
		}
	}
	return RunResult{Metrics: collector.Snapshot(), Stats: stats}, runErr
}

// Close releases the stores opened by this App.
func (a *App) Close() error {
	var errs []error
	if a.mem != nil {
		errs = append(errs, a.mem.Close())
		a.mem = nil
	}
	if a.store != nil {
		if st := a.store.Stats(context.Background()); st.Hits+st.Misses > 0 {
			a.log.Debug("cache lookups", "hits", st.Hits, "misses", st.Misses, "hit_rate", st.HitRate())
		}
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	return errors.Join(errs...)
}
