package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"folio/internal/blog"
	"folio/internal/catalog"
	"folio/internal/config"
	"folio/internal/costtracker"
	"folio/internal/models"
	"folio/internal/services"
	"folio/internal/source/github"
	"folio/internal/store"
	"folio/internal/store/cache"
	"folio/pkg/categorizer"
)

type App struct {
	Config *config.Config

	Catalog     []models.CatalogEntry
	Source      *github.Client
	Cache       *cache.Store
	JobClient   store.JobClient
	CostTracker costtracker.CostTracker
	Categorizer categorizer.ProjectCategorizer

	// --- Initialized Services ---
	ClassificationService *services.ClassificationService
	ProjectService        *services.ProjectService
	BlogScraper           *blog.Scraper

	closers []func() error
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg, CostTracker: costtracker.New()}

	if err := app.initCatalog(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initCategorizer(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	app.initCoreServices()

	log.Debug("Application initialization complete.")
	return app, nil
}

// --- Private Helper Methods ---

func (a *App) initCatalog() error {
	entries, err := catalog.Load(a.Config.Catalog.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	a.Catalog = entries
	log.WithFields(log.Fields{"path": a.Config.Catalog.Path, "projects": len(entries)}).Debug("Loaded manual catalog")
	return nil
}

func (a *App) initCache() error {
	backend, err := cache.NewBackend(a.Config.Cache.Backend, a.Config.Cache.Path)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	a.Cache = cache.NewStore(backend, a.Config.Cache.TTL)
	a.closers = append(a.closers, a.Cache.Close)
	return nil
}

func (a *App) initJobClient() error {
	jc, err := store.NewAsynqJobClient(store.RedisOptions{
		Addr:     a.Config.Redis.Address,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	a.closers = append(a.closers, jc.Close)
	return nil
}

func (a *App) initCategorizer(ctx context.Context) error {
	cfg := a.Config
	if cfg.Classification.Type != "llm" {
		log.Warn("Classification is disabled; pending projects will be filed under Other.")
		return nil
	}

	var prompt *categorizer.Prompt
	promptContent, err := config.LoadPromptContent(cfg.Classification.PromptTemplate)
	if err != nil {
		return fmt.Errorf("load classification prompt: %w", err)
	}
	if promptContent != "" {
		if prompt, err = categorizer.NewPrompt(promptContent); err != nil {
			return fmt.Errorf("parse classification prompt: %w", err)
		}
	}

	var backend categorizer.ProjectCategorizer
	pricing := cfg.Pricing[cfg.Classification.Provider]
	switch cfg.Classification.Provider {
	case "openai":
		if cfg.Classification.OpenaiApiKey == "" {
			log.Warn("OpenAI API key is not set (OPENAI_API_KEY). Classification disabled.")
			return nil
		}
		clientCfg := openai.DefaultConfig(cfg.Classification.OpenaiApiKey)
		if cfg.Classification.OpenaiBaseURL != "" {
			clientCfg.BaseURL = cfg.Classification.OpenaiBaseURL
		}
		backend = categorizer.NewLLMCategorizer(openai.NewClientWithConfig(clientCfg), cfg.Classification.Model, prompt, a.CostTracker, pricing)
	case "gemini":
		if cfg.Classification.GoogleApiKey == "" {
			log.Warn("Google API key is not set (GOOGLE_API_KEY). Classification disabled.")
			return nil
		}
		gemini, err := categorizer.NewGeminiCategorizer(ctx, cfg.Classification.GoogleApiKey, cfg.Classification.Model, prompt, a.CostTracker, pricing)
		if err != nil {
			return fmt.Errorf("init gemini categorizer: %w", err)
		}
		a.closers = append(a.closers, gemini.Close)
		backend = gemini
	default:
		return fmt.Errorf("unsupported classification provider: %s", cfg.Classification.Provider)
	}

	if cfg.Classification.CacheTTL > 0 {
		backend = categorizer.NewCachingCategorizer(backend, cfg.Classification.CacheTTL)
	}
	a.Categorizer = backend
	log.WithFields(log.Fields{"provider": cfg.Classification.Provider, "model": cfg.Classification.Model}).Info("Initialized project categorizer")
	return nil
}

func (a *App) initCoreServices() {
	cfg := a.Config
	a.Source = github.NewClient(github.Options{
		BaseURL: cfg.GitHub.APIBaseURL,
		Token:   cfg.GitHub.Token,
		PerPage: cfg.GitHub.PerPage,
		Timeout: cfg.GitHub.Timeout,
	})
	a.ClassificationService = services.NewClassificationService(a.Categorizer)
	a.ProjectService = services.NewProjectService(services.ProjectDeps{
		Source:                       a.Source,
		Account:                      cfg.GitHub.Account,
		Cache:                        a.Cache,
		Classifier:                   a.ClassificationService,
		Manual:                       a.Catalog,
		MaxConcurrentClassifications: cfg.Classification.MaxConcurrency,
	})
	a.BlogScraper = blog.NewScraper(&http.Client{Timeout: cfg.Blog.Timeout}, cfg.Blog.UserAgent, cfg.Blog.CacheTTL)
}

// Close releases the cache backend, the job client and model clients.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) cleanupPartialInit() {
	if err := a.Close(); err != nil {
		log.Printf("Error during cleanup after failed init: %v", err)
	}
}
