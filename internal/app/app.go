package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobmcallan/surge/internal/clients/alpaca"
	"github.com/bobmcallan/surge/internal/clients/alphavantage"
	"github.com/bobmcallan/surge/internal/common"
	"github.com/bobmcallan/surge/internal/interfaces"
	"github.com/bobmcallan/surge/internal/models"
	"github.com/bobmcallan/surge/internal/services/analysis"
	"github.com/bobmcallan/surge/internal/services/news"
	"github.com/bobmcallan/surge/internal/services/quote"
	"github.com/bobmcallan/surge/internal/services/screener"
	"github.com/bobmcallan/surge/internal/throttle"
	"github.com/bobmcallan/surge/internal/universe"
)

// App holds all initialized services and clients.
// It is the shared core used by both cmd/surge-server and cmd/surge.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Universe        *universe.Universe
	Limiter         *throttle.Limiter
	MarketData      interfaces.MarketDataClient
	QuoteService    interfaces.QuoteProvider
	ScreenerService interfaces.ScreenerService
	NewsService     interfaces.NewsService
	AnalysisService interfaces.AnalysisService
	StartupTime     time.Time

	refresher       *refresher
	schedulerCancel context.CancelFunc
	warmCancel      context.CancelFunc
	background      sync.WaitGroup
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath applies the lookup order: explicit path, SURGE_CONFIG,
// surge.toml next to the binary, then config/surge.toml for development.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("SURGE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "surge.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/surge.toml"
		}
	}
	return configPath
}

// NewApp initializes all services and clients.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging), startupStart)
}

// NewAppWithConfig wires the services for an already loaded configuration
func NewAppWithConfig(config *common.Config, logger *common.Logger, startupStart time.Time) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	u, err := universe.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load universe: %w", err)
	}
	if path := config.Screener.UniverseFile; path != "" {
		loaded, err := universe.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load universe: %w", err)
		}
		u = loaded
	}

	avConfig := config.Clients.AlphaVantage
	limiter := throttle.NewLimiter(avConfig.GetMinInterval(),
		throttle.WithBatchPause(avConfig.BatchSize, avConfig.GetBatchPause()),
	)

	avKey, err := common.ResolveAPIKey("alphavantage_api_key", avConfig.APIKey)
	if err != nil {
		logger.Warn().Msg("Alpha Vantage API key not configured - serving sample data")
	}

	avOpts := []alphavantage.ClientOption{
		alphavantage.WithLogger(logger),
		alphavantage.WithLimiter(limiter),
		alphavantage.WithTimeout(avConfig.GetTimeout()),
	}
	if avConfig.BaseURL != "" {
		avOpts = append(avOpts, alphavantage.WithBaseURL(avConfig.BaseURL))
	}
	marketData := alphavantage.NewClient(avKey, avOpts...)

	var fallback interfaces.QuoteProvider
	alpacaConfig := config.Clients.Alpaca
	switch {
	case !alpacaConfig.Enabled:
	case alpacaConfig.APIKey == "" || alpacaConfig.APISecret == "":
		logger.Warn().Msg("Alpaca fallback enabled but credentials are missing - fallback disabled")
	default:
		fallback = alpaca.NewClient(alpacaConfig, alpaca.WithLogger(logger))
	}

	quoteService := quote.NewService(marketData, fallback, logger)

	queue := throttle.NewQueue(config.Screener.Workers, logger)
	screenerService := screener.NewService(quoteService, marketData, u, queue, screener.Config{
		Symbols:       config.Screener.Symbols,
		Criteria:      criteriaFromConfig(config.Screener.Criteria),
		FetchOverview: config.Screener.FetchOverview,
		RunTimeout:    config.Screener.GetRunTimeout(),
	}, logger)

	newsService := news.NewService(marketData, news.Config{
		Topics: config.News.Topics,
		Limit:  config.News.Limit,
	}, logger)

	analysisService := analysis.NewService(marketData, quoteService, u, logger)

	a := &App{
		Config:          config,
		Logger:          logger,
		Universe:        u,
		Limiter:         limiter,
		MarketData:      marketData,
		QuoteService:    quoteService,
		ScreenerService: screenerService,
		NewsService:     newsService,
		AnalysisService: analysisService,
		StartupTime:     startupStart,
	}

	logger.Info().
		Int("symbols", u.Len()).
		Bool("live", quoteService.Configured()).
		Bool("fallback", fallback != nil).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

func criteriaFromConfig(c common.CriteriaConfig) models.Criteria {
	return models.Criteria{
		MaxPrice:            c.MaxPrice,
		MinAbsChangePercent: c.MinAbsChangePercent,
		MinVolume:           c.MinVolume,
		MinGapUp:            c.MinGapUp,
		MinRelativeVolume:   c.MinRelativeVolume,
		MaxFloat:            c.MaxFloat,
		MinMarketCap:        c.MinMarketCap,
	}
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, cancel warmup, wait for background work.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.warmCancel != nil {
		a.warmCancel()
		a.warmCancel = nil
	}
	a.background.Wait()
}

// StartWarmup launches a first screen and news fetch so the first request is
// served from memory.
func (a *App) StartWarmup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	a.warmCancel = cancel
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		defer cancel()
		warmup(ctx, a.ScreenerService, a.NewsService, a.Logger)
	}()
}

// StartScheduler launches the background screen and news refresh loops.
func (a *App) StartScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	a.refresher = newRefresher(a.ScreenerService, a.NewsService, a.Logger)

	if d := a.Config.Screener.GetRefreshInterval(); d > 0 {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			runEvery(ctx, d, "screen", a.Logger, a.refresher.screen)
		}()
	}
	if d := a.Config.News.GetRefreshInterval(); d > 0 {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			runEvery(ctx, d, "news", a.Logger, a.refresher.news)
		}()
	}
}
