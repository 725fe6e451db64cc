package config

import (
	"errors"
	"fmt"
	"time"

	"momentum-trader/pkg/common"
	"momentum-trader/pkg/config"

	"github.com/robfig/cron/v3"
)

// Exposure policies for the risk gate's exposure check.
const (
	ExposurePolicyReject = "reject"
	ExposurePolicyModify = "modify"
)

// Trading holds every threshold the decision and risk engine uses. It is passed
// by value to each component so a running engine never sees it change.
type Trading struct {
	StartingCapital float64  `mapstructure:"starting_capital"`
	Symbols         []string `mapstructure:"symbols"`
	MaxSymbols      int      `mapstructure:"max_symbols"`

	// Momentum detector
	MomentumThresholdPct float64 `mapstructure:"momentum_threshold_pct"`
	FetchBatchSize       int     `mapstructure:"fetch_batch_size"`

	// Risk gate
	MinConfidence          int     `mapstructure:"min_confidence"`
	MaxConcurrentPositions int     `mapstructure:"max_concurrent_positions"`
	MaxTotalExposurePct    float64 `mapstructure:"max_total_exposure_pct"`
	ExposurePolicy         string  `mapstructure:"exposure_policy"`
	DefaultPositionSizePct float64 `mapstructure:"default_position_size_pct"`
	MinPositionSizePct     float64 `mapstructure:"min_position_size_pct"`
	MaxPositionSizePct     float64 `mapstructure:"max_position_size_pct"`
	DailyLossLimitPct      float64 `mapstructure:"daily_loss_limit_pct"`
	WeeklyLossLimitPct     float64 `mapstructure:"weekly_loss_limit_pct"`
	HaltOnLossLimit        bool    `mapstructure:"halt_on_loss_limit"`
	MaxCorrelatedPositions int     `mapstructure:"max_correlated_positions"`

	// Position lifecycle
	MinStopDistancePct                float64 `mapstructure:"min_stop_distance_pct"`
	MaxStopDistancePct                float64 `mapstructure:"max_stop_distance_pct"`
	BreakevenTriggerPct               float64 `mapstructure:"breakeven_trigger_pct"`
	TrailingActivationPct             float64 `mapstructure:"trailing_activation_pct"`
	TrailingDistancePct               float64 `mapstructure:"trailing_distance_pct"`
	HighConfidenceTrailingDistancePct float64 `mapstructure:"high_confidence_trailing_distance_pct"`
	HighConfidenceThreshold           int     `mapstructure:"high_confidence_threshold"`
	TP1RiskMultiple                   float64 `mapstructure:"tp1_risk_multiple"`
	TP1ExitFraction                   float64 `mapstructure:"tp1_exit_fraction"`
	ReviewExitConfidence              int     `mapstructure:"review_exit_confidence"`
	AutoCloseOnConfidenceDrop         bool    `mapstructure:"auto_close_on_confidence_drop"`

	// Skip re-analysing a symbol for this long after it produced a signal.
	AnalysisCooldown time.Duration `mapstructure:"analysis_cooldown"`
}

// Schedule holds loop cadences and timeouts.
type Schedule struct {
	ScanInterval    time.Duration `mapstructure:"scan_interval"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
	ReviewSpec      string        `mapstructure:"review_spec"`
	MetricsSpec     string        `mapstructure:"metrics_spec"`
	WindowResetSpec string        `mapstructure:"window_reset_spec"`
	ErrorBackoff    time.Duration `mapstructure:"error_backoff"`
	OracleTimeout   time.Duration `mapstructure:"oracle_timeout"`
	CycleTimeout    time.Duration `mapstructure:"cycle_timeout"`
}

// AI selects the analysis oracle provider: "gemini" or "rules".
type AI struct {
	Provider               string        `mapstructure:"provider"`
	MaxConsecutiveFailures uint32        `mapstructure:"max_consecutive_failures"`
	BreakerOpenTimeout     time.Duration `mapstructure:"breaker_open_timeout"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string  `mapstructure:"api_key"`
	Model               string  `mapstructure:"model"`
	MaxRequestPerMinute int     `mapstructure:"max_request_per_minute"`
	Temperature         float32 `mapstructure:"temperature"`
}

// Market holds the configuration for the exchange market data API.
type Market struct {
	BaseURL             string        `mapstructure:"base_url"`
	QuoteAsset          string        `mapstructure:"quote_asset"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	Timeout             time.Duration `mapstructure:"timeout"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// News holds the RSS feeds used as oracle context.
type News struct {
	Feeds        []string      `mapstructure:"feeds"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	MaxHeadlines int           `mapstructure:"max_headlines"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Queue selects the transport between the oracle stage and the risk gate.
type Queue struct {
	Backend      string        `mapstructure:"backend"`
	BufferSize   int           `mapstructure:"buffer_size"`
	BlockTimeout time.Duration `mapstructure:"block_timeout"`
	StreamMaxLen int64         `mapstructure:"stream_max_len"`
	// Unacknowledged stream messages idle this long are redelivered.
	ReclaimMinIdle  time.Duration `mapstructure:"reclaim_min_idle"`
	ReclaimInterval time.Duration `mapstructure:"reclaim_interval"`
}

// Recorder sizes the asynchronous persistence worker.
type Recorder struct {
	BufferSize   int           `mapstructure:"buffer_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Config holds the full configuration for the trading service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	Trading  Trading         `mapstructure:"trading"`
	Schedule Schedule        `mapstructure:"schedule"`
	AI       AI              `mapstructure:"ai"`
	Gemini   Gemini          `mapstructure:"gemini"`
	Market   Market          `mapstructure:"market"`
	News     News            `mapstructure:"news"`
	Telegram Telegram        `mapstructure:"telegram"`
	Queue    Queue           `mapstructure:"queue"`
	Recorder Recorder        `mapstructure:"recorder"`
}

// DefaultTrading returns the documented defaults.
func DefaultTrading() Trading {
	return Trading{
		StartingCapital:                   10000,
		MaxSymbols:                        100,
		MomentumThresholdPct:              5.0,
		FetchBatchSize:                    10,
		MinConfidence:                     60,
		MaxConcurrentPositions:            5,
		MaxTotalExposurePct:               25,
		ExposurePolicy:                    ExposurePolicyReject,
		DefaultPositionSizePct:            5,
		MinPositionSizePct:                1,
		MaxPositionSizePct:                10,
		DailyLossLimitPct:                 -8,
		WeeklyLossLimitPct:                -15,
		HaltOnLossLimit:                   true,
		MaxCorrelatedPositions:            2,
		MinStopDistancePct:                2,
		MaxStopDistancePct:                5,
		BreakevenTriggerPct:               1,
		TrailingActivationPct:             2,
		TrailingDistancePct:               2.0,
		HighConfidenceTrailingDistancePct: 2.5,
		HighConfidenceThreshold:           80,
		TP1RiskMultiple:                   2,
		TP1ExitFraction:                   0.5,
		ReviewExitConfidence:              40,
		AutoCloseOnConfidenceDrop:         false,
		AnalysisCooldown:                  30 * time.Minute,
	}
}

// DefaultSchedule returns the documented cadences.
func DefaultSchedule() Schedule {
	return Schedule{
		ScanInterval:    5 * time.Minute,
		MonitorInterval: 5 * time.Minute,
		ReviewSpec:      "@every 15m",
		MetricsSpec:     "@every 1m",
		WindowResetSpec: "0 0 * * *",
		ErrorBackoff:    30 * time.Second,
		OracleTimeout:   90 * time.Second,
		CycleTimeout:    4 * time.Minute,
	}
}

// Default returns a Config populated with defaults for every non-connection setting.
func Default() Config {
	return Config{
		Trading:  DefaultTrading(),
		Schedule: DefaultSchedule(),
		AI: AI{
			Provider:               "rules",
			MaxConsecutiveFailures: 5,
			BreakerOpenTimeout:     2 * time.Minute,
		},
		Gemini: Gemini{
			Model:               "gemini-2.5-flash",
			MaxRequestPerMinute: 10,
			Temperature:         0.2,
		},
		Market: Market{
			BaseURL:             "https://api.binance.com",
			QuoteAsset:          "USDT",
			MaxRequestPerMinute: 600,
			Timeout:             10 * time.Second,
			CacheTTL:            30 * time.Second,
		},
		News: News{
			CacheTTL:     10 * time.Minute,
			MaxHeadlines: 8,
		},
		Queue: Queue{
			Backend:         "memory",
			BufferSize:      256,
			BlockTimeout:    2 * time.Second,
			StreamMaxLen:    10000,
			ReclaimMinIdle:  5 * time.Minute,
			ReclaimInterval: time.Minute,
		},
		Recorder: Recorder{
			BufferSize:   1024,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Load loads the trading service configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration. Any error here is fatal at startup.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.Trading.Validate())

	if c.Schedule.ScanInterval <= 0 || c.Schedule.MonitorInterval <= 0 {
		errs = append(errs, errors.New("schedule intervals must be positive"))
	}
	if c.Schedule.ErrorBackoff < 0 {
		errs = append(errs, errors.New("schedule.error_backoff must not be negative"))
	}
	for name, spec := range map[string]string{
		"review_spec":       c.Schedule.ReviewSpec,
		"metrics_spec":      c.Schedule.MetricsSpec,
		"window_reset_spec": c.Schedule.WindowResetSpec,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("schedule.%s: %w", name, err))
		}
	}
	switch c.AI.Provider {
	case "gemini":
		if c.Gemini.APIKey == "" || c.Gemini.MaxRequestPerMinute <= 0 {
			errs = append(errs, errors.New("gemini provider requires api_key and max_request_per_minute"))
		}
	case "rules":
	default:
		errs = append(errs, fmt.Errorf("unknown ai.provider %q", c.AI.Provider))
	}
	if c.Market.MaxRequestPerMinute <= 0 {
		errs = append(errs, errors.New("market.max_request_per_minute must be positive"))
	}
	if c.Recorder.BufferSize <= 0 || c.Recorder.WriteTimeout <= 0 {
		errs = append(errs, errors.New("recorder buffer_size and write_timeout must be positive"))
	}
	switch c.Queue.Backend {
	case "memory":
	case "redis":
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("queue.backend redis requires redis.host"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue.backend %q", c.Queue.Backend))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks that thresholds are internally consistent.
func (t Trading) Validate() error {
	var errs []error
	if t.StartingCapital <= 0 {
		errs = append(errs, errors.New("starting_capital must be positive"))
	}
	if t.MomentumThresholdPct <= 0 {
		errs = append(errs, errors.New("momentum_threshold_pct must be positive"))
	}
	if t.FetchBatchSize <= 0 {
		errs = append(errs, errors.New("fetch_batch_size must be positive"))
	}
	if t.MinConfidence < 0 || t.MinConfidence > 100 {
		errs = append(errs, errors.New("min_confidence must be within [0,100]"))
	}
	if t.MaxConcurrentPositions <= 0 {
		errs = append(errs, errors.New("max_concurrent_positions must be positive"))
	}
	if t.MaxTotalExposurePct <= 0 || t.MaxTotalExposurePct > 100 {
		errs = append(errs, errors.New("max_total_exposure_pct must be within (0,100]"))
	}
	if t.ExposurePolicy != ExposurePolicyReject && t.ExposurePolicy != ExposurePolicyModify {
		errs = append(errs, fmt.Errorf("exposure_policy must be %q or %q", ExposurePolicyReject, ExposurePolicyModify))
	}
	if t.DefaultPositionSizePct <= 0 || t.MinPositionSizePct < 0 || t.MaxPositionSizePct < t.MinPositionSizePct {
		errs = append(errs, errors.New("position size percentages are inconsistent"))
	}
	if t.DailyLossLimitPct >= 0 || t.WeeklyLossLimitPct >= 0 {
		errs = append(errs, errors.New("loss limits must be negative percentages"))
	}
	if t.MaxCorrelatedPositions <= 0 {
		errs = append(errs, errors.New("max_correlated_positions must be positive"))
	}
	if t.MinStopDistancePct <= 0 || t.MaxStopDistancePct < t.MinStopDistancePct {
		errs = append(errs, errors.New("stop distance bounds are inconsistent"))
	}
	if t.BreakevenTriggerPct <= 0 || t.TrailingActivationPct < t.BreakevenTriggerPct {
		errs = append(errs, errors.New("trailing activation must not precede breakeven"))
	}
	if t.TrailingDistancePct <= 0 || t.HighConfidenceTrailingDistancePct <= 0 {
		errs = append(errs, errors.New("trailing distances must be positive"))
	}
	if t.TP1RiskMultiple <= 0 || t.TP1ExitFraction <= 0 || t.TP1ExitFraction >= 1 {
		errs = append(errs, errors.New("tp1 settings are out of range"))
	}
	return errors.Join(errs...)
}
