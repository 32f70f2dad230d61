package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ScoringConfig holds every weight, band and threshold used by the health scorer.
type ScoringConfig struct {
	WindowDays int              `mapstructure:"windowDays"`
	Weights    ScoreWeights     `mapstructure:"weights"`
	Engagement EngagementConfig `mapstructure:"engagement"`
	Adoption   AdoptionConfig   `mapstructure:"adoption"`
	Value      ValueConfig      `mapstructure:"value"`
	Status     StatusThresholds `mapstructure:"status"`
	Risk       RiskThresholds   `mapstructure:"risk"`
}

type ScoreWeights struct {
	Engagement float64 `mapstructure:"engagement"`
	Adoption   float64 `mapstructure:"adoption"`
	Value      float64 `mapstructure:"value"`
}

type EngagementConfig struct {
	PointsPerActiveDay float64       `mapstructure:"pointsPerActiveDay"`
	RecencyBands       []RecencyBand `mapstructure:"recencyBands"`
}

// RecencyBand awards Bonus when the last login is strictly less than WithinDays ago.
type RecencyBand struct {
	WithinDays int     `mapstructure:"withinDays"`
	Bonus      float64 `mapstructure:"bonus"`
}

type AdoptionConfig struct {
	PointsPerFeature float64 `mapstructure:"pointsPerFeature"`
	ActiveUserWeight float64 `mapstructure:"activeUserWeight"`
}

type ValueConfig struct {
	CompletionWeight float64 `mapstructure:"completionWeight"`
	AIUsageBonus     float64 `mapstructure:"aiUsageBonus"`
	ActiveDaysCap    float64 `mapstructure:"activeDaysCap"`
}

// StatusThresholds are inclusive lower bounds.
type StatusThresholds struct {
	Healthy int `mapstructure:"healthy"`
	Neutral int `mapstructure:"neutral"`
	AtRisk  int `mapstructure:"atRisk"`
}

type RiskThresholds struct {
	NoLoginDays          int     `mapstructure:"noLoginDays"`
	NoLoginWarningDays   int     `mapstructure:"noLoginWarningDays"`
	MinActiveUserPercent float64 `mapstructure:"minActiveUserPercent"`
	MinCompletionRate    float64 `mapstructure:"minCompletionRate"`
	MinFeaturesUsed      int     `mapstructure:"minFeaturesUsed"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		WindowDays: 30,
		Weights: ScoreWeights{
			Engagement: 0.4,
			Adoption:   0.3,
			Value:      0.3,
		},
		Engagement: EngagementConfig{
			PointsPerActiveDay: 3,
			RecencyBands: []RecencyBand{
				{WithinDays: 3, Bonus: 30},
				{WithinDays: 7, Bonus: 20},
				{WithinDays: 14, Bonus: 10},
			},
		},
		Adoption: AdoptionConfig{
			PointsPerFeature: 15,
			ActiveUserWeight: 0.5,
		},
		Value: ValueConfig{
			CompletionWeight: 0.5,
			AIUsageBonus:     30,
			ActiveDaysCap:    20,
		},
		Status: StatusThresholds{
			Healthy: 70,
			Neutral: 50,
			AtRisk:  30,
		},
		Risk: RiskThresholds{
			NoLoginDays:          30,
			NoLoginWarningDays:   14,
			MinActiveUserPercent: 20,
			MinCompletionRate:    20,
			MinFeaturesUsed:      2,
		},
	}
}

type ScoringConfigHolder struct {
	current atomic.Value // holds ScoringConfig
}

// NewStaticScoringConfigHolder returns a holder that never reloads.
func NewStaticScoringConfigHolder(cfg ScoringConfig) *ScoringConfigHolder {
	holder := &ScoringConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewScoringConfigHolder reads health.yml when present and watches it for changes.
func NewScoringConfigHolder(cfg Config, log *zap.Logger) (*ScoringConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.scoring")

	v := viper.New()
	if path := strings.TrimSpace(cfg.HealthConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("health")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/schoolgle")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read scoring config: %w", err)
		}
		log.Info("scoring config file not found, using defaults")
		return NewStaticScoringConfigHolder(DefaultScoringConfig()), nil
	}

	loaded, err := decodeScoringConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticScoringConfigHolder(loaded)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeScoringConfig(v)
		if err != nil {
			log.Warn("invalid scoring config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("scoring config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ScoringConfigHolder) Get() ScoringConfig {
	if h == nil {
		return DefaultScoringConfig()
	}
	cfg, ok := h.current.Load().(ScoringConfig)
	if !ok {
		return DefaultScoringConfig()
	}
	return cfg
}

func decodeScoringConfig(v *viper.Viper) (ScoringConfig, error) {
	cfg := DefaultScoringConfig()
	if err := v.UnmarshalKey("scoring", &cfg); err != nil {
		return ScoringConfig{}, fmt.Errorf("decode scoring config: %w", err)
	}
	sort.SliceStable(cfg.Engagement.RecencyBands, func(i, j int) bool {
		return cfg.Engagement.RecencyBands[i].WithinDays < cfg.Engagement.RecencyBands[j].WithinDays
	})
	if err := ValidateScoringConfig(cfg); err != nil {
		return ScoringConfig{}, err
	}
	return cfg, nil
}

func ValidateScoringConfig(cfg ScoringConfig) error {
	if cfg.WindowDays <= 0 {
		return errors.New("scoring.windowDays must be positive")
	}
	w := cfg.Weights
	if w.Engagement < 0 || w.Adoption < 0 || w.Value < 0 {
		return errors.New("scoring.weights cannot be negative")
	}
	if w.Engagement+w.Adoption+w.Value <= 0 {
		return errors.New("scoring.weights must not all be zero")
	}
	s := cfg.Status
	if !(s.Healthy > s.Neutral && s.Neutral > s.AtRisk && s.AtRisk >= 0 && s.Healthy <= 100) {
		return errors.New("scoring.status thresholds must satisfy 100 >= healthy > neutral > atRisk >= 0")
	}
	for _, band := range cfg.Engagement.RecencyBands {
		if band.WithinDays <= 0 || band.Bonus < 0 {
			return errors.New("scoring.engagement.recencyBands entries must have positive withinDays and non-negative bonus")
		}
	}
	if cfg.Risk.NoLoginDays <= 0 || cfg.Risk.NoLoginWarningDays <= 0 {
		return errors.New("scoring.risk no-login thresholds must be positive")
	}
	return nil
}
