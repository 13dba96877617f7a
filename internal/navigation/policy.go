// Package navigation turns a route and a live stream of position fixes into
// spoken turn-by-turn guidance. It tracks progress along the route, detects
// when the walker strays from it, schedules distance-based announcements and
// runs the session state machine that reacts to voice commands.
package navigation

import (
	"fmt"
	"time"
)

// Policy holds the tunable thresholds of a navigation session. The values
// of DefaultPolicy suit a pedestrian; profiles may override them per
// transport mode.
type Policy struct {
	// Deviation detection
	DeviationThreshold float64       `mapstructure:"deviation_threshold_m" json:"deviation_threshold_m"`
	DeviationLimit     int           `mapstructure:"deviation_limit" json:"deviation_limit"`
	MovementThreshold  float64       `mapstructure:"movement_threshold_m" json:"movement_threshold_m"`
	MinCheckInterval   time.Duration `mapstructure:"min_check_interval" json:"min_check_interval"`
	FeedbackCooldown   time.Duration `mapstructure:"feedback_cooldown" json:"feedback_cooldown"`
	MovingAwayMargin   float64       `mapstructure:"moving_away_margin_m" json:"moving_away_margin_m"`
	OnTrackDistance    float64       `mapstructure:"on_track_distance_m" json:"on_track_distance_m"`

	// Step advancement and announcements
	ArrivalRadius float64 `mapstructure:"arrival_radius_m" json:"arrival_radius_m"`
	EarlyMaxFeet  float64 `mapstructure:"early_max_ft" json:"early_max_ft"`
	EarlyMinFeet  float64 `mapstructure:"early_min_ft" json:"early_min_ft"`
	FinalFeet     float64 `mapstructure:"final_ft" json:"final_ft"`

	// Session control
	CleanupGuard        time.Duration `mapstructure:"cleanup_guard" json:"cleanup_guard"`
	SetupRetryDelay     time.Duration `mapstructure:"setup_retry_delay" json:"setup_retry_delay"`
	MaxSetupRetries     int           `mapstructure:"max_setup_retries" json:"max_setup_retries"`
	ListenDelay         time.Duration `mapstructure:"listen_delay" json:"listen_delay"`
	TestingStepInterval time.Duration `mapstructure:"testing_step_interval" json:"testing_step_interval"`
}

// DefaultPolicy returns the walking defaults.
func DefaultPolicy() Policy {
	return Policy{
		DeviationThreshold: 15,
		DeviationLimit:     3,
		MovementThreshold:  5,
		MinCheckInterval:   2 * time.Second,
		FeedbackCooldown:   10 * time.Second,
		MovingAwayMargin:   2,
		OnTrackDistance:    5,

		ArrivalRadius: 15,
		EarlyMaxFeet:  150,
		EarlyMinFeet:  60,
		FinalFeet:     30,

		CleanupGuard:        time.Second,
		SetupRetryDelay:     500 * time.Millisecond,
		MaxSetupRetries:     3,
		ListenDelay:         5 * time.Second,
		TestingStepInterval: 10 * time.Second,
	}
}

// Validate reports the first nonsensical value in p.
func (p Policy) Validate() error {
	switch {
	case p.DeviationThreshold <= 0:
		return fmt.Errorf("deviation threshold must be positive, got %v", p.DeviationThreshold)
	case p.DeviationLimit < 1:
		return fmt.Errorf("deviation limit must be at least 1, got %d", p.DeviationLimit)
	case p.MovementThreshold < 0:
		return fmt.Errorf("movement threshold must not be negative, got %v", p.MovementThreshold)
	case p.MinCheckInterval < 0 || p.FeedbackCooldown < 0:
		return fmt.Errorf("check interval and feedback cooldown must not be negative")
	case p.ArrivalRadius <= 0:
		return fmt.Errorf("arrival radius must be positive, got %v", p.ArrivalRadius)
	case p.EarlyMinFeet >= p.EarlyMaxFeet:
		return fmt.Errorf("early announcement window (%v, %v) ft is empty", p.EarlyMinFeet, p.EarlyMaxFeet)
	case p.FinalFeet <= 0 || p.FinalFeet > p.EarlyMinFeet:
		return fmt.Errorf("final announcement distance %v ft must be within (0, %v]", p.FinalFeet, p.EarlyMinFeet)
	case p.MaxSetupRetries < 0:
		return fmt.Errorf("max setup retries must not be negative, got %d", p.MaxSetupRetries)
	case p.CleanupGuard < 0 || p.SetupRetryDelay <= 0 || p.ListenDelay < 0 || p.TestingStepInterval <= 0:
		return fmt.Errorf("session timers must be positive")
	}
	return nil
}
