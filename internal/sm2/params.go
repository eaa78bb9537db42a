package sm2

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params holds the tunable constants of the scheduler. Intervals are in days.
type Params struct {
	// EasyInterval is the interval given to a New card scored Easy.
	EasyInterval float64 `validate:"gt=0"`
	// EasyBonus is the extra multiplier applied on Easy while Learned.
	EasyBonus float64 `validate:"gt=0"`
	// GraduationInterval is the due offset applied when a card leaves New.
	GraduationInterval float64 `validate:"gt=0"`

	NewSteps        []time.Duration `validate:"required,min=1,dive,gt=0"`
	RelearningSteps []time.Duration `validate:"required,min=1,dive,gt=0"`
	// HardStep is the fixed due offset for a New card scored Hard.
	HardStep time.Duration `validate:"gt=0"`

	MinimumInterval float64 `validate:"gt=0"`
	// MaximumInterval caps Learned intervals. Zero disables the cap.
	MaximumInterval float64 `validate:"gte=0"`
	MinimumEase     float64 `validate:"gt=0"`
	DefaultEase     float64 `validate:"gtefield=MinimumEase"`

	HardMultiplier   float64 `validate:"gt=0"`
	LapseMultiplier  float64 `validate:"gt=0"`
	EasyEaseBonus    float64 `validate:"gte=0"`
	HardEasePenalty  float64 `validate:"gte=0"`
	LapseEasePenalty float64 `validate:"gte=0"`
}

// DefaultParams returns the standard scheduling constants.
func DefaultParams() Params {
	return Params{
		EasyInterval:       4.0,
		EasyBonus:          1.3,
		GraduationInterval: 1.0,
		NewSteps:           []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:    []time.Duration{10 * time.Minute},
		HardStep:           time.Minute,
		MinimumInterval:    1.0,
		MinimumEase:        1.3,
		DefaultEase:        2.5,
		HardMultiplier:     1.2,
		LapseMultiplier:    0.7,
		EasyEaseBonus:      0.15,
		HardEasePenalty:    0.15,
		LapseEasePenalty:   0.2,
	}
}

// Validate reports whether the parameters can drive a scheduler.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if p.MaximumInterval > 0 && p.MaximumInterval < p.MinimumInterval {
		return fmt.Errorf("%w: maximum interval %v below minimum interval %v",
			ErrInvalidParams, p.MaximumInterval, p.MinimumInterval)
	}
	return nil
}

func (p Params) clone() Params {
	out := p
	out.NewSteps = slices.Clone(p.NewSteps)
	out.RelearningSteps = slices.Clone(p.RelearningSteps)
	return out
}
