package forecast

import (
	"errors"
	"fmt"
)

// Seasonality is a periodic component expressed as a Fourier series.
type Seasonality struct {
	Name         string  `json:"name"`
	Period       float64 `json:"period"` // years
	FourierOrder int     `json:"fourier_order"`
}

// Options configures the additive trend + seasonality model.
type Options struct {
	// YearlySeasonality adds a one-year Fourier term. It is off for yearly
	// sampled data, where it would be collinear with the intercept.
	YearlySeasonality bool          `json:"yearly_seasonality"`
	Seasonalities     []Seasonality `json:"seasonalities"`

	NChangepoints         int     `json:"n_changepoints"`
	ChangepointRange      float64 `json:"changepoint_range"`
	ChangepointPriorScale float64 `json:"changepoint_prior_scale"`
	SeasonalityPriorScale float64 `json:"seasonality_prior_scale"`

	IntervalWidth float64 `json:"interval_width"`
	Horizon       int     `json:"horizon"` // future yearly steps
}

// SunspotCycle is the ~11 year solar activity cycle.
var SunspotCycle = Seasonality{Name: "sunspot_cycle", Period: 11, FourierOrder: 5}

// DefaultOptions returns the sunspot model: no yearly seasonality, one
// 11-year cycle, conservative changepoints and a 30 year horizon.
func DefaultOptions() Options {
	return Options{
		YearlySeasonality:     false,
		Seasonalities:         []Seasonality{SunspotCycle},
		NChangepoints:         25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		IntervalWidth:         0.8,
		Horizon:               30,
	}
}

func (o Options) seasonalities() []Seasonality {
	out := make([]Seasonality, 0, len(o.Seasonalities)+1)
	if o.YearlySeasonality {
		out = append(out, Seasonality{Name: "yearly", Period: 1, FourierOrder: 10})
	}
	return append(out, o.Seasonalities...)
}

// Validate reports option values the model cannot use.
func (o Options) Validate() error {
	var errs []error
	if o.NChangepoints < 0 {
		errs = append(errs, fmt.Errorf("n_changepoints must be >= 0, got %d", o.NChangepoints))
	}
	if o.ChangepointRange <= 0 || o.ChangepointRange > 1 {
		errs = append(errs, fmt.Errorf("changepoint_range must be in (0, 1], got %v", o.ChangepointRange))
	}
	if o.ChangepointPriorScale <= 0 {
		errs = append(errs, fmt.Errorf("changepoint_prior_scale must be > 0, got %v", o.ChangepointPriorScale))
	}
	if o.SeasonalityPriorScale <= 0 {
		errs = append(errs, fmt.Errorf("seasonality_prior_scale must be > 0, got %v", o.SeasonalityPriorScale))
	}
	if o.IntervalWidth <= 0 || o.IntervalWidth >= 1 {
		errs = append(errs, fmt.Errorf("interval_width must be in (0, 1), got %v", o.IntervalWidth))
	}
	if o.Horizon < 0 {
		errs = append(errs, fmt.Errorf("horizon must be >= 0, got %d", o.Horizon))
	}
	for _, s := range o.seasonalities() {
		if s.Period <= 0 || s.FourierOrder < 1 {
			errs = append(errs, fmt.Errorf("seasonality %q needs period > 0 and fourier_order >= 1", s.Name))
		}
	}
	return errors.Join(errs...)
}
