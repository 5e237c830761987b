package scheduler

import "github.com/spf13/viper"

// PolicyParams is the tuning configuration of the scheduler. It is
// built once, before the scheduler is constructed, and never mutated
// afterwards.
type PolicyParams struct {
	// MinGreen and MaxGreen bound every green duration the scheduler
	// emits.
	MinGreen float64
	MaxGreen float64
	// YellowDuration and AllRedDuration are the fixed lengths of the
	// inserted safety phases.
	YellowDuration float64
	AllRedDuration float64
	// RRCycleOrder is the round-robin cycle of green phases.
	RRCycleOrder []PhaseID
	// LowLoadThreshold is the mean-queue cutoff below which the
	// meta-scheduler picks Round Robin.
	LowLoadThreshold float64
	// HighVarianceThreshold is the queue-variance cutoff above which
	// the meta-scheduler picks SJF.
	HighVarianceThreshold float64
	// SJFHorizon is the look-ahead window for estimated arrivals.
	SJFHorizon float64
	// EmergencyPreemptBuffer is the ETA at or below which an emergency
	// vehicle is treated as urgent.
	EmergencyPreemptBuffer float64
	// EmergencyClearDuration is the base green granted to an urgent
	// emergency.
	EmergencyClearDuration float64
	// MinSwitchInterval is reserved: the minimum wall time between
	// non-emergency phase switches. It is parsed and carried but not
	// enforced.
	MinSwitchInterval float64
	// Debug enables decision-explanation logging.
	Debug bool
}

// DefaultParams returns the standard tuning.
func DefaultParams() PolicyParams {
	return PolicyParams{
		MinGreen:               7.0,
		MaxGreen:               60.0,
		YellowDuration:         3.0,
		AllRedDuration:         1.0,
		RRCycleOrder:           []PhaseID{NSGreen, EWGreen},
		LowLoadThreshold:       2.0,
		HighVarianceThreshold:  4.0,
		SJFHorizon:             30.0,
		EmergencyPreemptBuffer: 10.0,
		EmergencyClearDuration: 15.0,
		MinSwitchInterval:      5.0,
		Debug:                  false,
	}
}

// LoadParams builds PolicyParams from a viper instance, typically
// backed by a YAML file. Unset keys fall back to the defaults.
func LoadParams(v *viper.Viper) PolicyParams {
	d := DefaultParams()
	v.SetDefault("min_green", d.MinGreen)
	v.SetDefault("max_green", d.MaxGreen)
	v.SetDefault("yellow_duration", d.YellowDuration)
	v.SetDefault("all_red_duration", d.AllRedDuration)
	v.SetDefault("rr_cycle_order", []string{string(NSGreen), string(EWGreen)})
	v.SetDefault("low_load_threshold", d.LowLoadThreshold)
	v.SetDefault("high_variance_threshold", d.HighVarianceThreshold)
	v.SetDefault("sjf_horizon", d.SJFHorizon)
	v.SetDefault("emergency_preempt_buffer", d.EmergencyPreemptBuffer)
	v.SetDefault("emergency_clear_duration", d.EmergencyClearDuration)
	v.SetDefault("min_switch_interval", d.MinSwitchInterval)
	v.SetDefault("debug", d.Debug)

	cycle := make([]PhaseID, 0, 2)
	for _, p := range v.GetStringSlice("rr_cycle_order") {
		cycle = append(cycle, PhaseID(p))
	}
	return PolicyParams{
		MinGreen:               v.GetFloat64("min_green"),
		MaxGreen:               v.GetFloat64("max_green"),
		YellowDuration:         v.GetFloat64("yellow_duration"),
		AllRedDuration:         v.GetFloat64("all_red_duration"),
		RRCycleOrder:           cycle,
		LowLoadThreshold:       v.GetFloat64("low_load_threshold"),
		HighVarianceThreshold:  v.GetFloat64("high_variance_threshold"),
		SJFHorizon:             v.GetFloat64("sjf_horizon"),
		EmergencyPreemptBuffer: v.GetFloat64("emergency_preempt_buffer"),
		EmergencyClearDuration: v.GetFloat64("emergency_clear_duration"),
		MinSwitchInterval:      v.GetFloat64("min_switch_interval"),
		Debug:                  v.GetBool("debug"),
	}
}

// clip bounds v to [lo, hi].
func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
