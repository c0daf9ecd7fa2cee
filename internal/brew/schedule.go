// Package brew implements the pour-over schedule, the brew state machine and
// the clock driver that advances it.
package brew

import "fmt"

// TotalDuration is the elapsed second at which a brew completes.
const TotalDuration = 210

// NoStep is returned by ActiveStepIndex when no step has started yet.
const NoStep = -1

// Preset is a bean-mass configuration with its cumulative pour targets in grams.
type Preset struct {
	BeansGrams int
	Pours      [4]int
}

// TotalWater returns the final cumulative pour target.
func (p Preset) TotalWater() int {
	return p.Pours[len(p.Pours)-1]
}

// String implements fmt.Stringer.
func (p Preset) String() string {
	return fmt.Sprintf("%dg beans / %dg water", p.BeansGrams, p.TotalWater())
}

var presets = []Preset{
	{BeansGrams: 15, Pours: [4]int{35, 90, 150, 225}},
	{BeansGrams: 20, Pours: [4]int{45, 120, 200, 300}},
}

// DefaultBeans is the bean amount selected when nothing else is configured.
const DefaultBeans = 20

// Presets returns the available presets ordered by bean mass.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// PresetFor returns the preset for a bean amount in grams.
func PresetFor(grams int) (Preset, bool) {
	for _, p := range presets {
		if p.BeansGrams == grams {
			return p, true
		}
	}
	return Preset{}, false
}

// DefaultPreset returns the preset for DefaultBeans.
func DefaultPreset() Preset {
	p, _ := PresetFor(DefaultBeans)
	return p
}

// Step is one instruction of the brew schedule.
type Step struct {
	OffsetSeconds int    `yaml:"offset"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Action        string `yaml:"action"`
}

// Steps builds the six-step schedule with texts bound to the preset's pours.
func Steps(p Preset) []Step {
	return []Step{
		{
			OffsetSeconds: 0,
			Title:         "Bloom",
			Description:   fmt.Sprintf("Valve closed, pour about 90°C water to %dg, just enough to soak the grounds (immersion)", p.Pours[0]),
			Action:        "Pour",
		},
		{
			OffsetSeconds: 40,
			Title:         "First percolation",
			Description:   fmt.Sprintf("Open the valve and pour up to %dg right away (percolation)", p.Pours[1]),
			Action:        "Open, pour",
		},
		{
			OffsetSeconds: 90,
			Title:         "Second percolation",
			Description:   fmt.Sprintf("Pour up to %dg (percolation)", p.Pours[2]),
			Action:        "Pour",
		},
		{
			OffsetSeconds: 130,
			Title:         "Cool down",
			Description:   fmt.Sprintf("Close the valve, let the water drop to 70-80°C, then pour up to %dg (immersion)", p.Pours[3]),
			Action:        "Close, pour",
		},
		{
			OffsetSeconds: 165,
			Title:         "Final drawdown",
			Description:   "Open the valve and let it drain",
			Action:        "Open",
		},
		{
			OffsetSeconds: TotalDuration,
			Title:         "Done",
			Description:   "Brew complete. Enjoy your coffee",
			Action:        "Done",
		},
	}
}

// ActiveStepIndex returns the index of the latest step whose offset is at or
// before elapsedSeconds, or NoStep.
func ActiveStepIndex(elapsedSeconds int, steps []Step) int {
	for i := len(steps) - 1; i >= 0; i-- {
		if elapsedSeconds >= steps[i].OffsetSeconds {
			return i
		}
	}
	return NoStep
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
