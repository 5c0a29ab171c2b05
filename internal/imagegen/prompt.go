package imagegen

import (
	"fmt"

	"github.com/lox/sunspots/internal/forecast"
)

const promptStyle = "Wide panoramic illustration of the Sun seen through a solar telescope, " +
	"muted scientific palette, no text, no lettering, no people."

var phaseScenes = map[forecast.SolarPhase]string{
	forecast.PhaseRising:    "a handful of young sunspot groups emerging at high latitudes, faint faculae brightening the limb",
	forecast.PhaseMaximum:   "a turbulent disk crowded with large sunspot groups near the equator, prominences and a bright flare on the limb",
	forecast.PhaseDeclining: "a few decaying sunspots drifting close to the equator, long coronal streamers fading",
	forecast.PhaseMinimum:   "an almost spotless, calm solar disk with smooth granulation and a quiet corona",
}

// BuildPrompt describes a banner scene for the phase.
func BuildPrompt(phase forecast.SolarPhase) string {
	scene, ok := phaseScenes[phase]
	if !ok {
		scene = "a solar disk with scattered sunspots"
	}
	return fmt.Sprintf("%s The scene shows %s.", promptStyle, scene)
}
