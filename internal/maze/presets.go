package maze

import (
	"fmt"
	"sort"
)

var presets = map[string][]string{
	// The 4x3 world from the textbook grid-world example.
	"classic": {
		"...+",
		".#.-",
		"S...",
	},
	// A narrow bridge between two pits; slipping is expensive.
	"bridge": {
		"#-----#",
		"S.....+",
		"#-----#",
	},
	// Walk along the cliff edge or take the long way round.
	"cliff": {
		"......",
		"......",
		"S----+",
	},
}

// Preset returns the spec for a built-in maze with default rewards and
// locomotion.
func Preset(name string) (Spec, error) {
	layout, ok := presets[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown maze %q (available: %v)", name, PresetNames())
	}
	return Spec{
		Name:               name,
		Layout:             append([]string(nil), layout...),
		StepReward:         DefaultStepReward,
		SuccessProbability: DefaultSuccessProbability,
		TerminalRewards:    DefaultTerminalRewards(),
	}, nil
}

// PresetNames lists the built-in mazes alphabetically.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
