package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robalobadob/numguess/internal/secret"
)

// Preset is a named range and attempt budget.
type Preset struct {
	Name   string       `json:"name"`
	Range  secret.Range `json:"range"`
	Budget int          `json:"budget"`
}

var (
	// Classic is the scored game: 1..100 in 10 attempts.
	Classic = Preset{Name: "classic", Range: secret.Range{Min: 1, Max: 100}, Budget: 10}
	// Quick is the short game: 1..50 in 7 attempts.
	Quick = Preset{Name: "quick", Range: secret.Range{Min: 1, Max: 50}, Budget: 7}

	presets = map[string]Preset{Classic.Name: Classic, Quick.Name: Quick}
)

// PresetByName looks up a preset case-insensitively. Empty means Classic.
func PresetByName(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Classic, nil
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: unknown preset %q (have %s)", ErrConfig, name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames lists known presets in sorted order.
func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
