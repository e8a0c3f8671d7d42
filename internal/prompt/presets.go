package prompt

// Preset holds reusable constraints and rules.
type Preset struct {
	Constraints []string
	Rules       []string
}

// With prepends the presets' constraints and rules to the spec's own.
func (s Spec) With(presets ...Preset) Spec {
	if len(presets) == 0 {
		return s
	}
	var merged Preset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	s.Constraints = append(merged.Constraints, s.Constraints...)
	s.Rules = append(merged.Rules, s.Rules...)
	return s
}

// PresetSections asks for the headed-section layout of OUTPUT_FORMAT.
func PresetSections() Preset {
	return Preset{
		Constraints: []string{
			"Answer only with the sections listed in OUTPUT_FORMAT, in that order.",
			"Put code in a fenced block under its section; never fence the whole answer.",
		},
	}
}

// PresetNoInvent prevents fabricated names.
func PresetNoInvent() Preset {
	return Preset{
		Constraints: []string{
			"Do not invent functions, classes or files that the inputs do not define or ask for.",
		},
	}
}

// PresetWholeFile asks for complete file content rather than diffs.
func PresetWholeFile() Preset {
	return Preset{
		Rules: []string{
			"Always write the complete file. Never answer with a diff, an excerpt or placeholders such as '...'.",
		},
	}
}
