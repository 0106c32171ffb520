package challenge

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// FillerThresholds are the pass criteria for a filler-word level.
type FillerThresholds struct {
	// RequiredDurationMinutes - minimum session length, in minutes.
	RequiredDurationMinutes int `yaml:"duration_minutes"`

	// MaxFillers - maximum filler words allowed in the session.
	MaxFillers int `yaml:"max_fillers"`
}

// LoudnessThresholds are the pass criteria for a loudness level.
type LoudnessThresholds struct {
	// RMSThreshold - an RMS sample counts as "loud enough" at or above this.
	RMSThreshold float64 `yaml:"rms_threshold"`

	// MinSecondsAbove - required seconds spent above the threshold.
	MinSecondsAbove float64 `yaml:"min_seconds_above"`

	// MinPercentAbove - required percentage of samples above the threshold.
	MinPercentAbove float64 `yaml:"min_percent_above"`
}

// EmotionThresholds are the pass criteria for an emotion-alignment level.
type EmotionThresholds struct {
	// TargetAlignmentPercent - alignment score required to pass. A session
	// may supply its own target, which overrides this default.
	TargetAlignmentPercent float64 `yaml:"target_alignment"`
}

// Level is one difficulty tier within a domain. Immutable after load.
type Level struct {
	Domain Domain
	Number int

	// Exactly one of the following is set, matching the domain.
	Filler   *FillerThresholds
	Loudness *LoudnessThresholds
	Emotion  *EmotionThresholds
}

// DomainPolicy captures per-domain behavioral flags that the original
// disciplines disagree on.
type DomainPolicy struct {
	// SingleAttempt blocks starting a new attempt while one is in progress.
	SingleAttempt bool `yaml:"single_attempt"`

	// AmendableSessions allows a session record to be updated in place
	// until it is finalized, instead of being append-only.
	AmendableSessions bool `yaml:"amendable_sessions"`
}

// Catalog is the static per-domain table of challenge levels.
type Catalog struct {
	levels   map[Domain][]Level
	policies map[Domain]DomainPolicy
}

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// catalogFile mirrors the YAML document structure.
type catalogFile struct {
	Domains map[string]struct {
		Policy DomainPolicy `yaml:",inline"`
		Levels []struct {
			Level           int     `yaml:"level"`
			DurationMinutes int     `yaml:"duration_minutes"`
			MaxFillers      int     `yaml:"max_fillers"`
			RMSThreshold    float64 `yaml:"rms_threshold"`
			MinSecondsAbove float64 `yaml:"min_seconds_above"`
			MinPercentAbove float64 `yaml:"min_percent_above"`
			TargetAlignment float64 `yaml:"target_alignment"`
		} `yaml:"levels"`
	} `yaml:"domains"`
}

// Default returns the catalog built from the embedded configuration.
// It panics on a malformed embedded file; that is a build defect, not a
// runtime condition.
func Default() *Catalog {
	c, err := parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("challenge: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile loads a catalog from a YAML file, for deployments that override
// the built-in level tables.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError("challenge", "LoadFile", shared.ErrInvalidInput, "cannot read catalog file", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("challenge", "Load", shared.ErrInvalidFormat, "malformed catalog yaml", err)
	}

	c := &Catalog{
		levels:   make(map[Domain][]Level),
		policies: make(map[Domain]DomainPolicy),
	}

	for name, def := range file.Domains {
		domain, err := ParseDomain(name)
		if err != nil {
			return nil, shared.WrapError("challenge", "Load", shared.ErrInvalidInput, fmt.Sprintf("unknown domain %q in catalog", name), err)
		}

		levels := make([]Level, 0, len(def.Levels))
		for _, raw := range def.Levels {
			lvl := Level{Domain: domain, Number: raw.Level}
			switch domain {
			case DomainFillerWords:
				lvl.Filler = &FillerThresholds{
					RequiredDurationMinutes: raw.DurationMinutes,
					MaxFillers:              raw.MaxFillers,
				}
			case DomainLoudness:
				lvl.Loudness = &LoudnessThresholds{
					RMSThreshold:    raw.RMSThreshold,
					MinSecondsAbove: raw.MinSecondsAbove,
					MinPercentAbove: raw.MinPercentAbove,
				}
			case DomainEmotion:
				lvl.Emotion = &EmotionThresholds{
					TargetAlignmentPercent: raw.TargetAlignment,
				}
			case DomainPace:
				return nil, shared.NewDomainError("challenge", "Load", shared.ErrInvalidInput, "pace domain does not define challenge levels")
			}
			levels = append(levels, lvl)
		}

		sort.Slice(levels, func(i, j int) bool { return levels[i].Number < levels[j].Number })

		// Levels must be contiguous starting at 1.
		for i, lvl := range levels {
			if lvl.Number != i+1 {
				return nil, shared.NewDomainError("challenge", "Load", shared.ErrInvalidInput,
					fmt.Sprintf("%s levels are not contiguous from 1 (found %d at position %d)", domain, lvl.Number, i+1))
			}
		}

		c.levels[domain] = levels
		c.policies[domain] = def.Policy
	}

	// Every domain must appear, even if with zero levels (pace).
	for _, d := range AllDomains() {
		if _, ok := c.levels[d]; !ok {
			c.levels[d] = nil
			c.policies[d] = DomainPolicy{}
		}
	}

	return c, nil
}

// LevelsFor returns the ordered level sequence for a domain.
func (c *Catalog) LevelsFor(d Domain) ([]Level, error) {
	if !d.IsValid() {
		return nil, shared.ErrUnknownDomain
	}
	return c.levels[d], nil
}

// Lookup returns the level definition for (domain, number).
func (c *Catalog) Lookup(d Domain, number int) (Level, error) {
	if !d.IsValid() {
		return Level{}, shared.ErrUnknownDomain
	}
	levels := c.levels[d]
	if number < 1 || number > len(levels) {
		return Level{}, shared.ErrLevelNotFound
	}
	return levels[number-1], nil
}

// MaxLevel returns the highest level number defined for a domain,
// or 0 when the domain has no gating level structure.
func (c *Catalog) MaxLevel(d Domain) int {
	return len(c.levels[d])
}

// HasLevels reports whether the domain has a gating level structure.
func (c *Catalog) HasLevels(d Domain) bool {
	return len(c.levels[d]) > 0
}

// Policy returns the per-domain behavioral flags.
func (c *Catalog) Policy(d Domain) DomainPolicy {
	return c.policies[d]
}
