// Package variant binds game variants to the engine: per-variant default
// settings, settings validation, and typed reconstruction from snapshots.
//
// Snapshot restore is a tagged factory: the variant discriminant in the
// snapshot selects the concrete constructor. A restored engine is built
// fresh for its variant, never retrofitted from a base instance.
package variant

import (
	"fmt"

	"github.com/feltkit/holdem/internal/engine"
)

// Variant tags a supported game variant.
type Variant string

const (
	// Holdem is no-limit Texas Hold'em, the only fully specified variant.
	// Other community-card variants plug in through the same binding.
	Holdem Variant = "holdem"
)

// Valid reports whether v names a known variant.
func (v Variant) Valid() bool {
	return v == Holdem
}

// Defaults returns the stock table settings for a variant.
func Defaults(v Variant) (engine.Settings, error) {
	switch v {
	case Holdem:
		return engine.Settings{
			SmallBlind:       10,
			BigBlind:         20,
			StartingStack:    1000,
			StackRange:       engine.StackRange{Min: 400, Max: 2000},
			MaxPlayers:       9,
			TurnTimerSeconds: 30,
			TimeBank:         engine.TimeBankConfig{Banks: 3, SecondsPerBank: 30},
			Ante:             engine.AnteConfig{Type: engine.AnteNone},
		}, nil
	default:
		return engine.Settings{}, fmt.Errorf("unknown variant %q", v)
	}
}

// ValidateSettings applies the shared settings contract plus any
// variant-specific constraints.
func ValidateSettings(v Variant, s engine.Settings) error {
	if !v.Valid() {
		return fmt.Errorf("unknown variant %q", v)
	}
	// Hold'em adds nothing beyond the shared contract.
	return s.Validate()
}

// New constructs an engine for the given variant.
func New(v Variant, id, joinCode string, settings engine.Settings, opts ...engine.Option) (*engine.Engine, error) {
	if err := ValidateSettings(v, settings); err != nil {
		return nil, err
	}
	return engine.New(id, joinCode, string(v), settings, opts...)
}

// FromSnapshot restores an engine of the concrete variant named by the
// snapshot's discriminant.
func FromSnapshot(snap engine.Snapshot, opts ...engine.Option) (*engine.Engine, error) {
	switch Variant(snap.State.Variant) {
	case Holdem:
		return engine.FromSnapshot(snap, opts...)
	default:
		return nil, fmt.Errorf("snapshot names unknown variant %q", snap.State.Variant)
	}
}
