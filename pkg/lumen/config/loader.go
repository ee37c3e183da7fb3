package config

import (
	"math/rand"

	"github.com/cognicore/lumen/pkg/lumen"
	"github.com/cognicore/lumen/pkg/lumen/surrogate"
)

// NewExplainer constructs an Explainer from the configuration.
func (c Config) NewExplainer() *lumen.Explainer {
	var rng *rand.Rand
	if c.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*c.RandomSeed))
	}

	return lumen.New(lumen.Options{
		KernelWidth:      c.KernelWidth,
		Verbose:          c.Verbose,
		ClassNames:       c.ClassNames,
		FeatureSelection: surrogate.SelectionMode(c.FeatureSelection),
		Positional:       c.Positional,
		Rand:             rng,
	})
}
