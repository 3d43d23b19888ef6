package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/spa-engine/internal/action"
	"github.com/danielpatrickdp/spa-engine/internal/algebra"
	"github.com/danielpatrickdp/spa-engine/internal/cast"
	"github.com/danielpatrickdp/spa-engine/internal/model"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region fixture-types
// Fixture describes a model and a sequence of steps to run against it.
type Fixture struct {
	Description  string              `json:"description" yaml:"description"`
	Vocabularies []FixtureVocabulary `json:"vocabularies" yaml:"vocabularies"`
	States       []FixtureState      `json:"states" yaml:"states"`
	Blocks       []FixtureBlock      `json:"blocks" yaml:"blocks"`
	Translate    FixtureTranslate    `json:"translate" yaml:"translate"`
	Steps        []FixtureStep       `json:"steps" yaml:"steps"`
}

// FixtureVocabulary declares a vocabulary and its populate spec.
type FixtureVocabulary struct {
	Name          string   `json:"name" yaml:"name"`
	Dimensions    int      `json:"dimensions" yaml:"dimensions"`
	Seed          uint64   `json:"seed" yaml:"seed"`
	Algebra       string   `json:"algebra,omitempty" yaml:"algebra,omitempty"` // "hrr" (default) | "vtb"
	Strict        *bool    `json:"strict,omitempty" yaml:"strict,omitempty"`
	MaxSimilarity *float64 `json:"max_similarity,omitempty" yaml:"max_similarity,omitempty"`
	Populate      string   `json:"populate" yaml:"populate"`
}

// FixtureState declares a named state slot.
type FixtureState struct {
	Name  string `json:"name" yaml:"name"`
	Vocab string `json:"vocab" yaml:"vocab"`
}

// FixtureBlock declares an action-selection block.
type FixtureBlock struct {
	Name      string          `json:"name" yaml:"name"`
	Threshold *float64        `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Actions   []FixtureAction `json:"actions" yaml:"actions"`
	Routes    []string        `json:"routes,omitempty" yaml:"routes,omitempty"`
}

// FixtureAction is one candidate action of a block.
type FixtureAction struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Utility string   `json:"utility" yaml:"utility"`
	Effects []string `json:"effects" yaml:"effects"`
}

// FixtureTranslate configures translate casts.
type FixtureTranslate struct {
	Normalize bool   `json:"normalize,omitempty" yaml:"normalize,omitempty"`
	Solver    string `json:"solver,omitempty" yaml:"solver,omitempty"` // "outer" (default) | "lstsq"
}

// FixtureStep assigns states, runs one decision cycle and checks the outcome.
type FixtureStep struct {
	ID     string            `json:"id" yaml:"id"`
	Set    []string          `json:"set,omitempty" yaml:"set,omitempty"`       // "state = expression"
	Expect map[string]string `json:"expect,omitempty" yaml:"expect,omitempty"` // block -> action name, "" for none
	Checks []FixtureCheck    `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// FixtureCheck requires a state to be similar to a key after the step.
type FixtureCheck struct {
	State string  `json:"state" yaml:"state"`
	Key   string  `json:"key" yaml:"key"`
	Min   float64 `json:"min" yaml:"min"`
}
// #endregion fixture-types

// #region fixture-loader
// LoadFixture reads a JSON or YAML fixture; the format follows the file
// extension.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Build constructs the fixture's network. Vocabularies are populated in
// declaration order, so the result is deterministic for fixed seeds.
func (f *Fixture) Build() (*model.Network, error) {
	return model.Build(func(b *model.Builder) error {
		for _, fv := range f.Vocabularies {
			alg, err := algebra.ByName(fv.Algebra)
			if err != nil {
				return fmt.Errorf("vocabulary %s: %w", fv.Name, err)
			}
			opts := []vocab.Option{vocab.WithSeed(fv.Seed), vocab.WithAlgebra(alg)}
			if fv.Strict != nil {
				opts = append(opts, vocab.WithStrict(*fv.Strict))
			}
			if fv.MaxSimilarity != nil {
				opts = append(opts, vocab.WithMaxSimilarity(*fv.MaxSimilarity))
			}
			v, err := b.Vocabulary(fv.Name, fv.Dimensions, opts...)
			if err != nil {
				return err
			}
			if fv.Populate != "" {
				if err := v.Populate(fv.Populate); err != nil {
					return fmt.Errorf("populate %s: %w", fv.Name, err)
				}
			}
		}
		for _, s := range f.States {
			if err := b.State(s.Name, s.Vocab); err != nil {
				return err
			}
		}
		for _, fb := range f.Blocks {
			block, err := fb.toBlock()
			if err != nil {
				return err
			}
			if err := b.Actions(block); err != nil {
				return err
			}
		}
		opts, err := f.Translate.options()
		if err != nil {
			return err
		}
		return b.TranslateWith(opts...)
	})
}

func (fb *FixtureBlock) toBlock() (*action.Block, error) {
	var opts []action.Option
	if fb.Threshold != nil {
		opts = append(opts, action.WithThreshold(*fb.Threshold))
	}
	block := action.NewBlock(fb.Name, opts...)
	for _, a := range fb.Actions {
		if err := block.AddNamed(a.Name, a.Utility, a.Effects...); err != nil {
			return nil, fmt.Errorf("block %s: %w", fb.Name, err)
		}
	}
	if len(fb.Routes) > 0 {
		if err := block.Route(fb.Routes...); err != nil {
			return nil, fmt.Errorf("block %s: %w", fb.Name, err)
		}
	}
	return block, nil
}

func (ft FixtureTranslate) options() ([]cast.Option, error) {
	var opts []cast.Option
	if ft.Normalize {
		opts = append(opts, cast.WithNormalize())
	}
	switch ft.Solver {
	case "", "outer":
	case "lstsq":
		opts = append(opts, cast.WithSolver(cast.LeastSquares))
	default:
		return nil, fmt.Errorf("unknown translate solver %q", ft.Solver)
	}
	return opts, nil
}
// #endregion fixture-loader
