package examine

// #region text-options
// TextOptions controls how Text renders the vocabulary decomposition of a
// pointer.
type TextOptions struct {
	Threshold    float64 // only keys with similarity above this are listed
	MaxItems     int     // 0 means no limit
	MinimumCount int     // always list at least this many keys
	Join         string
	Terse        bool // omit similarity values
	Normalize    bool
}

// DefaultTextOptions lists every key above 0.1, separated by ";".
func DefaultTextOptions() TextOptions {
	return TextOptions{
		Threshold:    0.1,
		MinimumCount: 1,
		Join:         ";",
	}
}
// #endregion text-options

// #region harness-config
// HarnessConfig holds the tolerances used when checking a vocabulary.
type HarnessConfig struct {
	NormTolerance float64 // generated pointers must have length within 1 ± this
	Slack         float64 // allowed excess over the vocabulary's max similarity
}

// DefaultHarnessConfig returns tight tolerances for freshly generated
// vocabularies.
func DefaultHarnessConfig() HarnessConfig {
	return HarnessConfig{
		NormTolerance: 1e-9,
		Slack:         1e-12,
	}
}
// #endregion harness-config

// #region result
// Metric captures a single check result.
type Metric struct {
	Name  string
	Value float64
	Pass  bool
}

// Result is the output of a vocabulary check.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}
// #endregion result
