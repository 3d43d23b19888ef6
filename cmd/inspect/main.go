package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/spa-engine/internal/examine"
	"github.com/danielpatrickdp/spa-engine/internal/logging"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/store"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region main
func main() {
	dbPath := flag.String("db", envOr("SPA_DB", ""), "path to spa.db")
	name := flag.String("name", "", "show the latest version of one vocabulary")
	version := flag.String("version", "", "show one vocabulary version")
	selections := flag.Int("selections", 0, "show N most recent selection log entries")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/spa.db [--name vocab | --version id | --selections N] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *selections > 0:
		err = runSelectionMode(st, *selections, *jsonOut)
	case *name != "" || *version != "":
		err = runDetailMode(st, *name, *version, *jsonOut)
	default:
		err = runListMode(st, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
// #endregion main

// #region list-mode
type listRow struct {
	Name          string  `json:"name"`
	VersionID     string  `json:"version_id"`
	Dimensions    int     `json:"dimensions"`
	Pointers      int     `json:"pointers"`
	Strict        bool    `json:"strict"`
	MaxSimilarity float64 `json:"max_similarity"`
	CreatedAt     string  `json:"created_at"`
}

func runListMode(st *store.Store, jsonOut bool) error {
	recs, err := st.ListVocabularies()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no vocabularies found")
		return nil
	}
	rows := make([]listRow, len(recs))
	for i, r := range recs {
		rows[i] = listRow{
			Name:          r.Name,
			VersionID:     r.VersionID,
			Dimensions:    r.Dimensions,
			Pointers:      r.Pointers,
			Strict:        r.Config.Strict,
			MaxSimilarity: r.Config.MaxSimilarity,
			CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-16s  %-8s  %5s  %8s  %-6s  %6s  %s\n", "Name", "Version", "Dim", "Pointers", "Strict", "Tau", "Time")
	for _, r := range rows {
		fmt.Printf("%-16s  %-8s  %5d  %8d  %-6t  %6.3f  %s\n",
			r.Name, shortID(r.VersionID), r.Dimensions, r.Pointers, r.Strict, r.MaxSimilarity, r.CreatedAt)
	}
	return nil
}
// #endregion list-mode

// #region detail-mode
type detailOutput struct {
	listRow
	ParentID string         `json:"parent_id,omitempty"`
	Keys     []keyRow       `json:"keys"`
	Check    examine.Result `json:"check"`
	Versions []string       `json:"versions"`
}

type keyRow struct {
	Name      string  `json:"name"`
	Generated bool    `json:"generated"`
	Length    float64 `json:"length"`
	Nearest   string  `json:"nearest,omitempty"`
}

func runDetailMode(st *store.Store, name, version string, jsonOut bool) error {
	var (
		v   *vocab.Vocabulary
		rec store.VocabRecord
		err error
	)
	if version != "" {
		v, rec, err = st.LoadVersion(version)
	} else {
		v, rec, err = st.LoadVocabulary(name)
	}
	if err != nil {
		return err
	}
	versions, err := st.Versions(rec.Name)
	if err != nil {
		return err
	}

	out := detailOutput{
		listRow: listRow{
			Name:          rec.Name,
			VersionID:     rec.VersionID,
			Dimensions:    rec.Dimensions,
			Pointers:      rec.Pointers,
			Strict:        rec.Config.Strict,
			MaxSimilarity: rec.Config.MaxSimilarity,
			CreatedAt:     rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		},
		ParentID: rec.ParentID,
		Check:    examine.NewHarness(examine.DefaultHarnessConfig()).Run(v),
		Versions: versions,
	}
	opts := examine.DefaultTextOptions()
	opts.Terse = true
	for _, e := range v.Entries() {
		p := pointer.Shared(e.Vector, v, e.Name)
		row := keyRow{Name: e.Name, Generated: e.Generated, Length: p.Length()}
		if others, err := v.CreateSubset(without(v.Keys(), e.Name)); err == nil && others.Len() > 0 {
			row.Nearest, _ = examine.Text(p, others, opts)
		}
		out.Keys = append(out.Keys, row)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Vocabulary: %s (version %s, parent %s)\n", out.Name, out.VersionID, orDash(out.ParentID))
	fmt.Printf("Dimensions: %d  Strict: %t  Max similarity: %.3f  Versions: %d\n\n",
		out.Dimensions, out.Strict, out.MaxSimilarity, len(out.Versions))
	fmt.Printf("%-16s  %-9s  %8s  %s\n", "Key", "Generated", "Length", "Similar to")
	for _, k := range out.Keys {
		fmt.Printf("%-16s  %-9t  %8.4f  %s\n", k.Name, k.Generated, k.Length, orDash(k.Nearest))
	}
	fmt.Printf("\nCheck: %s\n", out.Check.Reason)
	for _, m := range out.Check.Metrics {
		fmt.Printf("  %-16s %10.4f  %s\n", m.Name, m.Value, passFail(m.Pass))
	}
	return nil
}
// #endregion detail-mode

// #region selection-mode
func runSelectionMode(st *store.Store, n int, jsonOut bool) error {
	if err := logging.EnsureSchema(st.DB()); err != nil {
		return err
	}
	entries, err := logging.ListSelections(st.DB(), n)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(entries)
	}
	fmt.Printf("%-8s  %-12s  %-12s  %-24s  %s\n", "Step", "Block", "Winner", "Utilities", "Time")
	for _, e := range entries {
		fmt.Printf("%-8s  %-12s  %-12s  %-24s  %s\n",
			shortID(e.StepID), e.Block, orDash(e.Winner), e.UtilitiesJSON, e.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
// #endregion selection-mode

// #region output
func without(keys []string, name string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != name {
			out = append(out, k)
		}
	}
	return out
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "FAIL"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion output
