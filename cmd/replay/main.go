package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/danielpatrickdp/spa-engine/internal/action"
	"github.com/danielpatrickdp/spa-engine/internal/logging"
	"github.com/danielpatrickdp/spa-engine/internal/replay"
	"github.com/danielpatrickdp/spa-engine/internal/store"
)

// #region main
func main() {
	fixturePath := flag.String("fixture", "", "path to fixture (.json, .yaml)")
	dbPath := flag.String("db", "", "optional spa.db to record selections in")
	jsonOut := flag.Bool("json", false, "output results as JSON")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.yaml [--db path/to/spa.db] [--json]")
		os.Exit(2)
	}
	os.Exit(run(*fixturePath, *dbPath, *jsonOut))
}
// #endregion main

// #region run
func run(fixturePath, dbPath string, jsonOut bool) int {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	var sink func(string, action.Decision)
	if dbPath != "" {
		st, err := store.NewStore(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open db: %v\n", err)
			return 2
		}
		defer st.Close()
		if err := logging.EnsureSchema(st.DB()); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		sink = func(stepID string, d action.Decision) {
			entry, err := logging.FromDecision(d, "replay "+stepID)
			if err == nil {
				err = logging.LogSelection(st.DB(), entry)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: log selection: %v\n", err)
			}
		}
	}

	results, _, err := replay.Replay(f, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 1
	}
	summary := replay.Summarize(results)

	if jsonOut {
		data, err := json.MarshalIndent(struct {
			Results []replay.StepResult `json:"results"`
			Summary replay.Summary      `json:"summary"`
		}{results, summary}, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		printResults(f.Description, results, summary)
	}

	if summary.Failed > 0 {
		return 1
	}
	return 0
}
// #endregion run

// #region output
func printResults(description string, results []replay.StepResult, s replay.Summary) {
	if description != "" {
		fmt.Printf("%s\n\n", description)
	}
	fmt.Printf("%-12s| %-30s| %s\n", "Step", "Winners", "Match")
	fmt.Printf("%-12s+%-30s+%s\n", "------------", "-------------------------------", "------")
	for _, r := range results {
		match := "ok"
		if !r.Passed() {
			match = "DIVERGE: " + strings.Join(r.Mismatches, "; ")
		}
		fmt.Printf("%-12s| %-30s| %s\n", r.StepID, winners(r.Winners), match)
	}
	fmt.Printf("\nSummary: %d steps, %d fired, %d idle, %d diverge\n", s.TotalSteps, s.Fired, s.Idle, s.Failed)
}

func winners(w map[string]string) string {
	blocks := make([]string, 0, len(w))
	for b := range w {
		blocks = append(blocks, b)
	}
	sort.Strings(blocks)
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		a := w[b]
		if a == "" {
			a = "-"
		}
		parts[i] = b + "=" + a
	}
	return strings.Join(parts, " ")
}
// #endregion output
