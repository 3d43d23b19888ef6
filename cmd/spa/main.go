package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
	"github.com/danielpatrickdp/spa-engine/internal/examine"
	"github.com/danielpatrickdp/spa-engine/internal/store"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region main
func main() {
	dim := flag.Int("dim", envInt("SPA_DIM", 64), "vocabulary dimensionality")
	seed := flag.Uint64("seed", uint64(envInt("SPA_SEED", 0)), "generator seed")
	dbPath := flag.String("db", envOr("SPA_DB", "spa.db"), "path to spa.db for save/load")
	strict := flag.Bool("strict", true, "fail on unknown names instead of generating them")
	tau := flag.Float64("max-similarity", 0.1, "maximum similarity between generated pointers")
	algName := flag.String("algebra", envOr("SPA_ALGEBRA", "hrr"), "binding algebra (hrr or vtb)")
	flag.Parse()

	alg, err := algebra.ByName(*algName)
	if err != nil {
		log.Fatalf("invalid --algebra: %v", err)
	}
	v, err := vocab.New(*dim,
		vocab.WithSeed(*seed),
		vocab.WithStrict(*strict),
		vocab.WithMaxSimilarity(*tau),
		vocab.WithAlgebra(alg),
	)
	if err != nil {
		log.Fatalf("failed to create vocabulary: %v", err)
	}
	s := &session{v: v, dbPath: *dbPath}
	defer s.close()

	fmt.Printf("spa: %d-d %s vocabulary (seed %d, strict %t). Type 'help' for commands.\n", *dim, alg.Name(), *seed, *strict)
	if err := s.run(os.Stdin, os.Stdout); err != nil {
		log.Fatalf("input error: %v", err)
	}
}
// #endregion main

// #region session
var errQuit = errors.New("quit")

type session struct {
	v      *vocab.Vocabulary
	dbPath string
	st     *store.Store
}

func (s *session) run(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		err := s.exec(scanner.Text(), out)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func (s *session) exec(line string, out io.Writer) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return nil
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(out, helpText)
	case "populate":
		if err := s.v.Populate(arg); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d keys\n", s.v.Len())
	case "keys":
		fmt.Fprintln(out, strings.Join(s.v.Keys(), " "))
	case "parse", "text":
		p, err := s.v.Parse(arg)
		if err != nil {
			return err
		}
		text, err := examine.Text(p, s.v, examine.DefaultTextOptions())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  (length %.4f)\n", text, p.Length())
	case "sim":
		left, right, ok := strings.Cut(arg, ";")
		if !ok {
			return fmt.Errorf("usage: sim <expr>; <expr>")
		}
		a, err := s.v.Parse(strings.TrimSpace(left))
		if err != nil {
			return err
		}
		b, err := s.v.Parse(strings.TrimSpace(right))
		if err != nil {
			return err
		}
		c, err := a.Compare(b)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%.4f\n", c)
	case "pairs":
		pairs, err := examine.Pairs(s.v)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			fmt.Fprintln(out, p.Name())
		}
	case "check":
		r := examine.NewHarness(examine.DefaultHarnessConfig()).Run(s.v)
		fmt.Fprintln(out, r.Reason)
		for _, m := range r.Metrics {
			fmt.Fprintf(out, "  %-16s %10.4f\n", m.Name, m.Value)
		}
	case "save":
		st, err := s.store()
		if err != nil {
			return err
		}
		id, err := st.SaveVocabulary(arg, s.v)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s as %s\n", arg, id)
	case "load":
		st, err := s.store()
		if err != nil {
			return err
		}
		v, rec, err := st.LoadVocabulary(arg)
		if err != nil {
			return err
		}
		s.v = v
		fmt.Fprintf(out, "loaded %s (%d-d, %d keys)\n", rec.Name, rec.Dimensions, rec.Pointers)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (s *session) store() (*store.Store, error) {
	if s.st != nil {
		return s.st, nil
	}
	st, err := store.NewStore(s.dbPath)
	if err != nil {
		return nil, err
	}
	s.st = st
	return st, nil
}

func (s *session) close() {
	if s.st != nil {
		s.st.Close()
	}
}

const helpText = `commands:
  populate <spec>        e.g. populate A; B.unitary(); C = A * B
  keys                   list keys in order
  parse <expr>           evaluate and describe a pointer
  sim <expr>; <expr>     cosine similarity
  pairs                  list bound pairs of keys
  check                  run the vocabulary quality checks
  save <name>            save to the database
  load <name>            load the latest saved version
  quit`
// #endregion session

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}
// #endregion helpers
