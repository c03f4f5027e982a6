package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/lao-tseu-is-alive/go-music-swarm/internal/simulation"
	"github.com/lao-tseu-is-alive/go-music-swarm/internal/store"
	"github.com/lao-tseu-is-alive/go-music-swarm/pkg/behavior"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "generate":
		return runGenerate(ctx, args[1:], out)
	case "list":
		return runList(ctx, args[1:], out)
	case "rate":
		return runRate(ctx, args[1:], out)
	case "next":
		return runNext(ctx, args[1:], out)
	case "show":
		return runShow(ctx, args[1:], out)
	case "select":
		return runSelect(ctx, args[1:], out)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: behaviors <generate|list|rate|next|show|select> [flags]", msg)
}

// storeFlags registers the library location flags shared by every command.
func storeFlags(fs *flag.FlagSet) (kind, path *string) {
	kind = fs.String("store", "sqlite", "library backend: sqlite or memory")
	path = fs.String("db", "behaviors.db", "sqlite database path")
	return kind, path
}

func openStore(ctx context.Context, kind, path string) (store.Store, error) {
	s, err := store.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}
	return s, nil
}

func runGenerate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	kind, path := storeFlags(fs)
	n := fs.Int("n", 1, "number of behaviors to generate")
	maxDepth := fs.Int("max-depth", behavior.DefaultMaxDepth, "maximum tree depth")
	seed := fs.Uint64("seed", 0, "RNG seed (0 = time-based)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n <= 0 {
		return errors.New("n must be > 0")
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	lib, err := openStore(ctx, *kind, *path)
	if err != nil {
		return err
	}
	defer lib.Close()

	rng := rand.New(rand.NewPCG(*seed, 0))
	for i := 0; i < *n; i++ {
		e, records, err := simulation.GenerateEntry(ctx, lib, rng,
			fmt.Sprintf("generated-%d-%d", *seed, i), behavior.GenerateOptions{MaxDepth: *maxDepth})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "id=%s name=%s nodes=%d\n", e.ID, e.Name, len(records))
	}
	return nil
}

func runList(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	kind, path := storeFlags(fs)
	jsonOut := fs.Bool("json", false, "emit entries as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lib, err := openStore(ctx, *kind, *path)
	if err != nil {
		return err
	}
	defer lib.Close()

	entries, err := lib.List(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no behaviors found")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "id=%s name=%s rating=%d created_at=%s\n",
			e.ID, e.Name, e.Rating, e.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runRate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rate", flag.ContinueOnError)
	kind, path := storeFlags(fs)
	id := fs.String("id", "", "behavior id")
	rating := fs.Int("rating", 0, "rating to record (> 0)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("id is required")
	}
	if *rating <= 0 {
		return errors.New("rating must be > 0")
	}

	lib, err := openStore(ctx, *kind, *path)
	if err != nil {
		return err
	}
	defer lib.Close()

	ok, err := lib.Rate(ctx, *id, *rating)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("behavior %s not found", *id)
	}
	fmt.Fprintf(out, "id=%s rating=%d\n", *id, *rating)
	return nil
}

func runNext(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("next", flag.ContinueOnError)
	kind, path := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	lib, err := openStore(ctx, *kind, *path)
	if err != nil {
		return err
	}
	defer lib.Close()

	e, ok, err := lib.NextUnrated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "no unrated behaviors")
		return nil
	}
	fmt.Fprintf(out, "id=%s name=%s\n", e.ID, e.Name)
	return nil
}

func runShow(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	kind, path := storeFlags(fs)
	id := fs.String("id", "", "behavior id")
	raw := fs.Bool("raw", false, "print the stored definition instead of pseudocode")
	useBank := fs.Bool("number-bank", false, "bind number banks as operands")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("id is required")
	}

	lib, err := openStore(ctx, *kind, *path)
	if err != nil {
		return err
	}
	defer lib.Close()

	tree, e, err := simulation.LoadEntry(ctx, lib, *id, behavior.DecodeOptions{UseNumberBank: *useBank})
	if *raw && e.ID != "" {
		_, werr := fmt.Fprintln(out, string(e.Definition))
		return werr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# %s (rating %d, %d nodes)\n%s", e.Name, e.Rating, tree.Size(), tree.String())
	return nil
}

// runSelect picks half of the rated behaviors by binary tournament.
func runSelect(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	kind, path := storeFlags(fs)
	seed := fs.Uint64("seed", 0, "RNG seed (0 = time-based)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}

	lib, err := openStore(ctx, *kind, *path)
	if err != nil {
		return err
	}
	defer lib.Close()

	entries, err := lib.List(ctx)
	if err != nil {
		return err
	}
	var rated []store.Entry
	for _, e := range entries {
		if e.Rating != store.Unrated {
			rated = append(rated, e)
		}
	}
	winners := behavior.Tournament(rand.New(rand.NewPCG(*seed, 0)), rated, func(e store.Entry) int { return e.Rating })
	if len(winners) == 0 {
		fmt.Fprintln(out, "not enough rated behaviors")
		return nil
	}
	for _, e := range winners {
		fmt.Fprintf(out, "id=%s name=%s rating=%d\n", e.ID, e.Name, e.Rating)
	}
	return nil
}
