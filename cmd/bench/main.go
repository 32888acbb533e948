package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/tack"
	"github.com/aretw0/tack/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	edits := flag.Int("edits", 5000, "Number of keystroke edits to replay")
	keep := flag.Bool("keep", false, "Keep the benchmark data directory after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "tack_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.TODO()

	// 1. Generate with autosave so the notes file is written in batches.
	app, err := tack.Open(ctx, benchDir, tack.WithLogger(logger), tack.WithDebounce(50*time.Millisecond))
	if err != nil {
		panic(err)
	}
	fmt.Printf("Generating %d notes in %s...\n", *count, benchDir)
	startGen := time.Now()
	ids := make([]string, 0, *count)
	for i := 0; i < *count; i++ {
		note, err := app.CreateNote(ctx, fmt.Sprintf("Note %d", i), "")
		if err != nil {
			panic(err)
		}
		ids = append(ids, note.ID)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	// 2. Replay typing into one note; the scheduler coalesces the writes.
	startEdit := time.Now()
	for i := 0; i < *edits; i++ {
		_, err := app.UpdateNote(ctx, ids[i%len(ids)], func(n *core.Note) error {
			doc, err := n.Document.InsertText(n.Document.Len(), "x")
			n.Document = doc
			return err
		})
		if err != nil {
			panic(err)
		}
	}
	editDuration := time.Since(startEdit)

	startClose := time.Now()
	if err := app.Close(ctx); err != nil {
		panic(err)
	}
	closeDuration := time.Since(startClose)

	// 3. Reopen to measure a cold load of the snapshot.
	startLoad := time.Now()
	app2, err := tack.Open(ctx, benchDir, tack.WithLogger(logger), tack.WithAutosave(false))
	if err != nil {
		panic(err)
	}
	loadDuration := time.Since(startLoad)
	list, err := app2.ListNotes(ctx, core.SortCreatedDesc)
	if err != nil {
		panic(err)
	}
	app2.Close(ctx)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes, %d edits):\n", *count, *edits)
	fmt.Printf("  Edits: %v\n", editDuration)
	fmt.Printf("  Final flush: %v\n", closeDuration)
	fmt.Printf("  Cold load: %v (Items: %d)\n", loadDuration, len(list))
	fmt.Printf("--------------------------------------------------\n")
}
