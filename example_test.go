package tack_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/tack"
	"github.com/aretw0/tack/pkg/core"
	"github.com/aretw0/tack/pkg/document"
)

// Example_basic creates a note, formats it and reads it back after a restart.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "tack-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	app, err := tack.Open(ctx, tmpDir)
	if err != nil {
		log.Fatal(err)
	}

	note, err := app.CreateNote(ctx, "Groceries", "Green")
	if err != nil {
		log.Fatal(err)
	}
	_, err = app.UpdateNote(ctx, note.ID, func(n *core.Note) error {
		doc, err := n.Document.InsertText(0, "Milk\nEggs")
		if err != nil {
			return err
		}
		n.Document, err = doc.Apply(document.Range{Start: 0, End: 4}, document.SetBold(true))
		return err
	})
	if err != nil {
		log.Fatal(err)
	}
	// Close writes whatever the autosave scheduler has not written yet.
	if err := app.Close(ctx); err != nil {
		log.Fatal(err)
	}

	app, err = tack.Open(ctx, tmpDir)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close(ctx)

	got, err := app.GetNote(ctx, note.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s (%s): %q bold=%v\n", got.Title, got.Color.Name(), got.PlainText(), got.Document.FormatAt(0).Bold)
	// Output:
	// Groceries (Green): "Milk\nEggs" bold=true
}

// Example_quickNote shows how quick notes take their title from the content.
func Example_quickNote() {
	tmpDir, err := os.MkdirTemp("", "tack-quick-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	ctx := context.Background()
	app, err := tack.Open(ctx, tmpDir, tack.WithAutosave(false))
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close(ctx)

	note, err := app.QuickNote(ctx, "Call the plumber about the kitchen sink tomorrow\nbefore noon")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(note.Title)
	// Output:
	// Call the plumber about the kit...
}
