// Package tack is the Composition Root for the tack sticky notes core.
//
// It connects the domain layer (notes, window geometry, the open-note
// session and the rich text document model) with the filesystem adapter
// and the autosave scheduler.
//
// Features:
//
//   - **Rich text as runs**: documents are ordered text runs and image
//     references, never a markup string.
//   - **Atomic writes**: notes.json, positions.json and state.json are
//     replaced through a temp file and a rename.
//   - **Content-addressed images**: pasting the same bytes twice stores
//     one file.
//   - **Debounced autosave**: bursts of edits become one write, bounded
//     by a maximum delay, with retries on failure.
//
// Usage:
//
//	app, err := tack.Open(ctx, "", tack.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer app.Close(ctx)
//
//	note, err := app.CreateNote(ctx, "Groceries", "Yellow")
package tack
