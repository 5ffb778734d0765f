// Package acquire drives items through the acquisition pipeline.
//
// # Orchestrator
//
// The Orchestrator runs the per-item state machine:
//
//  1. Pending: resolve metadata through the Catalog
//  2. Skipped: not playable, already on disk or already in the ledger
//  3. Fetching: read the stream into a temporary file
//  4. Transcoding: produce the final file
//  5. Tagging: embed metadata (skipped in raw mode)
//  6. Recorded: append the ledger entry
//
// A failure in steps 3 to 5 removes partial files and restarts the item from
// step 1. Ledger and filesystem failures are returned without a retry.
//
// # Batch
//
// A Batch processes requests one after another, pausing between fetches to
// stay under the service's rate limits, and reports through ProgressEvent:
//
//	batch := acquire.NewBatch(orch, acquire.DefaultBatchConfig(), func(e acquire.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//	summary, err := batch.Run(ctx, requests)
//
// # Errors
//
// Failures are classified with errors.Is against ErrMetadataUnavailable,
// ErrStreamUnavailable, ErrIncompleteStream, ErrEncoding, ErrTagging, ErrIO
// and ErrRetriesExhausted.
package acquire
