// Package download runs a tunegrab session from user input to files on disk.
//
// # Manager
//
// The Manager coordinates the entire process:
//
//  1. Parse input references (track:ID, album:ID, open.* URLs)
//  2. Expand albums, playlists, shows and artists through the gateway
//  3. Lock the output roots against concurrent runs
//  4. Acquire every item in order: fetch, convert, tag, record
//  5. Generate playlists (optional)
//
// # Basic Usage
//
//	manager, err := download.NewManager(settings, func(event acquire.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	err = manager.Initialize(ctx, "album:1DFixLWuPkv3KT3TnV35m3 track:4uLU6hMCjMI75M1A2tKUQC")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := manager.StartDownloads(ctx)
//
// # Progress Tracking
//
// Status lines arrive through the ProgressFunc. Byte and file counters
// are polled with GetProgress, which is safe to call from another
// goroutine while StartDownloads runs.
package download
