// Package stream drains a remote audio stream of known length into a local
// sink in bounded chunks.
//
// # Reader
//
// The Reader pulls at most ChunkSize bytes per call. The last request is
// shrunk to the exact remainder so it never asks for more than the stream
// still owes:
//
//	r := stream.NewReader(stream.Config{ChunkSize: 50000, MaxEmptyReads: 30})
//	res, err := r.Read(ctx, handle, file, nil, nil)
//	if err == nil && !res.Complete() {
//	    // the stream stalled; treat as a failed fetch
//	}
//
// Zero-byte reads are tolerated up to MaxEmptyReads in a row. One more
// ends the read with a partial Result rather than an error.
//
// # Pacing
//
// With a Pacing target the reader sleeps whenever it is ahead of real-time
// playback, so a track of three minutes takes about three minutes to fetch.
// Pacing only ever slows the reader down.
package stream
