// Package gateway adapts the streaming bridge's JSON API to the acquisition
// pipeline.
//
// The package handles three concerns:
//
//  1. Parsing user references (track:ID, album:ID, open.* URLs)
//  2. Resolving item metadata, artist genres and content streams
//  3. Expanding albums, playlists, shows and artists into item requests
//
// # References
//
//	refs, err := gateway.ParseRefs([]string{
//	    "track:4uLU6hMCjMI75M1A2tKUQC",
//	    "https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3",
//	})
//
// # Expansion
//
//	gw, _ := gateway.New(settings.GatewayURL, client, logging.Component("gateway"))
//	reqs, err := gw.Expand(ctx, refs)
//
// A *Gateway satisfies acquire.Catalog, acquire.Streamer and
// acquire.GenreLookup and is passed to the orchestrator for all three.
package gateway
