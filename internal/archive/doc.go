// Package archive implements the append-only ledger of completed
// acquisitions.
//
// Each item kind has its own ledger file in its output root
// (".song_archive" for tracks, ".episode_archive" for episodes). A line
// records one completed acquisition:
//
//	<item id>\t<YYYY-MM-DD HH:MM:SS>\t<author>\t<title>\t<file name>
//
// The ledger gates re-downloads: Contains reports whether an id was ever
// recorded. The whole file is read on every lookup, and nothing is ever
// rewritten or removed. Writers are not coordinated, so only one process
// should append to a given ledger at a time.
package archive
