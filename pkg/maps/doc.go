// Package maps resolves beatmaps by content hash and fetches missing ones.
//
// A Library answers "do we have this map?" for the spectator. Two
// implementations are provided: MemoryLibrary for tests and SQLLibrary, a
// SQLite index (modernc.org/sqlite, no cgo) that the CLI keeps on disk.
//
// Missing maps are fetched by a Downloader registered per play mode in a
// Registry. S3Downloader pulls from an S3-compatible mirror, checks the MD5
// and records the file in the index.
//
// Scan populates an index from a directory of chart files.
package maps
