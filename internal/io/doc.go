// Package ioutils provides file system and image processing helpers for the
// acquisition pipeline.
//
// # File Operations
//
//	// Copy the raw stream next to the final file
//	err := ioutils.CopyFile(ctx, tempPath, finalPath)
//
//	// Write a playlist without leaving a half-written file behind
//	err := ioutils.WriteFileAtomic("/music/Album/Album.m3u", content)
//
//	// Skip items whose output is already on disk
//	if ioutils.NonEmptyFile(finalPath) { ... }
//
// # Cover Art
//
// The ImageService prepares artwork before it is embedded:
//
//	svc := ioutils.NewImageService()
//	jpeg, err := svc.PrepareArtwork(ctx, imageData, 1200)
package ioutils
