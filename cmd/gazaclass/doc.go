// Command gazaclass ingests social media video URLs, deduplicates the
// downloaded footage against an archive, and classifies each unique video
// from its transcript, on-screen text, and optional vision description.
package main
