// Package services holds the shared error taxonomy and context annotations
// used across pipeline stages. The sentinel markers defined here are the only
// vocabulary the retry scheduler understands; every external capability
// (download, transcription, recognition, vision) wraps its failures with one.
package services
