// Package store holds the active configuration snapshot.
//
// Readers call Get and receive one complete generation; a concurrent Update
// never yields a mix of old and new routes. Reloader loads a replacement,
// carries backend health forward from the previous generation and publishes
// it, leaving the active snapshot untouched when loading fails.
package store
