// Package logging wraps log/slog with the handlers and attribute helpers
// shared by every pipeline component. Console output is used on interactive
// terminals and JSON elsewhere; both honor the same standardized field keys.
package logging
