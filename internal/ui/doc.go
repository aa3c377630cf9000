// Package ui provides semantic text formatting for fnauth CLI output.
//
// Formatters carry meaning, not just color: Success, Error, Warning, Info,
// Highlight, Code, Flag, and Muted each render appropriately both with and
// without color support. When color is disabled (NO_COLOR, dumb terminals,
// piped output) the formatters fall back to plain-text decorations so the
// semantic distinction survives.
package ui
