// Package logging provides leveled logging on top of the standard log
// package. The level comes from the LOG_LEVEL or DEBUG environment
// variables (SetLevel overrides it at runtime), and setting LOG_FILE
// mirrors output into a size-rotated file.
package logging
