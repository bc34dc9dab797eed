// Package workers computes worker pool sizes from the available CPU
// budget, honoring container limits and the TRANSCODE_WORKERS override.
package workers
