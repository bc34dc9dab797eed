// Package handlers implements the HTTP API: starting and managing
// transcode jobs, progressive streaming of their growing output files,
// job history, previews, and the health and version endpoints.
package handlers
