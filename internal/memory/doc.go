// Package memory configures Go's soft memory limit from the container
// environment. The Go heap has to share its cgroup with the ffmpeg
// processes the server spawns, so GOMEMLIMIT is set to a fraction of
// the container limit rather than the whole thing.
package memory
