// Package mediatypes classifies source files by extension. The
// transcode endpoint uses it to reject requests for files ffmpeg has no
// business opening before a process is ever spawned.
package mediatypes
