// Package filesystem provides stat and open helpers that retry NFS
// stale file handle errors. Media sources and the transcode cache often
// live on network volumes, where a rolling remount can briefly hand out
// ESTALE on paths that are perfectly fine a moment later.
package filesystem
