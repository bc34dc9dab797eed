/*
Package transcoder manages ffmpeg jobs whose output is streamed while
it is still being produced.

Each Start call spawns one ffmpeg process writing fragmented MP4 into a
cache file. The returned Job tracks producer progress (bytes written so
far), consumer progress (bytes served so far) and the process lifecycle.
Jobs satisfy the tailstream.Job interface, so a tail-following stream
over the output file can bound its seeks by confirmed bytes, account
served bytes, and kill an orphaned transcode when its consumer goes
away.

Concurrency is bounded by a weighted semaphore sized from the worker
budget; Start fails fast with ErrBusy instead of queueing, since a
client waiting on a queued transcode would see its stream time out
anyway.
*/
package transcoder
