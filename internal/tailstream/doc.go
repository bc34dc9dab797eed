/*
Package tailstream serves bytes from a file that is still being written.

# Overview

When ffmpeg is transcoding into a cache file, a client can start
downloading the output before the transcode finishes. A plain os.File
read would hit io.EOF at the current end of the file and the response
would end early. Stream papers over that gap: a read that finds no data
waits, bounded in time, for the producer to append more, and only
reports end of stream once the producer has exited with nothing left or
the wait budget is spent.

# Basic Usage

	src, err := tailstream.OpenFile(job.OutputPath)
	if err != nil {
		return err
	}
	st := tailstream.New(src, job, tailstream.DefaultConfig())
	defer st.Close()

	_, err = io.Copy(w, st)

Closing the stream releases the source and fires the job's RequestEnd
hook exactly once, which is how an abandoned consumer (a client that
disconnected mid-download) tells the transcoder it may stop producing.

# Contract

  - Read returns as soon as any bytes are available (partial reads are
    normal), retrying on a fixed interval while the producer runs.
  - A producer that has exited ends the wait immediately; the timeout
    only matters when no job is attached or the producer stalls.
  - ReadContext honors cancellation during the wait between polls, not
    only at the top of the loop.
  - Seek supports io.SeekStart only, bounded by the bytes confirmed so
    far; anything else fails with ErrUnsupported.
  - Size/SetSize carry a length estimate for downstream reporting; the
    true final size is unknown until the producer finishes.

A Stream is single-consumer: one goroutine drives reads. Close may be
called concurrently with a read and wakes it within one poll interval.
*/
package tailstream
