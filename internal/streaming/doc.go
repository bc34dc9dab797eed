/*
Package streaming pumps bytes from a tail-following stream to an HTTP
response with timeout protection.

# Overview

Serving a file that ffmpeg is still writing has two slow ends: the
producer may pause before appending more bytes, and the client may
drain them slowly or vanish entirely. The read side is handled by the
tailstream package; this package handles the write side, so a stalled
or disconnected client cannot hold a handler goroutine (and with it a
running ffmpeg process) forever.

# Usage

	st := tailstream.New(src, job, tailstream.DefaultConfig())
	defer st.Close()

	config := streaming.DefaultConfig()
	written, err := streaming.Pump(r.Context(), w, st, config)
	if errors.Is(err, streaming.ErrClientGone) {
		// Client left; closing the stream already told the producer.
		return
	}

# Error Handling

Pump returns nil once the source reports end of stream. Abnormal ends
map to sentinel errors checkable with errors.Is:

  - ErrClientGone: the request context was canceled (client disconnect)
  - ErrWriteTimeout: a single write exceeded WriteTimeout, or the
    stream as a whole exceeded MaxDuration
  - ErrStreamCanceled: the stream was cut short programmatically

Each chunk is flushed after writing, so clients can begin playback
while the transcode is still running.
*/
package streaming
