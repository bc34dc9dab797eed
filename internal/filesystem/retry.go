package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tailcast/internal/logging"
)

// RetryConfig configures retry behavior for filesystem operations.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	b.MaxInterval = c.MaxBackoff
	return backoff.WithMaxRetries(b, uint64(c.MaxRetries))
}

// isStaleError checks if an error is an NFS stale file handle error.
func isStaleError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// StatWithRetry performs os.Stat, retrying stale file handle errors.
// Any other error is returned immediately.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo

	op := func() error {
		var err error
		info, err = os.Stat(path)
		if err == nil {
			return nil
		}
		if !isStaleError(err) {
			return backoff.Permanent(err)
		}
		logging.Debug("NFS stat of %s returned stale handle, retrying", path)
		return err
	}

	if err := backoff.Retry(op, config.policy()); err != nil {
		if isStaleError(err) {
			logging.Warn("NFS stat of %s still stale after %d retries", path, config.MaxRetries)
		}
		return nil, err
	}
	return info, nil
}

// OpenWithRetry performs os.Open, retrying stale file handle errors.
// Any other error is returned immediately.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File

	op := func() error {
		var err error
		file, err = os.Open(path)
		if err == nil {
			return nil
		}
		if !isStaleError(err) {
			return backoff.Permanent(err)
		}
		logging.Debug("NFS open of %s returned stale handle, retrying", path)
		return err
	}

	if err := backoff.Retry(op, config.policy()); err != nil {
		if isStaleError(err) {
			logging.Warn("NFS open of %s still stale after %d retries", path, config.MaxRetries)
		}
		return nil, err
	}
	return file, nil
}
