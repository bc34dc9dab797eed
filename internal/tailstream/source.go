package tailstream

import (
	"fmt"
	"os"
)

// fileSource adapts an os.File to the Source interface. The file is
// expected to be appended to concurrently by another process; Size
// reflects whatever has been flushed to disk at call time.
type fileSource struct {
	f *os.File
}

// OpenFile opens path for reading as a tail-following source. The
// returned Source is exclusively owned by the stream it is given to.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tail source: %w", err)
	}
	return &fileSource{f: f}, nil
}

// FromFile wraps an already opened file as a tail-following source.
// The source takes ownership of the handle.
func FromFile(f *os.File) Source {
	return &fileSource{f: f}
}

func (fs *fileSource) Read(p []byte) (int, error) {
	return fs.f.Read(p)
}

func (fs *fileSource) Seek(offset int64, whence int) (int64, error) {
	return fs.f.Seek(offset, whence)
}

func (fs *fileSource) Size() (int64, error) {
	fi, err := fs.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (fs *fileSource) Close() error {
	return fs.f.Close()
}
