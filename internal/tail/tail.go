package tail

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Reader exposes newly appended lines of a growing log file. It keeps one
// open handle, buffers unterminated trailing bytes between polls, and resets
// to the beginning of the file when the file is replaced or shrinks.
type Reader struct {
	path    string
	file    *os.File
	br      *bufio.Reader
	info    os.FileInfo
	offset  int64
	partial strings.Builder
}

func New(path string) *Reader {
	return &Reader{path: path}
}

// Open establishes the read cursor at end-of-file. Lines present before Open
// are never emitted.
func (r *Reader) Open() error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file = f
	r.info = info
	r.offset = pos
	r.br = bufio.NewReader(f)
	r.partial.Reset()
	return nil
}

// Poll returns all complete lines appended since the previous poll. A nil
// error with no lines means nothing new arrived. Errors are transient: the
// reader recovers on a later poll once the file is accessible again.
func (r *Reader) Poll() ([]string, error) {
	if r.file == nil {
		// The file went missing earlier, or Open never succeeded. Whatever
		// is there now counts as a fresh file, so read it from the start.
		if err := r.reopen(); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(r.path)
	if err != nil {
		r.closeFile()
		return nil, err
	}
	if !os.SameFile(r.info, info) || info.Size() < r.offset {
		// Rotated or truncated. The buffered partial belongs to the old
		// file and is dropped.
		r.closeFile()
		if err := r.reopen(); err != nil {
			return nil, err
		}
	}

	var lines []string
	for {
		chunk, err := r.br.ReadString('\n')
		r.offset += int64(len(chunk))
		if err == nil {
			line := strings.TrimRight(chunk, "\r\n")
			if r.partial.Len() > 0 {
				line = r.partial.String() + line
				r.partial.Reset()
			}
			lines = append(lines, line)
			continue
		}
		if err == io.EOF {
			if chunk != "" {
				r.partial.WriteString(chunk)
			}
			return lines, nil
		}
		r.closeFile()
		return lines, err
	}
}

func (r *Reader) reopen() error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.file = f
	r.info = info
	r.offset = 0
	r.br = bufio.NewReader(f)
	r.partial.Reset()
	return nil
}

func (r *Reader) closeFile() {
	if r.file != nil {
		_ = r.file.Close()
	}
	r.file = nil
	r.br = nil
	r.info = nil
	r.offset = 0
	r.partial.Reset()
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.br = nil
	r.info = nil
	return err
}
