package csvio

// streaming.go cleans up uploaded bytes before the CSV reader sees them:
//
//   - bomReader drops a leading UTF-8 BOM written by spreadsheet exports
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader tracks bytes read so callers can enforce size limits
//
// Sanitize chains the first two in the order they must run.

import (
	"io"
	"unicode/utf8"
)

var bom = [3]byte{0xEF, 0xBB, 0xBF}

// Sanitize wraps r so that a leading BOM is removed and invalid UTF-8 is
// replaced. The BOM must be stripped before sanitizing, otherwise it
// would be read as text.
func Sanitize(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMReader(r))
}

type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		switch {
		case err == io.ErrUnexpectedEOF || err == io.EOF:
			// short input, nothing more to read afterwards
		case err != nil:
			return 0, err
		}
		if n == 3 && buf == bom {
			n = 0
		}
		b.head = append([]byte(nil), buf[:n]...)
		if err != nil && len(b.head) == 0 {
			return 0, io.EOF
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

type utf8Sanitizer struct {
	r io.Reader
	// bytes of a multi-byte rune split across reads
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// p must be able to hold a split rune plus at least one new byte.
	if len(p) <= len(s.pending) {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}
	atEOF := err == io.EOF

	data := p[:n]
	if isASCII(data) {
		return n, err
	}

	w := 0
	for i := 0; i < len(data); {
		if !atEOF && !utf8.FullRune(data[i:]) {
			s.pending = append(s.pending, data[i:]...)
			break
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			i++
			continue
		}
		copy(data[w:], data[i:i+size])
		w += size
		i += size
	}

	if w == 0 && err == nil {
		// Only a partial rune arrived; read again rather than return 0, nil.
		return s.Read(p)
	}
	return w, err
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// CountingReader counts the bytes passed through it.
type CountingReader struct {
	R         io.Reader
	BytesRead int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.BytesRead += int64(n)
	return n, err
}
