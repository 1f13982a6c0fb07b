package chunked

import (
	"bufio"
	"errors"
	"io"
)

// NewReader wraps r as a chunked-transfer decoder implementing io.Reader.
// Adapted from the teacher's internal/transport/chunked/reader.go; kept
// close to verbatim since it already validates the two trailer bytes after
// each chunk, matching the spec's "hardened reimplementation" note (§9)
// rather than assuming well-formed servers.
func NewReader(r io.Reader) io.Reader {
	var br *bufio.Reader
	if v, ok := r.(*bufio.Reader); ok {
		br = v
	} else {
		br = bufio.NewReader(r)
	}
	return &reader{Reader: br}
}

type reader struct {
	*bufio.Reader
	currentChunk                   io.Reader
	currentCount, currentChunkSize int64
	done                           bool // terminating zero-size chunk consumed
}

func (c *reader) readChunkHeader() (length uint64, err error) {
	cnt := 0
	isPrefix := true
	for isPrefix {
		var line []byte
		line, isPrefix, err = c.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		for _, b := range line {
			cnt++
			switch {
			case '0' <= b && b <= '9':
				b = b - '0'
			case 'a' <= b && b <= 'f':
				b = b - 'a' + 10
			case 'A' <= b && b <= 'F':
				b = b - 'A' + 10
			default:
				return 0, errors.New("excon: invalid byte in chunk length")
			}
			length <<= 4
			length |= uint64(b)
		}
		if cnt >= 16 {
			return 0, errors.New("excon: http chunk length too large")
		}
	}
	return
}

func (c *reader) Read(p []byte) (n int, err error) {
	if c.done {
		return 0, io.EOF
	}
	if c.currentChunk == nil {
		l, err := c.readChunkHeader()
		if err != nil {
			return n, err
		}
		if l == 0 {
			// consume the final CRLF that follows the zero-size chunk (§4.1).
			if _, err := c.discardCRLF(); err != nil {
				return 0, err
			}
			c.done = true
			return 0, io.EOF
		}
		c.currentChunk = io.LimitReader(c.Reader, int64(l))
		c.currentChunkSize = int64(l)
	}
	n, err = c.currentChunk.Read(p)
	c.currentCount += int64(n)
	if err == io.EOF {
		if c.currentCount != c.currentChunkSize {
			return n, io.ErrUnexpectedEOF
		}
		if _, terr := c.discardCRLF(); terr != nil {
			return n, terr
		}
		c.currentChunk = nil
		c.currentCount = 0
		err = nil
	}
	return
}

// discardCRLF reads and validates the two trailer bytes after a chunk body.
func (c *reader) discardCRLF() (bool, error) {
	dr, err := c.Reader.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return false, err
	}
	dn, err := c.Reader.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return false, err
	}
	if dr != '\r' || dn != '\n' {
		return false, errors.New("excon: malformed chunked encoding")
	}
	return true, nil
}
