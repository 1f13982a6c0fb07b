package socket

import (
	"bufio"
	"io"
)

// lineReader wraps a *bufio.Reader for the two operations the Socket
// interface uses (§6): byte reads and line reads through the next "\n".
type lineReader struct {
	*bufio.Reader
}

func newLineReader(r io.Reader) lineReader {
	return lineReader{bufio.NewReaderSize(r, 4096)}
}

// ReadLine reads through the next '\n' inclusive, as required by §6. Unlike
// (*bufio.Reader).ReadLine, it never splits a long line into prefixes.
func (l lineReader) ReadLine() (string, error) {
	return l.ReadString('\n')
}
