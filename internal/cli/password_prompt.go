package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
)

var errNotTerminal = errors.New("stdin is not a terminal")

func readPasswordNoEcho(stdin *os.File) ([]byte, error) {
	if stdin == nil {
		return nil, errors.New("stdin unavailable")
	}
	restore, err := disableEcho(stdin)
	switch {
	case errors.Is(err, errNotTerminal):
		return readLine(stdin)
	case err != nil:
		return nil, err
	}
	defer restore()
	return readLine(stdin)
}

// readLine reads up to the next newline one byte at a time so nothing past
// the line is consumed; both password prompts share one stdin.
func readLine(stdin io.Reader) ([]byte, error) {
	if stdin == nil {
		return nil, errors.New("stdin unavailable")
	}
	line := make([]byte, 0, 32)
	buf := make([]byte, 1)
	for {
		n, err := stdin.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			line = append(line, buf[0])
		}
		if errors.Is(err, io.EOF) {
			if len(line) == 0 {
				return nil, io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return bytes.TrimRight(line, "\r"), nil
}
