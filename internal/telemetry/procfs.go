package telemetry

import (
	"bytes"
	"io"
	"os"
)

// readInto fills buf with a single read of path and returns the complete
// lines it got. A pseudo-file larger than buf is cut at the last newline.
func readInto(path string, buf []byte) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	data := buf[:n]
	if n == len(buf) {
		if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
			data = data[:i+1]
		}
	}

	return data, nil
}

// nextLine splits the first line off data.
func nextLine(data []byte) (line, rest []byte) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i], data[i+1:]
	}

	return data, nil
}
