package measurement

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds a single record line.
const maxLineBytes = 64 * 1024

// Reader decodes records from a line-oriented stream. Blank lines and lines
// starting with '#' are ignored.
type Reader struct {
	scan *bufio.Scanner
	line int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Reader{scan: scan}
}

// Next returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.scan.Scan() {
		r.line++
		text := strings.TrimSpace(r.scan.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rec, err := ParseRecord(text)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return rec, nil
	}
	if err := r.scan.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

// Line reports the number of the last line consumed.
func (r *Reader) Line() int { return r.line }

// ReadAll decodes every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	rd := NewReader(r)
	var out []Record
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Stream decodes records from r and delivers them on out until the stream
// ends, a record fails to parse, or ctx is cancelled. out is closed on return.
//
// Reading happens on a separate goroutine so that a blocking read (a serial
// port with no traffic) does not hold up cancellation.
func Stream(ctx context.Context, r io.Reader, out chan<- Record) error {
	defer close(out)

	rd := NewReader(r)
	recChan := make(chan Record)
	errChan := make(chan error, 1)

	go func() {
		defer close(recChan)
		for {
			rec, err := rd.Next()
			if err != nil {
				if err != io.EOF {
					errChan <- err
				}
				return
			}
			select {
			case recChan <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errChan:
			return err

		case rec, ok := <-recChan:
			if !ok {
				select {
				case err := <-errChan:
					return err
				default:
					return nil
				}
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
