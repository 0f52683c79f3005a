// Package trace reads cache configurations and access traces and reports what
// the simulator did with them.
package trace

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
)

var geometryFields = []string{"set count", "associativity", "line size"}

// ReadGeometry reads the set count, the associativity, and the line size, in
// that order, from lines of the form "<label>: <integer>". The label is
// ignored. Blank lines are skipped and lines after the third are not read.
func ReadGeometry(r io.Reader) (cache.Geometry, error) {
	scanner := bufio.NewScanner(r)
	values := make([]int, 0, len(geometryFields))

	for len(values) < len(geometryFields) && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := parseGeometryLine(geometryFields[len(values)], line)
		if err != nil {
			return cache.Geometry{}, err
		}

		values = append(values, v)
	}

	if err := scanner.Err(); err != nil {
		return cache.Geometry{}, err
	}

	if len(values) < len(geometryFields) {
		return cache.Geometry{}, &cache.ConfigError{
			Field:  geometryFields[len(values)],
			Reason: "missing",
		}
	}

	return cache.NewGeometry(values[0], values[1], values[2])
}

func parseGeometryLine(field, line string) (int, error) {
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		return 0, &cache.ConfigError{
			Field:  field,
			Value:  line,
			Reason: "expected <label>: <integer>",
		}
	}

	valueFields := strings.Fields(line[colon+1:])
	if len(valueFields) == 0 {
		return 0, &cache.ConfigError{
			Field:  field,
			Value:  line,
			Reason: "missing value",
		}
	}

	v, err := strconv.Atoi(valueFields[0])
	if err != nil {
		return 0, &cache.ConfigError{
			Field:  field,
			Value:  valueFields[0],
			Reason: "not an integer",
		}
	}

	return v, nil
}

// maxLineLength bounds the bytes kept from one trace line. Longer lines are
// drained and rejected as malformed.
const maxLineLength = 1 << 20

// A Reader reads access records, one per line.
type Reader struct {
	reader *bufio.Reader
	seq    uint64
	offset uint64
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// Next returns the next record. It returns io.EOF once the trace is exhausted.
// A line that cannot be parsed, including one longer than maxLineLength, is
// returned as a *cache.RecordError wrapping cache.ErrMalformedRecord; the
// reader can continue after it.
func (r *Reader) Next() (cache.Record, error) {
	for {
		raw, tooLong, err := r.readLine()
		if err != nil {
			return cache.Record{}, err
		}

		line := strings.TrimSpace(string(raw))
		if (line == "" && !tooLong) || strings.HasPrefix(line, "#") {
			continue
		}

		r.seq++

		if tooLong {
			return cache.Record{}, malformed(r.seq, abbreviate(line))
		}

		return ParseRecord(r.seq, line)
	}
}

// readLine returns the next line with its terminator. Only the first
// maxLineLength bytes are kept; the rest of a longer line is consumed and
// tooLong is set.
func (r *Reader) readLine() (line []byte, tooLong bool, err error) {
	read := 0

	for {
		frag, err := r.reader.ReadSlice('\n')
		read += len(frag)
		r.offset += uint64(len(frag))

		if !tooLong {
			if len(line)+len(frag) > maxLineLength {
				tooLong = true
			} else {
				line = append(line, frag...)
			}
		}

		switch {
		case err == nil:
			return line, tooLong, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if read == 0 {
				return nil, false, io.EOF
			}

			return line, tooLong, nil
		default:
			return nil, false, err
		}
	}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() uint64 {
	return r.offset
}

func abbreviate(line string) string {
	const keep = 32
	if len(line) <= keep {
		return line
	}

	return line[:keep] + "..."
}

// ParseRecord parses one of "<R|W>:<size>:<hex address>",
// "<R|W> <hex address>", or "<0|1|2> <hex address>". In the last form, 0 is
// an instruction fetch, 1 a data load, and 2 a data store. The forms without a
// size access a single byte.
func ParseRecord(seq uint64, line string) (cache.Record, error) {
	rec := cache.Record{Seq: seq, Line: line, Size: 1}

	var opField, addrField string

	if strings.Contains(line, ":") {
		parts := strings.Split(line, ":")
		if len(parts) != 3 {
			return cache.Record{}, malformed(seq, line)
		}

		size, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return cache.Record{}, malformed(seq, line)
		}

		opField, addrField = parts[0], parts[2]
		rec.Size = size
	} else {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return cache.Record{}, malformed(seq, line)
		}

		opField, addrField = parts[0], parts[1]
	}

	if err := parseOp(&rec, strings.TrimSpace(opField)); err != nil {
		return cache.Record{}, malformed(seq, line)
	}

	addr, err := parseHex(strings.TrimSpace(addrField))
	if err != nil {
		return cache.Record{}, malformed(seq, line)
	}

	rec.Address = addr

	return rec, nil
}

var errUnknownOp = errors.New("unknown operation")

func parseOp(rec *cache.Record, s string) error {
	switch strings.ToUpper(s) {
	case "R", "1":
		rec.Op = cache.OpRead
	case "W", "2":
		rec.Op = cache.OpWrite
	case "0":
		rec.Op = cache.OpRead
		rec.InstructionFetch = true
	default:
		return errUnknownOp
	}

	return nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func malformed(seq uint64, line string) error {
	return &cache.RecordError{Seq: seq, Line: line, Err: cache.ErrMalformedRecord}
}
