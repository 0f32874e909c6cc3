package region

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Sink receives records in emission order
type Sink interface {
	Write(Record) error
}

// Format names an output encoding
type Format string

const (
	FormatTSV   Format = "tsv"
	FormatJSONL Format = "jsonl"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTSV, "":
		return FormatTSV, nil
	case FormatJSONL:
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unknown output format %q (want tsv or jsonl)", s)
}

// NewWriter returns a sink encoding records in the given format
func NewWriter(w io.Writer, format Format) Sink {
	if format == FormatJSONL {
		return &JSONWriter{enc: json.NewEncoder(w)}
	}
	return &TSVWriter{w: w}
}

// TSVWriter writes one tab separated line per record
type TSVWriter struct {
	w io.Writer
}

func NewTSVWriter(w io.Writer) *TSVWriter { return &TSVWriter{w: w} }

func (t *TSVWriter) Write(r Record) error {
	if _, err := io.WriteString(t.w, r.String()+"\n"); err != nil {
		return fmt.Errorf("writing region: %w", err)
	}
	return nil
}

// JSONWriter writes one JSON object per line
type JSONWriter struct {
	enc *json.Encoder
}

func NewJSONWriter(w io.Writer) *JSONWriter { return &JSONWriter{enc: json.NewEncoder(w)} }

func (j *JSONWriter) Write(r Record) error {
	if err := j.enc.Encode(r); err != nil {
		return fmt.Errorf("writing region: %w", err)
	}
	return nil
}

// Collector keeps records in memory
type Collector struct {
	Records []Record
}

func (c *Collector) Write(r Record) error {
	c.Records = append(c.Records, r)
	return nil
}

// WriteAll flushes records to w in the given format
func WriteAll(w io.Writer, format Format, records []Record) error {
	bw := bufio.NewWriter(w)
	sink := NewWriter(bw, format)
	for _, r := range records {
		if err := sink.Write(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadAll parses a record stream in either format. JSON lines are recognised
// by their leading brace.
func ReadAll(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var rec Record
		var err error
		if line[0] == '{' {
			err = json.Unmarshal([]byte(line), &rec)
			if err == nil {
				_, err = ParseKind(string(rec.Kind))
			}
		} else {
			rec, err = ParseRecord(line)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading regions: %w", err)
	}
	return records, nil
}
