package cfront

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// Pattern: #line <n> ["file"]
	lineDirectivePattern = regexp.MustCompile(`^\s*#\s*line\s+(\d+)(?:\s+"((?:[^"\\]|\\.)*)")?\s*$`)

	// Pattern: # <n> "file" [flags...] (preprocessor output)
	lineMarkerPattern = regexp.MustCompile(`^\s*#\s+(\d+)(?:\s+"((?:[^"\\]|\\.)*)"(?:\s+\d+)*)?\s*$`)

	// Pattern: floating literal (decimal point, exponent or hex float)
	floatPattern = regexp.MustCompile(`^(?:0[xX][0-9a-fA-F.]*[pP]|[0-9]*\.[0-9]|[0-9]+\.|[0-9]+[eE])`)
)

// matchLineMarker returns the line number and file named by a line marker or
// #line directive. file is empty when the marker keeps the current file.
func matchLineMarker(line string) (lineNum int, file string, ok bool) {
	m := lineDirectivePattern.FindStringSubmatch(line)
	if m == nil {
		m = lineMarkerPattern.FindStringSubmatch(line)
	}
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, unescapeMarkerFile(m[2]), true
}

func unescapeMarkerFile(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// isFloatLiteral reports whether a number literal is floating point
func isFloatLiteral(text string) bool {
	return floatPattern.MatchString(text)
}

// lineSegment maps the rows from startRow onwards to presumed lines
type lineSegment struct {
	startRow  int
	file      string
	firstLine int
}

// lineMap translates tree-sitter rows into presumed file and line, the way
// a compiler honours line markers in preprocessed input
type lineMap struct {
	segments []lineSegment
}

// scanLineMarkers finds line markers in src, blanks them out so the parser
// never sees them, and returns the resulting row mapping. With honor unset
// the markers are still blanked but every row maps to mainFile.
func scanLineMarkers(src []byte, mainFile string, honor bool) ([]byte, *lineMap) {
	lm := &lineMap{segments: []lineSegment{{startRow: 0, file: mainFile, firstLine: 1}}}
	if !strings.Contains(string(src), "#") {
		return src, lm
	}

	out := make([]byte, len(src))
	copy(out, src)

	row := 0
	start := 0
	current := mainFile
	for start <= len(src) {
		end := start
		for end < len(src) && src[end] != '\n' {
			end++
		}
		if n, file, ok := matchLineMarker(string(src[start:end])); ok {
			for i := start; i < end; i++ {
				if out[i] != '\r' {
					out[i] = ' '
				}
			}
			if honor {
				if file != "" {
					current = file
				}
				lm.segments = append(lm.segments, lineSegment{startRow: row + 1, file: current, firstLine: n})
			}
		}
		row++
		start = end + 1
	}
	return out, lm
}

// position resolves a 0-based row to presumed file and 1-based line
func (lm *lineMap) position(row int) (string, int) {
	i := sort.Search(len(lm.segments), func(i int) bool {
		return lm.segments[i].startRow > row
	}) - 1
	if i < 0 {
		i = 0
	}
	seg := lm.segments[i]
	return seg.file, seg.firstLine + (row - seg.startRow)
}
