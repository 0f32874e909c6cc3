package cfront

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchLineMarker(t *testing.T) {
	tests := []struct {
		line     string
		wantOK   bool
		wantLine int
		wantFile string
	}{
		{`# 1 "main.c"`, true, 1, "main.c"},
		{`# 12 "/usr/include/stdio.h" 1 3 4`, true, 12, "/usr/include/stdio.h"},
		{`#line 40 "gen.c"`, true, 40, "gen.c"},
		{`  #  line 7`, true, 7, ""},
		{`# 3 "a\\b.c"`, true, 3, `a\b.c`},
		{`#include "x.h"`, false, 0, ""},
		{`#define LINE 3`, false, 0, ""},
		{`int x = 1; # 3`, false, 0, ""},
	}
	for _, tt := range tests {
		n, file, ok := matchLineMarker(tt.line)
		assert.Equal(t, tt.wantOK, ok, tt.line)
		assert.Equal(t, tt.wantLine, n, tt.line)
		assert.Equal(t, tt.wantFile, file, tt.line)
	}
}

func TestScanLineMarkersBlanksDirectives(t *testing.T) {
	src := []byte("# 5 \"x.c\"\nint a;\n")
	cleaned, lm := scanLineMarkers(src, "t.c", true)

	assert.Equal(t, "         \nint a;\n", string(cleaned))
	assert.Equal(t, "# 5 \"x.c\"\nint a;\n", string(src), "input is not modified")

	file, line := lm.position(0)
	assert.Equal(t, "t.c", file)
	assert.Equal(t, 1, line)
	file, line = lm.position(1)
	assert.Equal(t, "x.c", file)
	assert.Equal(t, 5, line)
}

func TestIsFloatLiteral(t *testing.T) {
	for _, lit := range []string{"1.0", ".5", "3.", "1e9", "0x1p3", "2.5f"} {
		assert.True(t, isFloatLiteral(lit), lit)
	}
	for _, lit := range []string{"0", "42u", "0x1e5", "0777", "10UL"} {
		assert.False(t, isFloatLiteral(lit), lit)
	}
}
