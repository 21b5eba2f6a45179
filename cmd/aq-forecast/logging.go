package main

import (
	"bytes"
	"io"
)

// levelWriter drops DEBUG: lines from the standard logger unless level is "debug".
type levelWriter struct {
	w     io.Writer
	debug bool
}

func newLevelWriter(w io.Writer, level string) *levelWriter {
	return &levelWriter{w: w, debug: level == "debug"}
}

func (l *levelWriter) Write(p []byte) (int, error) {
	if !l.debug && bytes.Contains(p, []byte("DEBUG:")) {
		return len(p), nil
	}
	return l.w.Write(p)
}
