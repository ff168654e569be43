package monitoring

import (
	"io"
	"log"
)

// LogFunc is the printf-style signature shared by every diagnostic sink.
type LogFunc func(format string, v ...interface{})

// Logf is the package-level diagnostic logger used by the filter and the
// command-line tools. It defaults to log.Printf.
var Logf LogFunc = log.Printf

// SetLogger replaces the package logger. Passing nil mutes diagnostics.
func SetLogger(f LogFunc) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput routes diagnostics to w with the standard log timestamp flags.
// A nil writer mutes diagnostics.
func SetOutput(w io.Writer) {
	if w == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w, "", log.LstdFlags|log.Lmicroseconds).Printf)
}
