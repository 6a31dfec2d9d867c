// Package monitoring carries the diagnostic log of the camera backends, the
// relay and the viewer: cameras opening, subscribers coming and going,
// streams shutting down. It is kept apart from the viewer output on stdout.
package monitoring

import (
	"log"
	"os"
	"path/filepath"
)

// std prefixes each line with the program name, tofview or tofrelay.
var std = log.New(os.Stderr, filepath.Base(os.Args[0])+": ", log.LstdFlags)

// Logf records one diagnostic line, on stderr unless redirected.
var Logf = std.Printf

// SetLogger sends diagnostics to f instead. A nil f drops them, which is what
// the tests of every package do.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
}
