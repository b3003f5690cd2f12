// Package internal contains the version of the binaries, filled in at build
// time via ldflags.
package internal

var Version = "dev"
