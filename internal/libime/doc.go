// Package libime binds the engine ABI to fcitx5's libime table dictionary
// through cgo.
//
// The binding is only compiled with the libime build tag and a cgo
// toolchain, since it links against libIMETable:
//
//	go build -tags libime ./cmd/tabledict
//
// Importing the package registers the "libime" engine. Without the tag the
// package is empty and the engine is simply not available.
//
// libime reads and writes its own binary table format, and statistic
// always prints to the process's standard output, so Options.StatOutput is
// ignored by this engine.
package libime
