package track

import _ "embed"

// A small synthetic oval shipped with the binary so ingest and replay
// work out of the box. Real tracks are mapped with `fle gates` and passed
// via --gates.
//
//go:embed default_gates.json
var defaultGates []byte

// Default returns the built-in gate table. The embedded file is fixed at
// build time; failing to parse it is a packaging bug.
func Default() *GateTable {
	t, err := Parse(defaultGates)
	if err != nil {
		panic(err)
	}
	return t
}
