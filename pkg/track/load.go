package track

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ohler55/ojg/oj"
	"golang.org/x/mod/semver"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

// GateFileVersion is written into gate files produced by this build.
// Files load when their major version matches; minor additions stay
// readable both ways.
const GateFileVersion = "v1.0.0"

// ErrGateFileVersion rejects gate files of an incompatible major version.
var ErrGateFileVersion = errors.New("incompatible gate file version")

// Load reads and validates a gate table file.
func Load(fileName string) (*GateTable, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates gate file content.
func Parse(data []byte) (*GateTable, error) {
	var file model.GateFile
	if err := oj.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("could not parse gate file: %w", err)
	}
	if err := checkVersion(file.Version); err != nil {
		return nil, err
	}
	return FromGateFile(&file)
}

// Save writes a gate file, stamping the current format version.
func Save(fileName string, file *model.GateFile) error {
	file.Version = GateFileVersion
	data, err := oj.Marshal(file, 2)
	if err != nil {
		return fmt.Errorf("could not marshal gate file: %w", err)
	}
	//nolint:gosec // gate files are meant to be shared
	return os.WriteFile(fileName, data, 0o644)
}

func checkVersion(toCheck string) error {
	if !strings.HasPrefix(toCheck, "v") {
		toCheck = "v" + toCheck
	}
	if !semver.IsValid(toCheck) {
		return fmt.Errorf("%w: %q is not a semantic version",
			ErrGateFileVersion, toCheck)
	}
	if semver.Major(toCheck) != semver.Major(GateFileVersion) {
		return fmt.Errorf("%w: file has %s, this build reads %s",
			ErrGateFileVersion, toCheck, GateFileVersion)
	}
	return nil
}
