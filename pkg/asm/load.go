package asm

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"flc/pkg/cpu"
)

// LoadFile reads and assembles the program stored at path.
func LoadFile(fs afero.Fs, path string) (*cpu.Program, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	prog, err := Assemble(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "assemble %s", path)
	}
	return prog, nil
}
