package cmd

import (
	"github.com/quill-lang/quill/internal/config"
	"github.com/quill-lang/quill/internal/interp"
)

// loadOptions builds the interp.Options the run/serve subcommands boot
// with: defaults if no --config was given, or the parsed file's options
// otherwise.
func loadOptions() (interp.Options, error) {
	if configPath == "" {
		return interp.Options{}, nil
	}
	f, err := config.Load(configPath)
	if err != nil {
		return interp.Options{}, err
	}
	return f.Options()
}
