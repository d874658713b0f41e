package cli

import (
	"go.uber.org/zap"

	"github.com/tianqilab/tianqi/internal/schema"
	"github.com/tianqilab/tianqi/internal/store"
)

// newLogger returns a development logger in verbose mode and a nop
// logger otherwise, so tool logs don't pollute piped JSON output.
func newLogger(opts *RootOptions) (*zap.Logger, error) {
	if opts.Verbose {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

// openStore opens the observations database named by the global flag.
func openStore(opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	return st, nil
}

// loadRegistry builds the schema registry.
func loadRegistry() (*schema.Registry, error) {
	reg, err := schema.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load schema registry", err)
	}
	return reg, nil
}
