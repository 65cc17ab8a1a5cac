package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"linka/internal/config"
	"linka/internal/dataprocessing"
	"linka/internal/ingest"
	"linka/internal/services"
	"linka/internal/validation"
)

// Env is what the root command resolves before any subcommand runs
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Output OutputFormat
}

type envKey struct{}

// WithEnv stores env in ctx
func WithEnv(ctx context.Context, env *Env) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFrom returns the command's Env, falling back to defaults when the root
// pre-run did not execute (for example in tests that run a subcommand alone)
func EnvFrom(cmd *cobra.Command) *Env {
	if cmd.Context() != nil {
		if env, ok := cmd.Context().Value(envKey{}).(*Env); ok {
			return env
		}
	}
	return &Env{Config: config.Default(), Logger: slog.Default(), Output: OutputTable}
}

// loadedFile is a parsed local file with its column kinds and typed rows
type loadedFile struct {
	Dataset        *dataprocessing.Dataset
	Classification dataprocessing.Classification
	Rows           []dataprocessing.Row
}

// loadFile validates, parses and classifies path the same way an upload is
// handled by the server
func loadFile(cmd *cobra.Command, env *Env, path string, force []string) (*loadedFile, error) {
	fv := validation.NewFileValidator(env.Logger)
	if err := fv.ValidateDataFile(path, env.Config.Upload.AllowedExtensions); err != nil {
		return nil, err
	}
	if err := fv.ValidateMaxSize(path, env.Config.Upload.MaxSizeBytes); err != nil {
		return nil, err
	}

	ds, err := ingest.NewRegistry(env.Logger).ParseFile(cmd.Context(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c := dataprocessing.Classify(ds.Columns, ds.Rows, dataprocessing.ClassifyOptions{
		ForceCategorical: append(append([]string{}, ds.ForceCategorical...), force...),
	})
	return &loadedFile{Dataset: ds, Classification: c, Rows: c.Resolve(ds.Rows)}, nil
}

// requireColumn fails with the known columns listed
func (f *loadedFile) requireColumn(column string) error {
	if !f.Dataset.HasColumn(column) {
		return fmt.Errorf("%w: %q (columns: %v)", services.ErrInvalidColumn, column, f.Dataset.Columns)
	}
	return nil
}
