/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/sitearchive/pkg/exitcode"
	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/fulmenhq/sitearchive/pkg/manifest"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest against the archives.json schema",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	cmd.Flags().String("manifest", "", "Path to archives.json (default from config)")
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	path, err := manifestPath(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied manifest path
	if err != nil {
		return exitcode.Wrap(exitcode.FileSystemError, fmt.Errorf("failed to read manifest: %w", err))
	}
	if err := manifest.Validate(data); err != nil {
		return exitcode.Wrap(exitcode.ValidationError, fmt.Errorf("%s: %w", path, err))
	}
	logger.Debug("manifest valid", logger.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", path)
	return nil
}
