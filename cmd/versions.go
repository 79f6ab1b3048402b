/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/sitearchive/pkg/ascii"
	"github.com/fulmenhq/sitearchive/pkg/exitcode"
	"github.com/fulmenhq/sitearchive/pkg/manifest"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newVersionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the previous versions recorded in the manifest",
		Args:  cobra.NoArgs,
		RunE:  runVersions,
	}
	cmd.Flags().String("manifest", "", "Path to archives.json (default from config)")
	cmd.Flags().String("format", "table", "Output format (table, json, yaml)")
	cmd.Flags().Int("max-width", 48, "Truncate table cells wider than this, 0 to disable")
	return cmd
}

func runVersions(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	maxWidth, _ := cmd.Flags().GetInt("max-width")

	path, err := manifestPath(cmd)
	if err != nil {
		return err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return manifestError(err)
	}
	versions, err := m.Versions()
	if err != nil {
		return exitcode.Wrap(exitcode.ValidationError, err)
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "table":
		rows := make([][]string, 0, len(versions))
		for _, v := range versions {
			rows = append(rows, []string{v.Path, v.DateStart, v.DateEnd, v.Changelog})
		}
		fmt.Fprint(out, ascii.Table([]string{"PATH", "LIVE FROM", "LIVE UNTIL", "CHANGELOG"}, rows, maxWidth))
	case "json":
		data, err := json.MarshalIndent(versions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(versions); err != nil {
			return fmt.Errorf("failed to format YAML: %w", err)
		}
		return enc.Close()
	default:
		return exitcode.Wrap(exitcode.ConfigError, fmt.Errorf("unsupported format %q (want table, json or yaml)", format))
	}
	return nil
}

// manifestPath returns --manifest when set, otherwise the configured manifest.
func manifestPath(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("manifest") {
		return cmd.Flags().GetString("manifest")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Archive.Manifest, nil
}

func manifestError(err error) error {
	if errors.Is(err, manifest.ErrMalformed) {
		return exitcode.Wrap(exitcode.ValidationError, err)
	}
	return exitcode.Wrap(exitcode.FileSystemError, err)
}
