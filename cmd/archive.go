/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/sitearchive/internal/archive"
	"github.com/fulmenhq/sitearchive/pkg/ascii"
	"github.com/fulmenhq/sitearchive/pkg/config"
	"github.com/fulmenhq/sitearchive/pkg/exitcode"
	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newArchiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <route> <date_start> <date_end> <changelog>",
		Short: "Preserve the current website under a previous-version route",
		Long: `Archive clones the live website into ./<route>, removes live-only content,
rewrites every page to live under /<previous-route>/<route>/, patches the search
script and appends the version to the manifest.

Arguments:
   route        directory name and URL segment, e.g. june2025
   date_start   display date the version went live, e.g. "June 1, 2025"
   date_end     display date the version was replaced, e.g. "July 1, 2025"
   changelog    slug of the changelog page, e.g. updates-june-2025`,
		Args: cobra.ExactArgs(4),
		RunE: runArchive,
	}

	cmd.Flags().String("repo", "", "Site repository URL or owner/name (default from config)")
	cmd.Flags().String("ref", "", "Branch, tag or commit to archive (default: remote HEAD)")
	cmd.Flags().Int("depth", 0, "Shallow clone depth, 0 for a full clone; with --ref only branches are fetched shallow, tags and commits use a full clone")
	cmd.Flags().String("output-dir", "", "Directory the route directory is created in")
	cmd.Flags().String("manifest", "", "Path to archives.json")
	cmd.Flags().String("previous-route", "", "Route previous versions are served under")
	cmd.Flags().String("search-script", "", "Search script path inside the cloned site")
	cmd.Flags().String("include", "", "Glob selecting the pages to rewrite")

	return cmd
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyArchiveFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return exitcode.Wrap(exitcode.ConfigError, err)
	}

	req := archive.Request{
		Slug:      args[0],
		DateStart: args[1],
		DateEnd:   args[2],
		Changelog: args[3],
	}
	prev := logger.SetProgressOutput(cmd.OutOrStdout())
	defer logger.SetProgressOutput(prev)

	summary, err := archive.Run(cmd.Context(), req, archiveOptions(cfg))
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), ascii.Box([]string{
		fmt.Sprintf("archived %s", req.Slug),
		fmt.Sprintf("directory:  %s", summary.Dest),
		fmt.Sprintf("commit:     %s", shortHash(summary.Clone.Head)),
		fmt.Sprintf("pages:      %d rewritten of %d", summary.Pages.Rewritten, summary.Pages.Matched),
		fmt.Sprintf("removed:    %s", strings.Join(summary.Sanitized.Removed, ", ")),
		fmt.Sprintf("manifest:   %d entries", summary.ManifestEntries),
	}))
	return nil
}

// applyArchiveFlags overlays explicitly set flags on the loaded configuration.
func applyArchiveFlags(flags *pflag.FlagSet, cfg *config.Config) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("repo", &cfg.Source.Repo)
	str("ref", &cfg.Source.Ref)
	if flags.Changed("depth") {
		cfg.Source.Depth, _ = flags.GetInt("depth")
	}
	str("output-dir", &cfg.Archive.OutputDir)
	str("manifest", &cfg.Archive.Manifest)
	str("previous-route", &cfg.Archive.PreviousRoute)
	str("search-script", &cfg.Archive.SearchScript)
	str("include", &cfg.Archive.Include)
}

func archiveOptions(cfg *config.Config) archive.Options {
	return archive.Options{
		Repo:          cfg.Source.Repo,
		Ref:           cfg.Source.Ref,
		Depth:         cfg.Source.Depth,
		OutputDir:     cfg.Archive.OutputDir,
		PreviousRoute: cfg.Archive.PreviousRoute,
		Manifest:      cfg.Archive.Manifest,
		SearchScript:  cfg.Archive.SearchScript,
		Include:       cfg.Archive.Include,
		DomainMapping: cfg.Archive.DomainMapping,
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
