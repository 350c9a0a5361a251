package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/drifthouse/rig/pkg/audit"
	"github.com/drifthouse/rig/pkg/bootstrap"
	"github.com/drifthouse/rig/pkg/config"
	"github.com/drifthouse/rig/pkg/display"
	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/filesystem"
	"github.com/drifthouse/rig/pkg/installer"
	"github.com/drifthouse/rig/pkg/linker"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/manifest"
	"github.com/drifthouse/rig/pkg/paths"
	"github.com/drifthouse/rig/pkg/pkgmgr"
	"github.com/drifthouse/rig/pkg/revert"
)

var (
	verbosity int
	quiet     bool

	rootCmd = &cobra.Command{
		Use:   "rig",
		Short: "A declarative machine provisioning toolkit",
		Long: `rig provisions a personal machine from a declarative repository:
it installs packages from a manifest, links configuration directories
into your home config tree, installs fonts and shell modules, and
audits the result for drift. Every operation is idempotent; the
filesystem and the package manager are the only state stores.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logging.Options{Verbosity: verbosity, Quiet: quiet})
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v DEBUG, -vv TRACE)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newBootstrapCmd())
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newRevertCmd())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rig version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// setup resolves the common collaborators for a command run.
func setup(repoRoot string) (paths.Paths, *config.Config, error) {
	p, err := paths.New(repoRoot)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(p.RepoRoot())
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func newBootstrapCmd() *cobra.Command {
	var (
		archiveURL string
		elevate    bool
		selfTest   bool
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision this machine from the repository",
		Long: `Bootstrap runs the full provisioning sequence: verify the package
manager, acquire the repository, install manifest packages, shell
modules and fonts, reconcile config links (optionally retrying
elevated), and install profile stubs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			// A checkout's rig.toml may carry the default archive URL.
			if archiveURL == "" {
				if cfg, err := config.Load(cwd); err == nil {
					archiveURL = cfg.ArchiveURL
				}
			}
			result, err := bootstrap.Run(bootstrap.Deps{
				FS:       filesystem.NewOS(),
				Query:    pkgmgr.NewWinget(),
				Elevator: linker.NewExecElevator(),
			}, cwd, bootstrap.Options{
				ArchiveURL:       archiveURL,
				ElevateOnFailure: elevate,
				SelfTest:         selfTest,
				DryRun:           dryRun,
			})
			if err != nil {
				return err
			}
			if !quiet {
				display.Results(cmd.OutOrStdout(), result.Packages)
				display.Links(cmd.OutOrStdout(), result.Links)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&archiveURL, "archive-url", "", "Repository archive to download when no local checkout exists")
	cmd.Flags().BoolVar(&elevate, "elevate-links", false, "Retry link creation in an elevated process on permission denial")
	cmd.Flags().BoolVar(&selfTest, "self-test", false, "Run an audit pass after provisioning")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview changes without executing them")
	return cmd
}

func newInstallCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install manifest packages that are missing",
		Long: `Install compares the package manifest against installed packages and
installs anything missing. Individual package failures are warnings;
the rest of the manifest is still processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := setup("")
			if err != nil {
				return err
			}
			fs := filesystem.NewOS()
			q := pkgmgr.NewWinget()
			if !q.Available() {
				return errors.New(errors.ErrPkgMgrUnavailable, "package manager not found on PATH")
			}
			entries, err := manifest.Load(fs, cfg.ManifestPath)
			if err != nil {
				return err
			}
			results := installer.Install(q, entries, installer.Options{DryRun: dryRun})
			if !quiet {
				display.Results(cmd.OutOrStdout(), results)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview installs without executing them")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var (
		jsonOutput   bool
		manifestPath string
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Report drift between the manifest and installed packages",
		Long: `Audit is a pure read: it compares every manifest entry against the
installed package set and reports per-entry status. Exit code 0 means
everything is healthy, 1 means something is missing or drifted, and 2
means the manifest itself could not be loaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := setup("")
			if err != nil {
				return &exitError{code: audit.ExitTooling, err: err}
			}

			path := cfg.ManifestPath
			if manifestPath != "" {
				path = manifestPath
			}
			entries, err := manifest.Load(filesystem.NewOS(), path)
			if err != nil {
				return &exitError{code: audit.ExitTooling, err: err}
			}

			results, exit := audit.Run(pkgmgr.NewWinget(), entries)
			if jsonOutput {
				if err := display.ResultsJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else if !quiet {
				display.Results(cmd.OutOrStdout(), results)
			}
			if exit != audit.ExitOK {
				return &exitError{code: exit}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Override the manifest path")
	return cmd
}

func newLinkCmd() *cobra.Command {
	var (
		force  bool
		dryRun bool
		source string
		target string
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Reconcile config links from the repository into your home",
		Long: `Link enumerates the repository's config directories and makes the home
config tree point at them with symbolic links. Existing links are
replaced; regular files and directories are only replaced with --force.

The elevated retry spawned by bootstrap re-invokes this command with
explicit --source and --target roots.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := setup("")
			if err != nil {
				return err
			}
			if source == "" {
				source = p.ConfigSourceDir()
			}
			if target == "" {
				target = p.ConfigRoot()
			}

			fs := filesystem.NewOS()
			outcomes, err := linker.Reconcile(fs, source, target, linker.Options{Force: force, DryRun: dryRun})
			if !quiet {
				display.Links(cmd.OutOrStdout(), outcomes)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace regular files and directories occupying target paths")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview link actions without executing them")
	cmd.Flags().StringVar(&source, "source", "", "Override the source config root")
	cmd.Flags().StringVar(&target, "target", "", "Override the target home config root")
	return cmd
}

func newRevertCmd() *cobra.Command {
	var opts revert.Options
	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Undo provisioning, selectively or entirely",
		Long: `Revert undoes what bootstrap set up. Each sub-operation is selected by
its own flag and is independently idempotent; --all selects all of
them. Only verified rig-owned state is touched: links must point into
the repository, profile stubs must carry the sentinel marker, and the
environment file must match what rig itself wrote.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.All && !opts.Links && !opts.Packages && !opts.Fonts &&
				!opts.Profiles && !opts.Modules && !opts.Env && !opts.Repo {
				return errors.New(errors.ErrInvalidInput, "nothing selected; pass --all or at least one operation flag")
			}
			p, cfg, err := setup("")
			if err != nil {
				return err
			}
			result, err := revert.Run(filesystem.NewOS(), pkgmgr.NewWinget(), p, cfg, opts)
			if err != nil {
				return err
			}
			if !quiet {
				display.Reverted(cmd.OutOrStdout(), result.Items, result.DryRun)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Links, "links", false, "Remove config links")
	cmd.Flags().BoolVar(&opts.Packages, "packages", false, "Uninstall manifest packages")
	cmd.Flags().BoolVar(&opts.Fonts, "fonts", false, "Remove installed fonts")
	cmd.Flags().BoolVar(&opts.Profiles, "profiles", false, "Remove profile stubs")
	cmd.Flags().BoolVar(&opts.Modules, "modules", false, "Remove shell modules")
	cmd.Flags().BoolVar(&opts.Env, "env", false, "Reset the managed environment file")
	cmd.Flags().BoolVar(&opts.Repo, "repo", false, "Remove the repository cache")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Select every revert operation")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Preview actions without executing them")
	return cmd
}
