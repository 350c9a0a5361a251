// Package bootstrap sequences a full machine provisioning run.
//
// Steps run strictly in order and are individually idempotent; the
// first unhandled failure aborts the remaining steps. Link permission
// failures are the one recoverable case, handled by the elevation
// protocol when the caller authorized it.
package bootstrap

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/drifthouse/rig/pkg/audit"
	"github.com/drifthouse/rig/pkg/capability"
	"github.com/drifthouse/rig/pkg/config"
	"github.com/drifthouse/rig/pkg/errors"
	"github.com/drifthouse/rig/pkg/fetch"
	"github.com/drifthouse/rig/pkg/fonts"
	"github.com/drifthouse/rig/pkg/installer"
	"github.com/drifthouse/rig/pkg/linker"
	"github.com/drifthouse/rig/pkg/logging"
	"github.com/drifthouse/rig/pkg/manifest"
	"github.com/drifthouse/rig/pkg/paths"
	"github.com/drifthouse/rig/pkg/pkgmgr"
	"github.com/drifthouse/rig/pkg/profile"
	"github.com/drifthouse/rig/pkg/types"
)

// Options control one bootstrap run.
type Options struct {
	// ArchiveURL is the repository archive to download when no local
	// checkout is found. Empty means local-only.
	ArchiveURL string

	// ElevateOnFailure authorizes spawning an elevated process when
	// unprivileged link creation is denied.
	ElevateOnFailure bool

	// SelfTest runs an audit pass after provisioning.
	SelfTest bool

	// DryRun previews all mutations without performing them.
	DryRun bool
}

// Deps are the external collaborators, injectable for tests.
type Deps struct {
	FS       types.FS
	Query    pkgmgr.Query
	Elevator linker.Elevator
	Client   *http.Client
}

// Result summarizes a bootstrap run.
type Result struct {
	RepoRoot string                       `json:"repoRoot"`
	Packages []types.ReconciliationResult `json:"packages"`
	Links    []types.LinkOutcome          `json:"links"`
	Audit    []types.ReconciliationResult `json:"audit,omitempty"`
}

// EnvVars are the environment values rig persists to its managed env
// file. Revert removes the file only when it still matches these.
func EnvVars(p paths.Paths) map[string]string {
	return map[string]string{
		"RIG_HOME":      p.DataDir(),
		"RIG_REPO_ROOT": p.RepoRoot(),
	}
}

// Run executes the full bootstrap sequence from the given working
// directory.
func Run(deps Deps, cwd string, opts Options) (*Result, error) {
	logger := logging.GetLogger("bootstrap")
	fs := deps.FS

	// Step 1: probe symlink capability. A negative probe is not fatal
	// here; it decides how link failures are handled later.
	canSymlink := capability.ProbeSymlink(fs, os.TempDir())
	if !canSymlink {
		logger.Warn().Msg("Cannot create symlinks unprivileged; link step may need elevation")
	}

	// Step 2: configure the base environment (managed env file).
	// Refreshed again after acquisition in case the root moves.
	bootstrapPaths, err := paths.New(cwd)
	if err != nil {
		return nil, err
	}
	if err := profile.SetEnv(fs, bootstrapPaths.EnvFilePath(), EnvVars(bootstrapPaths), opts.DryRun); err != nil {
		return nil, err
	}

	// Step 3: verify the package manager before touching anything.
	if !deps.Query.Available() {
		return nil, errors.New(errors.ErrPkgMgrUnavailable, "package manager not found on PATH")
	}
	logging.OK(logger, "Package manager available")

	// Step 4: acquire the repository.
	repoRoot, err := fetch.Acquire(fs, deps.Client, cwd, opts.ArchiveURL, bootstrapPaths.RepoCacheDir())
	if err != nil {
		return nil, err
	}
	p, err := paths.New(repoRoot)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(repoRoot)
	if err != nil {
		return nil, err
	}
	logging.OK(logger, "Repository ready at "+repoRoot)
	if repoRoot != cwd {
		if err := profile.SetEnv(fs, p.EnvFilePath(), EnvVars(p), opts.DryRun); err != nil {
			return nil, err
		}
	}

	result := &Result{RepoRoot: repoRoot}

	// Step 5: install manifest packages. Per-entry failures are
	// warnings inside the reconciler; only a broken manifest aborts.
	entries, err := manifest.Load(fs, cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	result.Packages = installer.Install(deps.Query, entries, installer.Options{DryRun: opts.DryRun})

	// Step 6: shell modules.
	profile.InstallModules(fs, p.ModulesSourceDir(), p.ModulesDir(), cfg.Modules, opts.DryRun)

	// Step 7: fonts, repository-local then remote sources.
	fonts.InstallLocal(fs, p.FontsSourceDir(), p.FontDir(), opts.DryRun)
	fonts.Install(fs, deps.Client, cfg.FontSources, p.FontDir(), opts.DryRun)

	// Step 8: reconcile links, with the elevation fallback.
	outcomes, err := reconcileLinks(deps, p, opts)
	if err != nil {
		return nil, err
	}
	result.Links = outcomes

	// Git include block, only when the repository ships a git config.
	includePath := filepath.Join(p.ConfigSourceDir(), "git", "gitconfig")
	if _, statErr := fs.Stat(includePath); statErr == nil && !opts.DryRun {
		if _, err := linker.EnsureGitInclude(fs, p.GitConfigPath(), includePath); err != nil {
			logger.Warn().Err(err).Msg("Could not patch gitconfig include")
		}
	}

	// Step 9: profile stubs.
	profilePaths := cfg.ProfilePaths
	if len(profilePaths) == 0 {
		profilePaths = p.ProfilePaths()
	}
	profile.InstallStubs(fs, profilePaths, p.EnvFilePath(), opts.DryRun)

	// Step 10: optional self-test, a plain audit pass.
	if opts.SelfTest {
		auditResults, exit := audit.Run(deps.Query, entries)
		result.Audit = auditResults
		if exit != audit.ExitOK {
			logger.Warn().Int("exit", exit).Msg("Self-test found drift or missing packages")
		} else {
			logging.OK(logger, "Self-test passed")
		}
	}

	logging.OK(logger, "Bootstrap complete")
	return result, nil
}

// reconcileLinks runs the link reconciler and, on a permission denial
// with elevation authorized, retries in an elevated child process. The
// child's output is unobservable, so success is verified by re-querying
// the filesystem from this (unprivileged) process.
func reconcileLinks(deps Deps, p paths.Paths, opts Options) ([]types.LinkOutcome, error) {
	logger := logging.GetLogger("bootstrap")
	source, target := p.ConfigSourceDir(), p.ConfigRoot()

	outcomes, err := linker.Reconcile(deps.FS, source, target, linker.Options{DryRun: opts.DryRun})
	if err == nil || !errors.IsPermission(err) {
		return outcomes, err
	}

	if !opts.ElevateOnFailure {
		logger.Warn().
			Str("remediation", linker.RemediationCommand(source, target)).
			Msg("Symlink creation denied and elevation not authorized; run the remediation command from an elevated shell")
		return outcomes, nil
	}

	logger.Info().Msg("Retrying link reconciliation in an elevated process")
	if relinkErr := deps.Elevator.Relink(source, target, false); relinkErr != nil {
		logger.Warn().
			Err(relinkErr).
			Str("remediation", linker.RemediationCommand(source, target)).
			Msg("Could not spawn elevated process; run the remediation command manually")
		return outcomes, nil
	}

	missing, verifyErr := linker.Verify(deps.FS, source, target)
	if verifyErr != nil {
		return outcomes, verifyErr
	}
	if len(missing) > 0 {
		// Partial success: report, don't abort.
		logger.Warn().
			Strs("missing", missing).
			Str("remediation", linker.RemediationCommand(source, target)).
			Msg("Elevated link run left some targets unlinked")
		return outcomes, nil
	}

	logging.OK(logger, "Elevated link run verified")
	return linkOutcomesAfterElevation(deps.FS, source, target)
}

// linkOutcomesAfterElevation rebuilds the outcome list by observation,
// since the elevated child could not report its own.
func linkOutcomesAfterElevation(fs types.FS, source, target string) ([]types.LinkOutcome, error) {
	mappings, err := linker.Mappings(fs, source, target)
	if err != nil {
		return nil, err
	}
	outcomes := make([]types.LinkOutcome, 0, len(mappings))
	for _, m := range mappings {
		outcomes = append(outcomes, types.LinkOutcome{
			Name:   filepath.Base(m.TargetPath),
			Source: m.SourcePath,
			Target: m.TargetPath,
			Action: types.LinkCreated,
			Note:   "created by elevated process",
		})
	}
	return outcomes, nil
}
