//go:build !docker

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

// releaseSlug is the GitHub repository pimadash binaries are published under.
const releaseSlug = "pimalab/pimadash"

var errNotReleaseBuild = errors.New("self-upgrade is only available for release builds")

// Swapped in tests.
var (
	detectLatestRelease = selfupdate.DetectLatest
	applyRelease        = selfupdate.UpdateTo
	executablePath      = os.Executable
	upgradeExit         = os.Exit
)

type upgradeOptions struct {
	requested bool
	checkOnly bool
	assumeYes bool
}

var upgradeFlags upgradeOptions

func setupSelfUpgrade() {
	flags := RootCmd.PersistentFlags()
	flags.BoolVar(&upgradeFlags.requested, "self-upgrade", false, "Replace this binary with the latest pimadash release and exit")
	flags.BoolVar(&upgradeFlags.checkOnly, "self-upgrade-check", false, "Report whether a newer pimadash release exists and exit")
	flags.BoolVar(&upgradeFlags.assumeYes, "self-upgrade-yes", false, "Do not ask for confirmation during --self-upgrade")

	previous := RootCmd.PersistentPreRunE
	RootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if previous != nil {
			if err := previous(cmd, args); err != nil {
				return err
			}
		}
		return handleSelfUpgradeFlags(cmd.OutOrStdout(), cmd.InOrStdin(), upgradeFlags)
	}
}

// handleSelfUpgradeFlags runs the upgrade and exits when either upgrade flag
// is set; otherwise the command proceeds.
func handleSelfUpgradeFlags(out io.Writer, in io.Reader, opts upgradeOptions) error {
	if !opts.requested && !opts.checkOnly {
		return nil
	}
	if err := runSelfUpgrade(out, in, opts); err != nil {
		return err
	}
	upgradeExit(0)
	return nil
}

// parseReleaseVersion reads the embedded build version. Development builds
// carry no semver and cannot be upgraded in place.
func parseReleaseVersion(raw string) (semver.Version, error) {
	v := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	if v == "" {
		return semver.Version{}, errNotReleaseBuild
	}
	parsed, err := semver.Parse(v)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid current version %q: %w", raw, err)
	}
	return parsed, nil
}

func runSelfUpgrade(out io.Writer, in io.Reader, opts upgradeOptions) error {
	current, err := parseReleaseVersion(Version)
	if err != nil {
		return err
	}

	latest, found, err := detectLatestRelease(releaseSlug)
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found || latest == nil {
		return fmt.Errorf("no releases published at github.com/%s", releaseSlug)
	}

	fmt.Fprintf(out, "Installed: v%s\nLatest:    v%s\n", current, latest.Version)
	if !latest.Version.GT(current) {
		fmt.Fprintln(out, "pimadash is already up to date")
		return nil
	}

	fmt.Fprintf(out, "New release found! v%s --> v%s\n", current, latest.Version)
	if opts.checkOnly {
		return nil
	}

	exe, err := executablePath()
	if err != nil {
		return fmt.Errorf("failed to determine executable path: %w", err)
	}
	fmt.Fprintf(out, "  binary:   %s\n  platform: %s/%s\n", exe, runtime.GOOS, runtime.GOARCH)
	if latest.AssetURL != "" {
		fmt.Fprintf(out, "  asset:    %s\n", latest.AssetURL)
	}

	if !opts.assumeYes {
		ok, err := confirmUpgrade(out, in)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Update cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Downloading release...")
	if err := applyRelease(latest.AssetURL, exe); err != nil {
		return fmt.Errorf("self-upgrade failed: %w", err)
	}
	fmt.Fprintf(out, "Updated pimadash to v%s\n", latest.Version)
	return nil
}

// confirmUpgrade asks before replacing the binary. An empty answer accepts.
func confirmUpgrade(out io.Writer, in io.Reader) (bool, error) {
	fmt.Fprint(out, "Replace the running binary with the new release? [Y/n] ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || answer == "") {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
