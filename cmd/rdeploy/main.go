// Copyright (c) 2026 ToeiRei
// rdeploy - source tree deployment helper
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the rdeploy command line using Cobra. There are no
// subcommands: the first argument is always the remote host, and the
// helpers (--version, --list-excludes, --write-config) are root flags.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/toeirei/rdeploy/buildvars"
	"github.com/toeirei/rdeploy/internal/config"
	"github.com/toeirei/rdeploy/internal/deploy"
	"github.com/toeirei/rdeploy/internal/exclude"
	"github.com/toeirei/rdeploy/internal/logging"
	"golang.org/x/term"
)

const missingHostMessage = "REMOTE HOST argument is required\n"

// Test seams.
var (
	exitFunc = os.Exit
	getwd    = os.Getwd
	// newRenderer detects the color support of the status line's writer.
	newRenderer = func(w io.Writer) *lipgloss.Renderer { return lipgloss.NewRenderer(w) }
	// readPassword prompts on stderr and reads without echo from stdin.
	readPassword = func() (string, error) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra has already printed the error.
		exitFunc(1)
	}
}

// newRootCmd builds a fresh command tree, so tests get isolated flag state.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "rdeploy <remote_host>",
		Short: "Synchronize the current directory to a remote host.",
		Long: `rdeploy copies the working directory to a fixed path on one remote host
with rsync over SSH, deleting remote files that no longer exist locally and
skipping build artifacts and version control metadata.

Only the first argument is used; anything after it is ignored.

--list-excludes and --write-config run instead of a deployment and need no
host.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		Version:      buildvars.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, args, &cfgFile)
		},
	}
	// A host may be called "completion" too.
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("rdeploy {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is rdeploy.yaml in the user config dir, /etc/rdeploy or .)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	f := cmd.Flags()
	f.String("user", "", "remote user name")
	f.String("source", "", "local directory to deploy (default is the working directory)")
	f.String("deploy-path", "", "destination directory on the remote host")
	f.Int("port", 0, "SSH port of the remote host")
	f.String("transport", "", `transfer method: "rsync" or "sftp"`)
	f.String("password-mode", "", `how sshpass gets the password: "arg", "env" or "file"`)
	f.String("password-file", "", "file holding the password for --password-mode=file")
	f.Bool("ask-password", false, "prompt for the password instead of using the configured one")
	f.Bool("strict", false, "exit non-zero when the transfer fails")
	f.Bool("dry-run", false, "print what would run without transferring anything")
	f.Bool("list-excludes", false, "print the exclusion patterns in effect, one per line, and exit")
	f.Bool("write-config", false, "write the effective configuration to rdeploy.yaml (mode 0600) and exit")
	f.Bool("system", false, "with --write-config, write the system-wide file instead of the user one")

	return cmd
}

// loadSettings resolves the configuration for cmd. Flags of cmd and its
// parents are bound.
func loadSettings(cmd *cobra.Command, cfgFile *string) (config.Config, error) {
	cwd, err := getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("could not determine working directory: %w", err)
	}
	cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(cwd), cfgFile)
	if err != nil {
		return cfg, err
	}
	logging.SetDebug(cfg.Debug)
	return cfg, nil
}

func runDeploy(cmd *cobra.Command, args []string, cfgFile *string) error {
	out := cmd.OutOrStdout()
	f := cmd.Flags()
	listExcludes, _ := f.GetBool("list-excludes")
	writeConfig, _ := f.GetBool("write-config")
	system, _ := f.GetBool("system")
	switch {
	case listExcludes:
		return runListExcludes(cmd, cfgFile)
	case writeConfig:
		return runWriteConfig(cmd, cfgFile, system)
	case system:
		return errors.New("--system only applies to --write-config")
	}

	if len(args) == 0 {
		fmt.Fprint(out, missingHostMessage)
		return nil
	}
	host := args[0]
	if len(args) > 1 {
		logging.Debugf("ignoring extra arguments %q", args[1:])
	}

	cfg, err := loadSettings(cmd, cfgFile)
	if err != nil {
		return err
	}
	opts, err := buildOptions(cfg, host, out, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, statusLine(out, host, cfg.DeployPath))

	res, err := deploy.Run(cmd.Context(), opts)
	if err != nil {
		if cfg.Strict {
			return err
		}
		logging.Errorf("%v", err)
		return nil
	}
	if ferr := res.Err(); ferr != nil {
		logging.Warnf("%v", ferr)
		if cfg.Strict {
			return ferr
		}
		return nil
	}
	logging.Debugf("deployment to %s finished", host)
	return nil
}

func buildOptions(cfg config.Config, host string, stdout, stderr io.Writer) (deploy.Options, error) {
	mode, err := deploy.ParsePasswordMode(cfg.PasswordMode)
	if err != nil {
		return deploy.Options{}, err
	}
	transport, err := deploy.ParseTransport(cfg.Transport)
	if err != nil {
		return deploy.Options{}, err
	}
	if mode == deploy.PasswordFile && cfg.PasswordFile == "" {
		return deploy.Options{}, errors.New("--password-mode=file needs --password-file")
	}

	password := cfg.Password
	if cfg.AskPassword && !cfg.DryRun {
		if password, err = readPassword(); err != nil {
			return deploy.Options{}, fmt.Errorf("read password: %w", err)
		}
	}

	return deploy.Options{
		Plan: deploy.Plan{
			Source:      cfg.Source,
			Target:      deploy.Target{User: cfg.User, Host: host, Port: cfg.Port, Path: cfg.DeployPath},
			Credentials: deploy.Credentials{Password: password, Mode: mode, File: cfg.PasswordFile},
			Patterns:    exclude.Default(cfg.Exclude.Extra...),
			Tools:       deploy.Tools{Rsync: cfg.Tools.Rsync, Sshpass: cfg.Tools.Sshpass},
		},
		Transport: transport,
		SSH: deploy.SSHOptions{
			KnownHosts:    cfg.SSH.KnownHosts,
			StrictHostKey: cfg.SSH.StrictHostKey,
			Timeout:       cfg.SSH.Timeout,
		},
		DryRun: cfg.DryRun,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

// statusLine renders "deploying to host:path" with the host in bold red
// and the path in bold blue when w supports color.
func statusLine(w io.Writer, host, path string) string {
	r := newRenderer(w)
	hostStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	pathStyle := r.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	return fmt.Sprintf("deploying to %s:%s", hostStyle.Render(host), pathStyle.Render(path))
}

func runListExcludes(cmd *cobra.Command, cfgFile *string) error {
	cfg, err := loadSettings(cmd, cfgFile)
	if err != nil {
		return err
	}
	for _, p := range exclude.Default(cfg.Exclude.Extra...) {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// runWriteConfig persists the effective configuration (defaults plus any
// existing file and environment overrides). The file holds the deployment
// password, hence mode 0600.
func runWriteConfig(cmd *cobra.Command, cfgFile *string, system bool) error {
	cfg, err := loadSettings(cmd, cfgFile)
	if err != nil {
		return err
	}
	path, err := config.WriteConfigFile(&cfg, system)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
