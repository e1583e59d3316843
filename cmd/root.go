package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ftahirops/healtop/api"
	"github.com/ftahirops/healtop/config"
	"github.com/ftahirops/healtop/logging"
	"github.com/ftahirops/healtop/ui"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	log        *zap.Logger
}

// Run builds the command tree and executes it.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "healtop",
		Short: "Operator console for the self-healing remediation backend",
		Long: `healtop watches a self-healing backend and lets an operator act on its alerts.

Modes:
  (default)   Interactive console: live metrics, alert countdown, manual cleanup
  watch       Headless status lines on stdout
  status      One status snapshot (--json for raw output)
  history     Recent remediation actions
  dismiss     Dismiss the pending alert
  backend     Run the reference backend on this host
  config      Write the config file

Examples:
  healtop                                  Console against the default backend
  healtop --api http://10.0.0.5:5001       Console against a remote backend
  healtop watch --count 10                 Ten status lines, then exit
  healtop status --json | jq .pending_alert
  healtop backend --addr 0.0.0.0:5001
  healtop config init --api http://10.0.0.5:5001`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: a.runConsole,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default "+config.Path()+")")
	pf.String("api", "", "backend base URL")
	pf.String("log-file", "", "log file for the interactive console")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("api_url", pf.Lookup("api"))
	_ = a.v.BindPFlag("log_file", pf.Lookup("log-file"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))

	root.AddCommand(
		a.watchCmd(),
		a.statusCmd(),
		a.historyCmd(),
		a.dismissCmd(),
		a.backendCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration. The interactive console logs to a file since
// it owns the terminal; every other mode logs to stderr.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cmd.Parent() == nil {
		a.log, err = logging.NewFile(cfg.LogFile, cfg.LogLevel)
	} else {
		a.log, err = logging.NewConsole(cfg.LogLevel)
	}
	return err
}

func (a *app) client() (*api.Client, error) {
	return api.NewClient(a.cfg.APIURL, a.cfg.RequestTimeout, a.log)
}

func (a *app) runConsole(cmd *cobra.Command, _ []string) error {
	c, err := a.client()
	if err != nil {
		return err
	}
	a.log.Info("console starting", zap.String("api", c.BaseURL()), zap.String("version", Version))

	m := ui.NewModel(cmd.Context(), c, ui.Options{
		StatusInterval:  a.cfg.StatusInterval,
		HistoryInterval: a.cfg.HistoryInterval,
		CountdownSec:    a.cfg.CountdownSec,
		HistoryLimit:    a.cfg.HistoryLimit,
		RequestTimeout:  a.cfg.RequestTimeout,
		Endpoint:        c.BaseURL(),
	}, a.log)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
		return errors.Wrap(err, "run console")
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "healtop v%s\n", Version)
		},
	}
}

// confirm asks a yes/no question on in/out. Anything but y or yes declines.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return false
	}
	switch answer {
	case "y", "Y", "yes", "YES", "Yes":
		return true
	}
	return false
}
