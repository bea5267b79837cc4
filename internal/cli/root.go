// Package cli implements the churchbooks command line: the API server and
// the reconciliation audit and repair tools.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/config"
)

// GlobalFlags are shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand builds the churchbooks command tree.
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "churchbooks",
		Short: "Church ledger bank reconciliation",
		Long: `churchbooks reconciles imported bank statement lines against the
church's income and expense ledgers.

Run "churchbooks serve" for the HTTP API, or "churchbooks audit" to check
that statements and transactions agree on every reconciliation link.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "config file (default: config.yaml, falling back to environment variables)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newServeCommand(flags))
	root.AddCommand(newAuditCommand(flags))
	root.AddCommand(newRepairCommand(flags))
	return root
}

// loadConfig reads --config strictly; without it, a missing config.yaml
// falls back to the environment.
func (f *GlobalFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if f.ConfigPath != "" {
		loaded, err := config.Load(f.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		loaded, err := config.LoadOrEnv()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.Verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	return cfg, nil
}
