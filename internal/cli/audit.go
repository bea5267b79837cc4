package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/logging"
)

// ErrDrift is returned by the audit command when it finds inconsistencies,
// so the process exits non-zero.
var ErrDrift = errors.New("reconciliation drift detected")

func newAuditCommand(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that statements and transactions agree",
		Long: `Re-reads every bank statement and transaction and reports links that
disagree: flags that do not match the reconciliation list, references to
missing transactions, transactions claimed by more than one statement, and
write sets that never finished. Exits non-zero when anything is found.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Observability.Logging, cmd.ErrOrStderr()).With(logging.ComponentKey, "audit")

			coord, store, err := openCoordinator(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := coord.Audit(cmd.Context())
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}

			RenderAudit(cmd.OutOrStdout(), report)
			if !report.Clean() {
				return fmt.Errorf("%w: %d findings", ErrDrift, len(report.Findings))
			}
			return nil
		},
	}
}

func newRepairCommand(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Finish reconciliation writes that were interrupted",
		Long: `Replays every pending reconciliation intent left behind by a write set
that failed part way. Replaying is idempotent; documents deleted since are
skipped. Other drift reported by "audit" is left for a person to resolve.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Observability.Logging, cmd.ErrOrStderr()).With(logging.ComponentKey, "repair")

			coord, store, err := openCoordinator(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			replayed, err := coord.Repair(cmd.Context())
			RenderRepair(cmd.OutOrStdout(), replayed, err)
			return err
		},
	}
}
