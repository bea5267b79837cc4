package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/eshaffer321/churchbooks-backend/internal/application/reconcile"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	kindStyle    = lipgloss.NewStyle().Bold(true).PaddingLeft(2)
)

// RenderAudit prints an audit report grouped by finding kind.
func RenderAudit(w io.Writer, report *reconcile.AuditReport) {
	fmt.Fprintln(w, titleStyle.Render("Reconciliation audit"))
	fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("%d statements, %d transactions, checked %s",
		report.Statements, report.Transactions, report.CheckedAt.Format("2006-01-02 15:04:05"))))
	fmt.Fprintln(w)

	if report.Clean() {
		fmt.Fprintln(w, successStyle.Render("No drift found."))
		return
	}

	grouped := make(map[reconcile.FindingKind][]reconcile.Finding)
	for _, f := range report.Findings {
		grouped[f.Kind] = append(grouped[f.Kind], f)
	}
	kinds := make([]string, 0, len(grouped))
	for k := range grouped {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		findings := grouped[reconcile.FindingKind(k)]
		fmt.Fprintln(w, kindStyle.Render(fmt.Sprintf("%s (%d)", k, len(findings))))
		for _, f := range findings {
			fmt.Fprintf(w, "    %s %s\n", subjectOf(f), subtleStyle.Render(f.Detail))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%d findings", len(report.Findings))))
	if report.PendingIntents > 0 {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("%d interrupted write sets; run \"churchbooks repair\"", report.PendingIntents)))
	}
}

// RenderRepair prints the outcome of a repair run.
func RenderRepair(w io.Writer, replayed int, err error) {
	switch {
	case err != nil:
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Repair stopped after %d intents: %v", replayed, err)))
	case replayed == 0:
		fmt.Fprintln(w, successStyle.Render("Nothing to repair."))
	default:
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("Replayed %d interrupted write sets.", replayed)))
	}
}

func subjectOf(f reconcile.Finding) string {
	switch {
	case f.StatementID != "" && f.TransactionID != "":
		return fmt.Sprintf("statement %s / %s %s", f.StatementID, f.TransactionType, f.TransactionID)
	case f.TransactionID != "":
		return fmt.Sprintf("%s %s", f.TransactionType, f.TransactionID)
	case f.StatementID != "":
		return "statement " + f.StatementID
	}
	return "-"
}
