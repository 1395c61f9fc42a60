package commands

import (
	"tokenledger/internal/ledger"
	"tokenledger/internal/tui"
)

// RunDashboard opens the interactive dashboard. days of 0 uses the
// configured daily window.
func RunDashboard(l *ledger.Ledger, days, configured int) error {
	if days == 0 {
		days = configured
	}
	return tui.Run(l, Version, days)
}

// RunDefault is what a bare `tokenledger` does: the dashboard on a terminal,
// otherwise the overall summary.
func RunDefault(interactive bool) {
	withApp(func(a *app) error {
		if interactive {
			return RunDashboard(a.ledger, 0, a.cfg.DailyWindow)
		}
		RunStatsOverall(a.ledger)
		return nil
	})
}
