package corefuzz

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/corefuzz/corefuzz/internal/supervisor"
	"github.com/corefuzz/corefuzz/internal/tui"
)

// runDashboard starts the live bubbletea stats view and a poller feeding it
// from sup.Stats(). It returns a function that tears both down.
func runDashboard(ctx context.Context, name string, sup *supervisor.Supervisor) func() {
	program := tea.NewProgram(tui.NewModel(name))

	go func() {
		if _, err := program.Run(); err != nil {
			program.Kill()
		}
	}()

	pollCtx, cancelPoll := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		var prevExecs int64
		prevTime := time.Now()
		for {
			select {
			case <-pollCtx.Done():
				return
			case now := <-ticker.C:
				st := sup.Stats()
				execsPerSec := 0
				if dt := now.Sub(prevTime).Seconds(); dt > 0 {
					execsPerSec = int(float64(st.TotalExecutions-prevExecs) / dt)
				}
				prevExecs, prevTime = st.TotalExecutions, now
				program.Send(tui.SnapshotMsg{
					TotalExecutions: st.TotalExecutions,
					TotalCoverage:   st.TotalCoverage,
					CorpusLength:    st.CorpusLength,
					ExecsPerSecond:  execsPerSec,
				})
			}
		}
	}()

	return func() {
		cancelPoll()
		program.Quit()
	}
}
