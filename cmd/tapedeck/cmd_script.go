package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tapedeck/internal/deck"
	"tapedeck/internal/diagnostics"
	"tapedeck/internal/logging"
	"tapedeck/internal/transport"
)

var (
	scriptPages   string
	scriptStep    time.Duration
	scriptNoDiags bool
)

// scriptCmd runs an intent script on virtual time
var scriptCmd = &cobra.Command{
	Use:   "script <file|->",
	Short: "Run an intent script headless on virtual time",
	Long: `Runs one command per line against a fresh deck, then prints every
diagnostic and the final state. Time is virtual: nothing sleeps.

Besides the deck commands (play, pause, stop, ff, rew, eject, load,
goto <page>, jump <seconds|page>, back, forward, next, prev) a script can use:
  wait <duration>   tick frames for the duration
  stall <duration>  advance the clock without ticking (frozen frame source)
Lines starting with # are comments.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().StringVar(&scriptPages, "pages", "", "Page catalog YAML (default: config or built-in)")
	scriptCmd.Flags().DurationVar(&scriptStep, "step", 0, "Virtual frame step (default: clock.script_step)")
	scriptCmd.Flags().BoolVar(&scriptNoDiags, "no-diagnostics", false, "Only print the final state")
}

func runScript(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	catalog, err := loadCatalog(scriptPages)
	if err != nil {
		return err
	}

	step := scriptStep
	if step <= 0 && cfg != nil {
		step = cfg.GetScriptStep()
	}
	if step <= 0 {
		step = 16 * time.Millisecond
	}

	rec := diagnostics.NewRecorder()
	sess, err := buildSession(catalog, rec)
	if err != nil {
		return err
	}
	defer sess.Close()

	runner := &scriptRunner{session: sess, step: step}
	if logs != nil {
		timer := logs.StartTimer(logging.CategorySession, "script")
		defer timer.Stop()
	}
	if err := runner.run(in); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !scriptNoDiags {
		fmt.Fprintln(out, "== diagnostics ==")
		for _, d := range rec.All() {
			fmt.Fprintln(out, formatDiagnostic(d))
		}
	}
	fmt.Fprintln(out, "== state ==")
	writeSnapshot(out, sess.Snapshot())
	fmt.Fprintf(out, "%-11s %s\n", "modes", modeSummary(sess.ModeHistory()))
	return nil
}

// scriptRunner feeds script lines to a session.
type scriptRunner struct {
	session *deck.Session
	step    time.Duration
	line    int
}

func (r *scriptRunner) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		r.line++
		if err := r.exec(sc.Text()); err != nil {
			return fmt.Errorf("line %d: %w", r.line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

func (r *scriptRunner) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "wait", "stall":
		if len(fields) != 2 {
			return fmt.Errorf("usage: %s <duration>", fields[0])
		}
		d, err := time.ParseDuration(fields[1])
		if err != nil || d < 0 {
			return fmt.Errorf("invalid duration %q", fields[1])
		}
		if strings.ToLower(fields[0]) == "stall" {
			r.session.AdvanceClock(d)
			return nil
		}
		r.wait(d)
		return nil
	}

	ok, err := r.session.DispatchLine(line)
	if err != nil {
		return err
	}
	if logs != nil {
		logs.Get(logging.CategorySession).Debug("intent",
			zap.String("line", line),
			zap.Bool("accepted", ok),
		)
	}
	return nil
}

// wait ticks whole frames, then one partial frame for the remainder.
func (r *scriptRunner) wait(d time.Duration) {
	for d >= r.step {
		r.session.Tick(r.step)
		d -= r.step
	}
	if d > 0 {
		r.session.Tick(d)
	}
}

// formatDiagnostic renders d without the session id, which differs on
// every run.
func formatDiagnostic(d diagnostics.Diagnostic) string {
	fields := make(diagnostics.Fields, len(d.Fields))
	for k, v := range d.Fields {
		if k != "session" {
			fields[k] = v
		}
	}
	d.Fields = fields
	return fmt.Sprintf("%9s %s", formatClock(d.At), d)
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func writeSnapshot(w io.Writer, s deck.Snapshot) {
	nav := s.Navigation
	target := "-"
	if nav.TargetPageID != "" {
		target = fmt.Sprintf("%s @ %gs", nav.TargetPageID, nav.TargetPosition)
	}
	history := make([]string, len(nav.History))
	for i, id := range nav.History {
		if i == nav.HistoryIndex {
			id = "[" + id + "]"
		}
		history[i] = id
	}

	rows := [][2]string{
		{"clock", formatClock(s.Now)},
		{"mode", fmt.Sprintf("%s (%s)", s.Transport.Mode, s.Label)},
		{"display", s.Display},
		{"position", fmt.Sprintf("%.3fs", s.Transport.Position)},
		{"page", fmt.Sprintf("%s @ %gs", nav.CurrentPageID, nav.CurrentPosition)},
		{"target", target},
		{"transition", fmt.Sprintf("%s %.2f", nav.Transition, nav.Progress)},
		{"history", strings.Join(history, " > ")},
		{"pending", fmt.Sprintf("%d", s.PendingTasks)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-11s %s\n", row[0], row[1])
	}
}

// modeSummary counts accepted mode changes per target mode.
func modeSummary(changes []transport.ModeChange) string {
	counts := map[string]int{}
	for _, c := range changes {
		counts[c.To.String()]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
