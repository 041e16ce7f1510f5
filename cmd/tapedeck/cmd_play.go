package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tapedeck/cmd/tapedeck/ui"
	"tapedeck/internal/deck"
	"tapedeck/internal/diagnostics"
	"tapedeck/internal/logging"
	"tapedeck/internal/pages"
	"tapedeck/internal/schedule"
	"tapedeck/internal/watch"
)

var (
	playPages    string
	playWatch    bool
	playHeadless bool
)

// playCmd runs the deck in real time
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Run the deck interactively",
	Long: `Starts the deck in real time with the terminal front panel.

With --headless the deck reads one command per line from stdin instead
(same commands as "tapedeck script", plus "status" and "quit") and
prints diagnostics as they happen.

With --watch the page catalog file is reloaded when it changes. A
reload is refused while a transition is in flight.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playPages, "pages", "", "Page catalog YAML (default: config or built-in)")
	playCmd.Flags().BoolVar(&playWatch, "watch", false, "Reload the page catalog when the file changes")
	playCmd.Flags().BoolVar(&playHeadless, "headless", false, "Read commands from stdin instead of the terminal UI")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// watchPath returns the catalog file to watch, or "" when not watching.
func watchPath(on bool) string {
	switch {
	case !on:
		return ""
	case playPages != "":
		return playPages
	case cfg != nil:
		return cfg.Pages.Path
	default:
		return ""
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog(playPages)
	if err != nil {
		return err
	}
	watching := playWatch || (cfg != nil && cfg.Pages.Watch)
	path := watchPath(watching)
	if watching && path == "" {
		return fmt.Errorf("--watch needs a catalog file (--pages or pages.path)")
	}

	if playHeadless {
		bus := diagnostics.NewBus()
		defer bus.Close()
		sess, err := buildSession(catalog, bus)
		if err != nil {
			return err
		}
		defer sess.Close()
		return runConsole(commandContext(cmd), cmd.InOrStdin(), cmd.OutOrStdout(), sess, bus, path)
	}

	journal := diagnostics.NewJournal(64)
	sess, err := buildSession(catalog, journal)
	if err != nil {
		return err
	}
	defer sess.Close()
	return runTUI(commandContext(cmd), sess, catalog, journal, path)
}

func categoryLogger(cat logging.Category) *zap.Logger {
	if logs == nil {
		return zap.NewNop()
	}
	return logs.Get(cat)
}

func frameInterval() time.Duration {
	if cfg == nil {
		return schedule.DefaultFrameInterval
	}
	return cfg.GetFrameInterval()
}

func runTUI(ctx context.Context, sess *deck.Session, catalog *pages.Catalog, journal *diagnostics.Journal, path string) error {
	src := schedule.NewManual()
	if err := sess.Attach(src); err != nil {
		return err
	}

	model := ui.NewModel(ui.Config{
		Session: sess,
		Source:  src,
		Catalog: catalog,
		Journal: journal,
		Frame:   frameInterval(),
		Logger:  categoryLogger(logging.CategoryUI),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
	if path != "" {
		w := watch.NewCatalogWatcher(path, watch.WithLogger(categoryLogger(logging.CategoryBoot)))
		g.Go(func() error {
			return w.Run(gctx, func(c *pages.Catalog) { p.Send(ui.CatalogMsg{Catalog: c}) })
		})
	}
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// syncWriter serialises writes from the console goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) println(a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, a...)
}

func (s *syncWriter) snapshot(snap deck.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeSnapshot(s.w, snap)
}

// runConsole drives the session on a real-time loop. Every mutation is
// marshalled onto the loop goroutine with Loop.Do.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, sess *deck.Session, bus *diagnostics.Bus, path string, opts ...schedule.LoopOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &syncWriter{w: out}
	loopOpts := append([]schedule.LoopOption{
		schedule.WithFrameInterval(frameInterval()),
		schedule.WithLogger(categoryLogger(logging.CategorySchedule)),
	}, opts...)
	loop := schedule.NewLoop(loopOpts...)
	if err := sess.Attach(loop); err != nil {
		return err
	}

	sub := bus.Subscribe(256)
	defer bus.Unsubscribe(sub)

	// The scanner can block on a terminal forever, so it stays outside
	// the group and only feeds a channel.
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := loop.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case d, ok := <-sub:
				if !ok {
					return nil
				}
				w.println(formatDiagnostic(d))
			}
		}
	})

	g.Go(func() error {
		stop := func() { loop.Do(loop.Stop) }
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					stop()
					return nil
				}
				line = strings.TrimSpace(line)
				switch {
				case line == "" || strings.HasPrefix(line, "#"):
				case line == "quit" || line == "exit":
					stop()
					return nil
				case line == "status":
					loop.Do(func() { w.snapshot(sess.Snapshot()) })
				default:
					loop.Do(func() {
						ok, err := sess.DispatchLine(line)
						switch {
						case err != nil:
							w.println("error:", err)
						case ok:
							w.println(line + ": ok")
						default:
							w.println(line + ": rejected")
						}
					})
				}
			}
		}
	})

	if path != "" {
		watcher := watch.NewCatalogWatcher(path, watch.WithLogger(categoryLogger(logging.CategoryBoot)))
		g.Go(func() error {
			return watcher.Run(gctx, func(c *pages.Catalog) {
				loop.Do(func() {
					if err := sess.ReplaceCatalog(c); err != nil {
						w.println("catalog reload refused:", err)
						return
					}
					w.println(fmt.Sprintf("catalog reloaded: %d pages", len(c.Pages())))
				})
			})
		})
	}

	return g.Wait()
}
