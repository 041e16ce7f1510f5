package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tapedeck/internal/logging"
	"tapedeck/internal/pages"
	"tapedeck/internal/transport"
)

var pagesPath string

// pagesCmd lists the page catalog and where each page sits on the tape
var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List the page catalog and tape positions",
	RunE:  runPages,
}

func init() {
	pagesCmd.Flags().StringVar(&pagesPath, "pages", "", "Page catalog YAML (default: config or built-in)")
}

// loadCatalog resolves the catalog from the flag, then the config, then
// the built-in set.
func loadCatalog(flagPath string) (*pages.Catalog, error) {
	path := flagPath
	if path == "" && cfg != nil {
		path = cfg.Pages.Path
	}
	if path == "" {
		return pages.DefaultCatalog(), nil
	}
	c, err := pages.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	if logs != nil {
		logs.Get(logging.CategoryBoot).Info("catalog loaded",
			zap.String("path", path),
			zap.Int("pages", len(c.Pages())),
		)
	}
	return c, nil
}

func runPages(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog(pagesPath)
	if err != nil {
		return err
	}

	rate := transport.DefaultConfig().FrameRate
	if cfg != nil && cfg.Transport.FrameRate > 0 {
		rate = cfg.Transport.FrameRate
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tPOSITION\tDURATION")
	for i, p := range catalog.Pages() {
		slot, err := catalog.PositionOf(p.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%gs\n", i+1, p.ID, p.Title,
			transport.FormatTimecode(slot.Position, rate), slot.Duration)
	}
	fmt.Fprintf(w, "\ttape\t\t%s\t%gs\n", transport.FormatTimecode(catalog.Length(), rate), catalog.Length())
	return w.Flush()
}
