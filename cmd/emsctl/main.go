package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/youruser/emsapp/internal/app"
	"github.com/youruser/emsapp/internal/config"
	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/employees"
)

type globalFlags struct {
	roster        string
	orgMark       string
	symbology     string
	photoRoot     string
	photoTimeout  time.Duration
	photoFallback bool
	documentTime  string
	verbose       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "emsctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg, _ := config.Load()
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:          "emsctl",
		Short:        "Generate employee credentials from a roster file",
		SilenceUsage: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.roster, "roster", "", "Roster file (.csv, .xlsx or .xls); defaults to the data dir")
	pf.StringVar(&g.orgMark, "org-mark", cfg.OrgMark, "Organization mark printed on the card")
	pf.StringVar(&g.symbology, "symbology", cfg.Symbology, "Barcode symbology (CODE128 or QR)")
	pf.StringVar(&g.photoRoot, "photo-root", cfg.PhotoRoot, "Directory local profile images are read from")
	pf.DurationVar(&g.photoTimeout, "photo-timeout", cfg.PhotoTimeout, "Timeout for each profile image")
	pf.BoolVar(&g.photoFallback, "photo-fallback", cfg.PhotoFallback, "Draw initials when a profile image cannot be loaded")
	pf.StringVar(&g.documentTime, "document-time", "", "Fixed RFC 3339 timestamp stamped on generated PDFs")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log pipeline progress")

	cmd.AddCommand(
		newGenerateCmd(g, cfg),
		newBatchCmd(g, cfg),
		newPreviewCmd(g, cfg),
		newBarcodeCmd(g),
		newInspectCmd(),
	)
	return cmd
}

func (g *globalFlags) pipeline(cfg *config.Config) (*credential.Pipeline, error) {
	c := *cfg
	c.OrgMark = g.orgMark
	c.Symbology = g.symbology
	c.PhotoRoot = g.photoRoot
	c.PhotoTimeout = g.photoTimeout
	c.PhotoFallback = g.photoFallback
	if g.documentTime != "" {
		t, err := time.Parse(time.RFC3339, g.documentTime)
		if err != nil {
			return nil, fmt.Errorf("invalid --document-time: %w", err)
		}
		c.DocumentTime = t.UTC()
	}
	logger := log.New(io.Discard, "", 0)
	if g.verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return app.NewPipeline(&c, logger)
}

func (g *globalFlags) loadRoster(cfg *config.Config) ([]employees.Employee, error) {
	if g.roster != "" {
		return employees.LoadRosterFile(g.roster)
	}
	return employees.LoadFromDataDir(cfg.DataDir)
}
