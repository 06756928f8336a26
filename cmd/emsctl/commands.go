package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/youruser/emsapp/internal/batch"
	"github.com/youruser/emsapp/internal/config"
	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/employees"
	imagepkg "github.com/youruser/emsapp/internal/image"
	"github.com/youruser/emsapp/internal/pdfinfo"
	"github.com/youruser/emsapp/internal/util"
)

func newGenerateCmd(g *globalFlags, cfg *config.Config) *cobra.Command {
	var id, out string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write credential-{rut}.pdf for one employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := g.loadRoster(cfg)
			if err != nil {
				return err
			}
			e, err := employees.Lookup(list, id)
			if err != nil {
				return err
			}
			pipe, err := g.pipeline(cfg)
			if err != nil {
				return err
			}
			art, err := pipe.GenerateOne(cmd.Context(), e)
			if err != nil {
				return fmt.Errorf("%s", credential.UserMessage(err))
			}
			r, err := NewFileDeliverer(out).Deliver(cmd.Context(), art)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Employee id or rut")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newBatchCmd(g *globalFlags, cfg *config.Config) *cobra.Command {
	var sel batch.Selection
	var out string
	var all, manifest bool
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Write one credentials.pdf with a page per selected employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := g.loadRoster(cfg)
			if err != nil {
				return err
			}
			selected := list
			if !all {
				if sel.Empty() {
					return fmt.Errorf("select employees with --department, --id or --all")
				}
				var missing []string
				selected, missing = sel.Resolve(list)
				if len(missing) > 0 {
					return fmt.Errorf("unknown employees: %v", missing)
				}
			}
			pipe, err := g.pipeline(cfg)
			if err != nil {
				return err
			}
			w := cmd.ErrOrStderr()
			art, err := pipe.GenerateBatch(cmd.Context(), selected, func(current, total int) {
				p := credential.Progress{Current: current, Total: total}
				fmt.Fprintf(w, "[%3d%%] %d/%d %s\n", p.Percent(), current, total, selected[current-1].FullName())
			})
			if err != nil {
				return fmt.Errorf("%s", credential.UserMessage(err))
			}
			r, err := NewFileDeliverer(out).Deliver(cmd.Context(), art)
			if err != nil {
				return err
			}
			if manifest {
				text := batch.ExportManifest(sel.Label(), art.Pages)
				if err := util.WriteFileAtomic(filepath.Join(out, "manifest.txt"), []byte(text)); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.URL)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sel.Departments, "department", nil, "Department to include (repeatable)")
	cmd.Flags().StringSliceVar(&sel.EmployeeIDs, "id", nil, "Employee id or rut to include (repeatable)")
	cmd.Flags().StringVar(&sel.Name, "name", "", "Name written in the manifest")
	cmd.Flags().BoolVar(&all, "all", false, "Include every employee in the roster")
	cmd.Flags().BoolVar(&manifest, "manifest", false, "Also write manifest.txt")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output directory")
	return cmd
}

func newPreviewCmd(g *globalFlags, cfg *config.Config) *cobra.Command {
	var id, out string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render one card as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := g.loadRoster(cfg)
			if err != nil {
				return err
			}
			e, err := employees.Lookup(list, id)
			if err != nil {
				return err
			}
			pipe, err := g.pipeline(cfg)
			if err != nil {
				return err
			}
			card, err := pipe.RenderCard(cmd.Context(), e)
			if err != nil {
				return fmt.Errorf("%s", credential.UserMessage(err))
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := card.EncodePNG(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Employee id or rut")
	cmd.Flags().StringVarP(&out, "out", "o", "card.png", "Output PNG file")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newBarcodeCmd(g *globalFlags) *cobra.Command {
	var out string
	var size int
	var noLabel bool
	cmd := &cobra.Command{
		Use:   "barcode TEXT",
		Short: "Render a barcode as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sym, err := imagepkg.ParseSymbology(g.symbology)
			if err != nil {
				return err
			}
			opt := imagepkg.DefaultBarcodeOptions()
			opt.Symbology = sym
			opt.DisplayValue = !noLabel
			if size > 0 {
				opt.Height = size
			}
			b, err := imagepkg.BarcodePNG(args[0], opt)
			if err != nil {
				return err
			}
			return util.WriteFileAtomic(out, b)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "barcode.png", "Output PNG file")
	cmd.Flags().IntVar(&size, "size", 0, "Bar height (CODE128) or side (QR) in pixels")
	cmd.Flags().BoolVar(&noLabel, "no-label", false, "Omit the human-readable value")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.pdf",
		Short: "Print page count and page sizes of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			info, err := pdfinfo.Inspect(data)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "pages: %d\n", info.NumPages())
			for i, p := range info.Pages {
				fmt.Fprintf(w, "%3d  %.1f x %.1f mm  (%.2f x %.2f pt)\n", i+1, p.WidthMM(), p.HeightMM(), p.WidthPt, p.HeightPt)
			}
			return nil
		},
	}
}
