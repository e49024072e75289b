package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/exam-blueprint/internal/blueprint"
	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/plan"
)

// loadPlan reads a plan file and computes its allocation and grid.
func loadPlan(app *AppContext, path string) (*plan.File, blueprint.Allocation, *blueprint.Grid, error) {
	f, err := plan.Load(path)
	if err != nil {
		return nil, blueprint.Allocation{}, nil, err
	}
	in, err := f.Input()
	if err != nil {
		return nil, blueprint.Allocation{}, nil, err
	}
	alloc, err := blueprint.Compute(in)
	if err != nil {
		return nil, blueprint.Allocation{}, nil, fmt.Errorf("allocation failed: %w", err)
	}
	grid := alloc.NewGrid()
	if err := f.ApplyGrid(grid); err != nil {
		return nil, blueprint.Allocation{}, nil, err
	}
	app.Logger.Debug("plan loaded",
		zap.String("path", path),
		zap.Int("units", len(in.Units)),
		zap.Int("total_marks", in.TotalMarks))
	return f, alloc, grid, nil
}

// ShowCmd prints the allocation levels and the grid of a plan file.
func ShowCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan.yaml>",
		Short: "Show section, domain and unit allocations with the item grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, alloc, grid, err := loadPlan(app, args[0])
			if err != nil {
				return err
			}
			printBlueprint(app.Out, f.Name, alloc, grid)
			return nil
		},
	}
}

// ReconcileCmd compares a plan file's grid with its allocation. It fails when
// they differ so scripts can gate on it.
func ReconcileCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <plan.yaml>",
		Short: "Compare grid totals with allocated marks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, alloc, grid, err := loadPlan(app, args[0])
			if err != nil {
				return err
			}
			report := alloc.Reconcile(grid)
			printReport(app.Out, report)
			if !report.Consistent {
				return fmt.Errorf("grid does not match allocation")
			}
			return nil
		},
	}
}

// ExportCmd writes a plan file's blueprint table as CSV or PDF.
func ExportCmd(app *AppContext) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <plan.yaml>",
		Short: "Export the blueprint table as CSV or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtValue, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			f, alloc, grid, err := loadPlan(app, args[0])
			if err != nil {
				return err
			}
			doc, err := export.Write(export.NewTable(f.Name, alloc, grid), fmtValue, "blueprint_grid")
			if err != nil {
				return err
			}
			return writeDocument(app, doc, out)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: blueprint_grid.<format>)")
	return cmd
}

func writeDocument(app *AppContext, doc export.Document, out string) error {
	if out == "" {
		out = doc.Filename
	}
	if out == "-" {
		_, err := app.Out.Write(doc.Data)
		return err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	app.Logger.Info("blueprint exported", zap.String("file", out), zap.Int("bytes", len(doc.Data)))
	app.printf("Wrote %s (%s)\n", out, doc.ContentType)
	return nil
}

func printBlueprint(w io.Writer, title string, alloc blueprint.Allocation, grid *blueprint.Grid) {
	fmt.Fprintf(w, "%s\n\n", export.Render(sharesTable("Level A: sections", alloc.Sections)))
	for _, sd := range alloc.SectionDomains {
		fmt.Fprintf(w, "%s\n\n", export.Render(sharesTable(fmt.Sprintf("Level B: %s (%d marks)", sd.Section, sd.Marks), sd.Domains)))
	}
	fmt.Fprintf(w, "%s\n", export.Render(export.NewTable(title, alloc, grid)))
	printReport(w, alloc.Reconcile(grid))
}

func printReport(w io.Writer, r blueprint.Report) {
	if r.Consistent {
		fmt.Fprintln(w, "Grid matches allocation.")
		return
	}
	rows, cols := r.Mismatches()
	var b strings.Builder
	fmt.Fprintf(&b, "Grid differs from allocation (%d units, %d columns):\n", len(rows), len(cols))
	for _, d := range rows {
		fmt.Fprintf(&b, "  unit %-20s grid %3d  allocated %3d  delta %+d\n", d.Unit, d.GridTotal, d.Allocated, d.Delta)
	}
	for _, d := range cols {
		fmt.Fprintf(&b, "  column %-18s grid %3d  allocated %3d  delta %+d\n", d.Label, d.GridTotal, d.Allocated, d.Delta)
	}
	fmt.Fprint(w, b.String())
}
