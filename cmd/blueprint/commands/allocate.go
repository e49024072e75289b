package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/exam-blueprint/internal/export"
	"github.com/godilite/exam-blueprint/internal/plan"
	"github.com/godilite/exam-blueprint/pkg/apportion"
)

// AllocateCmd runs the engine on one group of weights.
func AllocateCmd(app *AppContext) *cobra.Command {
	var (
		budget  int
		weights string
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Split a mark budget across weighted categories",
		Example: `  blueprint allocate --budget 100 --weights "MCQ=30,SAQ=30,LAQ=40"
  blueprint allocate --budget 1 --weights "A=50,B=50"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := plan.ParseWeights(weights)
			if err != nil {
				return err
			}
			shares, err := apportion.Allocate(categories, budget)
			if err != nil {
				return fmt.Errorf("allocation failed: %w", err)
			}
			app.Logger.Debug("allocated",
				zap.Int("budget", budget),
				zap.Int("categories", len(categories)))

			app.printf("%s\n", export.Render(sharesTable(fmt.Sprintf("Budget %d", budget), shares)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "Total marks to allocate")
	cmd.Flags().StringVarP(&weights, "weights", "w", "", `Comma-separated "name=weight" pairs`)
	_ = cmd.MarkFlagRequired("budget")
	_ = cmd.MarkFlagRequired("weights")
	return cmd
}

func sharesTable(title string, shares []apportion.Share) export.Table {
	t := export.Table{
		Title:  title,
		Header: []string{"Category", "Weight", "Ideal", "Marks"},
	}
	var weight float64
	for _, s := range shares {
		weight += s.Weight
		t.Rows = append(t.Rows, []string{
			s.Name,
			strconv.FormatFloat(s.Weight, 'f', -1, 64),
			strconv.FormatFloat(s.Ideal, 'f', 2, 64),
			strconv.Itoa(s.Marks),
		})
	}
	t.Rows = append(t.Rows, []string{
		"Total",
		strconv.FormatFloat(weight, 'f', -1, 64),
		"",
		strconv.Itoa(apportion.Total(shares)),
	})
	return t
}
