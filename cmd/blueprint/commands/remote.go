package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/godilite/exam-blueprint/internal/export"
	handler "github.com/godilite/exam-blueprint/internal/grpc"
	"github.com/godilite/exam-blueprint/internal/service"
)

const remoteTimeout = 10 * time.Second

type remoteOptions struct {
	addr string
	dial func(addr string) (grpc.ClientConnInterface, func() error, error)
}

func dialInsecure(addr string) (grpc.ClientConnInterface, func() error, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

// withClient dials the server, runs fn with a bounded context, and closes
// the connection.
func (o *remoteOptions) withClient(app *AppContext, fn func(ctx context.Context, c *handler.Client) error) error {
	conn, closeConn, err := o.dial(o.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", o.addr, err)
	}
	defer func() { _ = closeConn() }()

	ctx, cancel := context.WithTimeout(app.Ctx, remoteTimeout)
	defer cancel()

	app.Logger.Debug("calling server", zap.String("addr", o.addr))
	return fn(ctx, handler.NewClient(conn))
}

// RemoteCmd groups the commands that manage plans on a blueprint server.
func RemoteCmd(app *AppContext) *cobra.Command {
	return newRemoteCmd(app, &remoteOptions{dial: dialInsecure})
}

func newRemoteCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage plans stored on a blueprint server",
	}
	cmd.PersistentFlags().StringVar(&opts.addr, "addr", "localhost:50051", "Server address host:port")

	cmd.AddCommand(
		remotePushCmd(app, opts),
		remoteGetCmd(app, opts),
		remoteListCmd(app, opts),
		remoteDeleteCmd(app, opts),
		remoteSetCellCmd(app, opts),
		remoteShowCmd(app, opts),
		remoteExportCmd(app, opts),
	)
	return cmd
}

func remotePushCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <plan.yaml>",
		Short: "Store a plan file on the server, including its grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The grid is applied locally first so a bad cell fails before
			// anything is stored.
			f, _, _, err := loadPlan(app, args[0])
			if err != nil {
				return err
			}
			in, err := f.Input()
			if err != nil {
				return err
			}
			return opts.withClient(app, func(ctx context.Context, c *handler.Client) error {
				p, err := c.CreatePlan(ctx, service.PlanInput{Name: f.Name, Input: in})
				if err != nil {
					return fmt.Errorf("failed to create plan: %w", err)
				}
				err = f.EachCell(func(unit, label string, value int) error {
					if _, err := c.SetGridCell(ctx, p.ID, unit, label, value); err != nil {
						return fmt.Errorf("failed to set %s/%s: %w", unit, label, err)
					}
					return nil
				})
				if err != nil {
					if delErr := c.DeletePlan(ctx, p.ID); delErr != nil {
						app.Logger.Warn("failed to remove partially pushed plan",
							zap.String("plan_id", p.ID), zap.Error(delErr))
						return fmt.Errorf("plan %s left incomplete: %w", p.ID, err)
					}
					return err
				}
				app.printf("%s\n", p.ID)
				return nil
			})
		},
	}
}

func remoteGetCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <plan-id>",
		Short: "Print a plan's full blueprint as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(app, func(ctx context.Context, c *handler.Client) error {
				view, err := c.GetBlueprint(ctx, args[0])
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(view, "", "  ")
				if err != nil {
					return err
				}
				app.printf("%s\n", data)
				return nil
			})
		},
	}
}

func remoteListCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(app, func(ctx context.Context, c *handler.Client) error {
				plans, err := c.ListPlans(ctx)
				if err != nil {
					return err
				}
				app.printf("\nFound %d plans:\n\n", len(plans))
				for _, p := range plans {
					app.printf("- %s  %s  (%d marks, created %s)\n",
						p.ID, p.Name, p.TotalMarks, p.CreatedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func remoteDeleteCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a plan and its grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(app, func(ctx context.Context, c *handler.Client) error {
				if err := c.DeletePlan(ctx, args[0]); err != nil {
					return err
				}
				app.printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func remoteSetCellCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-cell <plan-id> <unit> <column> <value>",
		Short: "Set one grid cell and print the reconciliation",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}
			return opts.withClient(app, func(ctx context.Context, c *handler.Client) error {
				report, err := c.SetGridCell(ctx, args[0], args[1], args[2], value)
				if err != nil {
					return err
				}
				printReport(app.Out, report)
				return nil
			})
		},
	}
}

func remoteShowCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Render a stored plan's blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(app, func(ctx context.Context, c *handler.Client) error {
				view, err := c.GetBlueprint(ctx, args[0])
				if err != nil {
					return err
				}
				printBlueprint(app.Out, view.Plan.Name, view.Allocation, view.Grid.Grid())
				return nil
			})
		},
	}
}

func remoteExportCmd(app *AppContext, opts *remoteOptions) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <plan-id>",
		Short: "Export a stored plan's blueprint as CSV or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtValue, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return opts.withClient(app, func(ctx context.Context, c *handler.Client) error {
				doc, err := c.Export(ctx, args[0], fmtValue)
				if err != nil {
					return err
				}
				return writeDocument(app, doc, out)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: blueprint_grid.<format>)")
	return cmd
}
