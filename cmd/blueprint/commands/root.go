// Package commands holds the blueprint CLI: offline allocation, rendering
// and export of plan files, plus remote plan management over gRPC.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppContext holds what every command needs.
type AppContext struct {
	Ctx    context.Context
	Logger *zap.Logger
	Out    io.Writer
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core)
}

// NewRootCmd builds the CLI. Results go to out, logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	var verbose bool
	app := &AppContext{
		Ctx:    context.Background(),
		Logger: zap.NewNop(),
		Out:    out,
	}

	rootCmd := &cobra.Command{
		Use:          "blueprint",
		Short:        "Exam blueprint allocator",
		Long:         `Allocates exam marks across sections, cognitive domains and curriculum units with the largest-remainder method, and reconciles a hand-filled item grid against the allocation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.Logger = newLogger(errOut, verbose)
			if cmd.Context() != nil {
				app.Ctx = cmd.Context()
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = app.Logger.Sync()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(AllocateCmd(app))
	rootCmd.AddCommand(ShowCmd(app))
	rootCmd.AddCommand(ReconcileCmd(app))
	rootCmd.AddCommand(ExportCmd(app))
	rootCmd.AddCommand(RemoteCmd(app))

	return rootCmd
}

func (a *AppContext) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}
