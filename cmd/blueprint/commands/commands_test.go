package commands

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	handler "github.com/godilite/exam-blueprint/internal/grpc"
	"github.com/godilite/exam-blueprint/internal/grpc/mocks"
	"github.com/godilite/exam-blueprint/internal/repository"
	"github.com/godilite/exam-blueprint/internal/service"
	"github.com/godilite/exam-blueprint/pkg/grpc/server"
)

const consistentPlan = `
name: Pathology I
totalMarks: 20
unitsText: |
  Gastro, 3

  Renal, 1
grid:
  Gastro:
    MCQ-R: 2
    MCQ-U: 2
    MCQ-A: 2
    SAQ-R: 2
    SAQ-U: 2
    SAQ-A: 2
    LAQ-R: 3
  Renal:
    LAQ-U: 2
    LAQ-A: 3
`

const draftPlan = `
name: Pathology I
totalMarks: 20
units:
  - name: Gastro
    score: 3
  - name: Renal
    score: 1
grid:
  Gastro:
    MCQ-R: 4
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAllocateCommand(t *testing.T) {
	out, err := run(t, "allocate", "--budget", "10", "--weights", "A=1,B=1,C=1")
	require.NoError(t, err)
	assert.Contains(t, out, "Budget 10")
	assert.Contains(t, out, "3.33")

	_, err = run(t, "allocate", "--budget", "10", "--weights", "A=0,B=0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allocation failed")

	_, err = run(t, "allocate", "--budget", "10", "--weights", "A")
	require.Error(t, err)
}

func TestShowCommand(t *testing.T) {
	out, err := run(t, "show", writePlan(t, consistentPlan))
	require.NoError(t, err)

	assert.Contains(t, out, "Level A: sections")
	assert.Contains(t, out, "Level B: LAQ (8 marks)")
	assert.Contains(t, out, "Gastro")
	assert.Contains(t, out, "Grid matches allocation.")
}

func TestReconcileCommand(t *testing.T) {
	out, err := run(t, "reconcile", writePlan(t, consistentPlan))
	require.NoError(t, err)
	assert.Contains(t, out, "Grid matches allocation.")

	out, err = run(t, "reconcile", writePlan(t, draftPlan))
	require.Error(t, err)
	assert.Contains(t, out, "Grid differs from allocation")
	assert.Contains(t, out, "delta -11")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "grid.csv")

	out, err := run(t, "export", writePlan(t, consistentPlan), "--format", "csv", "--out", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+csvPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Unit,IxF,Weightage %,Marks,MCQ-R"))

	out, err = run(t, "export", writePlan(t, consistentPlan), "--format", "pdf", "--out", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "%PDF-"))

	_, err = run(t, "export", writePlan(t, consistentPlan), "--format", "xls")
	require.Error(t, err)
}

// remoteHarness serves a real service over bufconn backed by in-memory sqlite.
func remoteHarness(t *testing.T) *remoteOptions {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewPlanRepository(db, "sqlite3")
	require.NoError(t, repo.Migrate(context.Background()))
	return serveRemote(t, service.NewBlueprintService(repo, zap.NewNop()))
}

func serveRemote(t *testing.T, svc handler.BlueprintService) *remoteOptions {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv, err := server.New(server.WithListener(lis))
	require.NoError(t, err)
	srv.RegisterService(&handler.ServiceDesc, handler.NewGRPCHandlers(svc, nil, zap.NewNop(), time.Minute))
	srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return &remoteOptions{
		dial: func(string) (grpc.ClientConnInterface, func() error, error) {
			conn, err := grpc.NewClient("passthrough:///bufnet",
				grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
					return lis.DialContext(ctx)
				}),
				grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return nil, nil, err
			}
			return conn, conn.Close, nil
		},
	}
}

func runRemote(t *testing.T, opts *remoteOptions, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := &AppContext{Ctx: context.Background(), Logger: zap.NewNop(), Out: &out}
	cmd := newRemoteCmd(app, opts)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	err := cmd.Execute()
	return out.String(), err
}

func TestRemoteCommands(t *testing.T) {
	opts := remoteHarness(t)

	out, err := runRemote(t, opts, "push", writePlan(t, draftPlan))
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = runRemote(t, opts, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 plans")
	assert.Contains(t, out, id)

	out, err = runRemote(t, opts, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Grid differs from allocation")

	out, err = runRemote(t, opts, "set-cell", id, "Gastro", "MCQ-R", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "delta -13")

	_, err = runRemote(t, opts, "set-cell", id, "Gastro", "MCQ-R", "two")
	require.Error(t, err)

	out, err = runRemote(t, opts, "get", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Pathology I"`)

	out, err = runRemote(t, opts, "export", id, "--out", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Unit,"))

	out, err = runRemote(t, opts, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	_, err = runRemote(t, opts, "get", id)
	require.Error(t, err)
}

func TestRemotePush_RejectsUnknownColumnBeforeCreating(t *testing.T) {
	opts := remoteHarness(t)

	bad := strings.Replace(draftPlan, "MCQ-R: 4", "MCQ-X: 4", 1)
	_, err := runRemote(t, opts, "push", writePlan(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCQ-X")

	out, err := runRemote(t, opts, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 0 plans")
}

func TestRemotePush_RemovesPlanWhenCellFails(t *testing.T) {
	var deleted []string
	svc := &mocks.MockBlueprintService{
		CreatePlanFunc: func(ctx context.Context, in service.PlanInput) (service.Plan, error) {
			return service.Plan{ID: "plan-1", Name: in.Name, Input: in.Input}, nil
		},
		SetGridCellFunc: func(ctx context.Context, id, unit, column string, value int) error {
			return errors.New("disk full")
		},
		DeletePlanFunc: func(ctx context.Context, id string) error {
			deleted = append(deleted, id)
			return nil
		},
	}

	out, err := runRemote(t, serveRemote(t, svc), "push", writePlan(t, draftPlan))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gastro/MCQ-R")
	assert.NotContains(t, out, "plan-1")
	assert.Equal(t, []string{"plan-1"}, deleted)
}

func TestRemotePush_ReportsPlanIDWhenCleanupFails(t *testing.T) {
	svc := &mocks.MockBlueprintService{
		CreatePlanFunc: func(ctx context.Context, in service.PlanInput) (service.Plan, error) {
			return service.Plan{ID: "plan-1", Name: in.Name, Input: in.Input}, nil
		},
		SetGridCellFunc: func(ctx context.Context, id, unit, column string, value int) error {
			return errors.New("disk full")
		},
		DeletePlanFunc: func(ctx context.Context, id string) error {
			return errors.New("disk full")
		},
	}

	_, err := runRemote(t, serveRemote(t, svc), "push", writePlan(t, draftPlan))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan plan-1 left incomplete")
}
