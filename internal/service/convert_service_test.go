package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/etl"
	_ "gedcom2csv/internal/etl/sources"
	"gedcom2csv/internal/service"
)

// ─────────────────────────────────────────────────────────────
// ConvertService tests
// ─────────────────────────────────────────────────────────────

const tinyTree = "0 HEAD\n1 CHAR UTF-8\n0 @I1@ INDI\n1 NAME Jane /Doe/\n0 @F1@ FAM\n1 WIFE @I1@\n0 TRLR\n"

type memRunStore struct {
	mu   sync.Mutex
	runs []domain.ConversionRun
}

func (m *memRunStore) CreateRun(r *domain.ConversionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = "run-" + r.Input
	m.runs = append([]domain.ConversionRun{*r}, m.runs...)
	return nil
}

func (m *memRunStore) ListRuns(limit int) ([]domain.ConversionRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func writeTree(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.ged")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newRequest(input string, fs afero.Fs) service.ConvertRequest {
	return service.ConvertRequest{
		Input:      input,
		SourceType: "gedcom_file",
		Dest:       &etl.CSVDirWriter{Fs: fs, Dir: "out"},
		Output:     "out",
	}
}

func TestRunConversion_Success(t *testing.T) {
	runs := &memRunStore{}
	emitter := &service.MockEmitter{}
	svc := service.NewConvertService(runs, emitter, time.Minute)
	fs := afero.NewMemMapFs()

	result, err := svc.RunConversion(context.Background(), newRequest(writeTree(t, tinyTree), fs))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows(etl.CategoryIndividuals))
	assert.Equal(t, 1, result.Rows(etl.CategoryFamilies))
	assert.Equal(t, 1, result.Rows(etl.CategoryOther))

	ok, err := afero.Exists(fs, "out/individuals.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, emitter.Count(service.EventConvertCompleted))

	history, err := svc.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.RunStatusSuccess, history[0].Status)
	assert.Equal(t, domain.TriggerManual, history[0].Trigger)
	assert.Equal(t, "legacy", history[0].Dialect)
	assert.Equal(t, 4, history[0].NodesRead)
}

func TestRunConversion_ParseErrorIsRecorded(t *testing.T) {
	runs := &memRunStore{}
	emitter := &service.MockEmitter{}
	svc := service.NewConvertService(runs, emitter, time.Minute)
	fs := afero.NewMemMapFs()

	_, err := svc.RunConversion(context.Background(), newRequest(writeTree(t, "0 HEAD\n2 VERS 5\n"), fs))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skips a level")

	assert.Equal(t, 1, emitter.Count(service.EventConvertFailed))
	history, err := svc.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.RunStatusError, history[0].Status)

	ok, err := afero.DirExists(fs, "out")
	require.NoError(t, err)
	assert.False(t, ok, "nothing is written when reading fails")
}

func TestRunConversion_NoDestination(t *testing.T) {
	svc := service.NewConvertService(nil, nil, time.Minute)
	_, err := svc.RunConversion(context.Background(), service.ConvertRequest{Input: "x.ged", SourceType: "gedcom_file"})
	assert.Error(t, err)
}

// blockingDest holds Write until release is closed.
type blockingDest struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingDest) Write(ctx context.Context, _ []*etl.Table) (int, error) {
	close(b.entered)
	select {
	case <-b.release:
		return 0, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestRunConversion_SameInputIsGuarded(t *testing.T) {
	svc := service.NewConvertService(nil, nil, time.Minute)
	input := writeTree(t, tinyTree)
	dest := &blockingDest{entered: make(chan struct{}), release: make(chan struct{})}

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.RunConversion(context.Background(), service.ConvertRequest{Input: input, SourceType: "gedcom_file", Dest: dest})
		errCh <- err
	}()
	<-dest.entered

	_, err := svc.RunConversion(context.Background(), newRequest(input, afero.NewMemMapFs()))
	assert.True(t, errors.Is(err, service.ErrAlreadyRunning))

	close(dest.release)
	require.NoError(t, <-errCh)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.WaitRunning(ctx)
	require.NoError(t, ctx.Err())
}

func TestPreview(t *testing.T) {
	svc := service.NewConvertService(nil, nil, time.Minute)
	req := service.ConvertRequest{Input: writeTree(t, tinyTree), SourceType: "gedcom_file"}
	tbl, err := svc.Preview(context.Background(), req, etl.CategoryIndividuals, 5)
	require.NoError(t, err)
	assert.Equal(t, "NAME,formal_name,xref_id\nJane /Doe/,INDIVIDUAL,@I1@", tbl.Document)

	req.Dialect = etl.DialectRFC4180
	tbl, err = svc.Preview(context.Background(), req, etl.CategoryIndividuals, 5)
	require.NoError(t, err)
	assert.Equal(t, "NAME,formal_name,xref_id\nJane /Doe/,INDIVIDUAL,@I1@\n", tbl.Document)
}

func TestWatch_RerunsOnWrite(t *testing.T) {
	emitter := &service.MockEmitter{}
	svc := service.NewConvertService(nil, emitter, time.Minute)
	defer svc.Stop()

	input := writeTree(t, tinyTree)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Watch(ctx, newRequest(input, afero.NewMemMapFs())))

	require.NoError(t, os.WriteFile(input, []byte(tinyTree+"\n"), 0o644))
	require.Eventually(t, func() bool {
		return emitter.Count(service.EventConvertCompleted) >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_MissingDirectory(t *testing.T) {
	svc := service.NewConvertService(nil, nil, time.Minute)
	err := svc.Watch(context.Background(), newRequest(filepath.Join(t.TempDir(), "nope", "tree.ged"), afero.NewMemMapFs()))
	assert.Error(t, err)
}

func TestSchedule_InvalidExpression(t *testing.T) {
	svc := service.NewConvertService(nil, nil, time.Minute)
	err := svc.Schedule(context.Background(), "every tuesday", newRequest("x.ged", afero.NewMemMapFs()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestSchedule_Runs(t *testing.T) {
	runs := &memRunStore{}
	svc := service.NewConvertService(runs, nil, time.Minute)
	defer svc.Stop()

	require.NoError(t, svc.Schedule(context.Background(), "@every 1s", newRequest(writeTree(t, tinyTree), afero.NewMemMapFs())))
	require.Eventually(t, func() bool {
		history, _ := svc.ListRuns(0)
		return len(history) > 0 && history[0].Trigger == domain.TriggerSchedule
	}, 5*time.Second, 100*time.Millisecond)
}

func TestStop_Idempotent(t *testing.T) {
	svc := service.NewConvertService(nil, nil, time.Minute)
	svc.Stop()
	svc.Stop()
}
