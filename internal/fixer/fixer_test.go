package fixer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/de-bkg/rnxfix/pkg/gfzrnx"
	"github.com/de-bkg/rnxfix/pkg/rinex"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func metaJSON(first, firstName string) string {
	return fmt.Sprintf(`{"file": {"name": "x", "epo_first": %q, "epo_first_name": %q}}`, first, firstName)
}

func mustMeta(t *testing.T, first, firstName string) *gfzrnx.Metadata {
	t.Helper()
	meta, err := gfzrnx.DecodeMetadata([]byte(metaJSON(first, firstName)))
	require.NoError(t, err)
	return meta
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		first     string
		firstName string
		want      Correction
		wantErr   error
	}{
		{
			name: "date from filename", first: "1999 09 15 10 30  0.0000000", firstName: "2019 05 01 00 00  0.0000000",
			want: Correction{
				ObservedFirst:  time.Date(1999, 9, 15, 10, 30, 0, 0, time.UTC),
				ReferenceFirst: time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC),
				CorrectedFirst: time.Date(2019, 5, 1, 10, 30, 0, 0, time.UTC),
				ShiftWeeks:     1024,
				Method:         MethodFilename,
			},
		},
		{
			name: "no date in filename", first: "1999 09 15 10 30  0.0000000",
			want: Correction{
				ObservedFirst:  time.Date(1999, 9, 15, 10, 30, 0, 0, time.UTC),
				CorrectedFirst: time.Date(2019, 5, 1, 10, 30, 0, 0, time.UTC),
				ShiftWeeks:     1024,
				Method:         MethodRollover,
			},
		},
		{
			name: "filename date in the future", first: "2000 02 29 00 00  0.0000000", firstName: "2039 10 16 00 00  0.0000000",
			wantErr: ErrFutureDate,
		},
		{
			name: "file is fine", first: "2019 05 01 10 30  0.0000000", firstName: "2019 05 01 00 00  0.0000000",
			want: Correction{
				ObservedFirst:  time.Date(2019, 5, 1, 10, 30, 0, 0, time.UTC),
				ReferenceFirst: time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC),
				CorrectedFirst: time.Date(2019, 5, 1, 10, 30, 0, 0, time.UTC),
				Method:         MethodFilename,
			},
		},
		{
			name: "already corrected", first: "2019 05 01 10 30  0.0000000",
			wantErr: ErrFutureDate,
		},
		{
			name: "before first rollover", first: "1985 03 01 00 00  0.0000000",
			want: Correction{
				ObservedFirst:  time.Date(1985, 3, 1, 0, 0, 0, 0, time.UTC),
				CorrectedFirst: time.Date(1985, 3, 1, 0, 0, 0, 0, time.UTC),
				Method:         MethodRollover,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(mustMeta(t, tt.first, tt.firstName), testNow)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.ShiftWeeks != 0, got.NeedsShift())
		})
	}

	_, err := Calculate(nil, testNow)
	assert.True(t, errors.IsNotValid(err))

	_, err = Calculate(mustMeta(t, "1999 19 15 10 30  0.0000000", ""), testNow)
	assert.True(t, errors.IsNotValid(err))
}

// fakeGfzrnx answers metadata requests with meta and writes "shifted" files.
type fakeGfzrnx struct {
	meta     map[string]string // by input file
	shiftErr error
	shifts   [][]string
}

func (f *fakeGfzrnx) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	in := args[indexOf(args, "-finp")+1]
	if indexOf(args, "-meta") >= 0 {
		m, ok := f.meta[filepath.Base(in)]
		if !ok {
			return nil, []byte("cannot read " + in), &gfzrnx.ExitError{Args: append([]string{name}, args...), Code: 1}
		}
		return []byte(m), nil, nil
	}

	f.shifts = append(f.shifts, args)
	out := args[indexOf(args, "-fout")+1]
	if err := os.WriteFile(out, []byte("shifted"), 0644); err != nil {
		return nil, nil, err
	}
	if f.shiftErr != nil {
		return nil, nil, f.shiftErr
	}
	return nil, nil, nil
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

func newTestFixer(t *testing.T, fake *fakeGfzrnx, opts Options) *Fixer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts.Now = func() time.Time { return testNow }
	return New(gfzrnx.New("gfzrnx", gfzrnx.WithRunner(fake), gfzrnx.WithLogger(logger)), opts, logger)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const (
	epoBroken = "1999 09 15 10 30  0.0000000"
	epoName   = "2019 05 01 00 00  0.0000000"
)

func TestFix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sstr1210.19o")
	writeFile(t, path, "original")

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)}}
	fx := newTestFixer(t, fake, Options{})

	res, err := fx.Fix(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, path+".ORIGINAL", res.Backup)
	assert.Equal(t, 1024, res.Correction.ShiftWeeks)
	assert.Equal(t, 121, res.DayOfYear)
	assert.Equal(t, "sstr1210.19o", res.SuggestedName)

	require.Len(t, fake.shifts, 1)
	assert.Equal(t, []string{"-shift_gpsw", "1024", "-finp", path, "-fout", path + ".FIXED", "-vo", "2"}, fake.shifts[0])

	assert.Equal(t, "shifted", readFile(t, path))
	assert.Equal(t, "original", readFile(t, res.Backup))
	assert.NoFileExists(t, path+".FIXED")

	// A second run must not overwrite the backup.
	_, err = fx.Fix(context.Background(), path)
	assert.True(t, errors.IsAlreadyExists(err), "got %v", err)
	assert.Len(t, fake.shifts, 1)
	assert.Equal(t, "original", readFile(t, res.Backup))
}

func TestFix_Station(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOG_0815.OBS")
	writeFile(t, path, "original")

	fake := &fakeGfzrnx{meta: map[string]string{"LOG_0815.OBS": metaJSON(epoBroken, "")}}
	fx := newTestFixer(t, fake, Options{Station: "sstr", BackupSuffix: ".BAK", TempSuffix: ".TMP"})

	res, err := fx.Fix(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, MethodRollover, res.Correction.Method)
	assert.Equal(t, "SSTR1210.19O", res.SuggestedName)
	assert.Equal(t, path+".BAK", res.Backup)
	assert.Equal(t, path+".TMP", fake.shifts[0][5])
}

func TestFix_NothingToDo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sstr1210.19o")
	writeFile(t, path, "original")

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON("2019 05 01 10 30  0.0000000", epoName)}}
	res, err := newTestFixer(t, fake, Options{}).Fix(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, fake.shifts)
	assert.NoFileExists(t, path+".ORIGINAL")
}

func TestFix_DryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sstr1210.19o")
	writeFile(t, path, "original")

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)}}
	res, err := newTestFixer(t, fake, Options{DryRun: true}).Fix(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1024, res.Correction.ShiftWeeks)
	assert.Empty(t, fake.shifts)
	assert.Equal(t, "original", readFile(t, path))
}

func TestFix_ShiftFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sstr1210.19o")
	writeFile(t, path, "original")

	fake := &fakeGfzrnx{
		meta:     map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)},
		shiftErr: &gfzrnx.ExitError{Args: []string{"gfzrnx"}, Code: 1, Stderr: "write error"},
	}
	res, err := newTestFixer(t, fake, Options{}).Fix(context.Background(), path)
	require.Error(t, err)
	_, ok := gfzrnx.AsExitError(err)
	assert.True(t, ok)
	assert.False(t, res.Changed)
	assert.Equal(t, "original", readFile(t, path))
	assert.NoFileExists(t, path+".FIXED")
	assert.NoFileExists(t, path+".ORIGINAL")
}

func TestFix_GzippedBackupExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sstr1210.19o")
	writeFile(t, path, "original")
	writeFile(t, path+".ORIGINAL.gz", "backup")

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)}}
	_, err := newTestFixer(t, fake, Options{}).Fix(context.Background(), path)
	assert.True(t, errors.IsAlreadyExists(err), "got %v", err)
	assert.Empty(t, fake.shifts)
	assert.Equal(t, "original", readFile(t, path))
	assert.NoFileExists(t, path+".ORIGINAL")
}

// noOutput claims to have shifted the file without writing the output.
type noOutput struct{ *gfzrnx.Tool }

func (noOutput) ShiftGPSWeek(context.Context, string, string, int) error { return nil }

func TestFix_ReplaceFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sstr1210.19o")
	writeFile(t, path, "original")

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)}}
	logger, hook := test.NewNullLogger()
	tool := noOutput{gfzrnx.New("gfzrnx", gfzrnx.WithRunner(fake), gfzrnx.WithLogger(logger))}
	fx := New(tool, Options{Now: func() time.Time { return testNow }}, logger)

	res, err := fx.Fix(context.Background(), path)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)), "got %v", err)
	assert.Contains(t, err.Error(), "replace original")
	assert.False(t, res.Changed)
	assert.Empty(t, res.Backup)

	// The original is restored from the backup.
	assert.Equal(t, "original", readFile(t, path))
	assert.NoFileExists(t, path+".ORIGINAL")
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, log.ErrorLevel, e.Level, e.Message)
	}
}

func TestFix_Errors(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeGfzrnx{meta: map[string]string{
		"sstr1210.19o": metaJSON("2019 05 01 10 30  0.0000000", ""),
	}}
	fx := newTestFixer(t, fake, Options{})

	_, err := fx.Fix(context.Background(), filepath.Join(dir, "sstr1210.19d"))
	assert.True(t, errors.IsNotSupported(err), "got %v", err)

	for _, name := range []string{"sstr1210.19n", "sstr1210.19m.gz", "BRUX00BEL_R_20191210000_01D_MN.rnx"} {
		_, err = fx.Fix(context.Background(), filepath.Join(dir, name))
		assert.True(t, errors.IsNotSupported(err), "%s: got %v", name, err)
	}

	_, err = fx.Fix(context.Background(), filepath.Join(dir, "unknown.19o"))
	_, ok := gfzrnx.AsExitError(err)
	assert.True(t, ok, "got %v", err)

	path := filepath.Join(dir, "sstr1210.19o")
	writeFile(t, path, "original")
	_, err = fx.Fix(context.Background(), path)
	assert.Equal(t, ErrFutureDate, errors.Cause(err))
	assert.Empty(t, fake.shifts)
}

func TestFix_Compressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sstr1210.19o")
	writeFile(t, path, "original")
	gz, err := rinex.Compress(path)
	require.NoError(t, err)

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)}}
	res, err := newTestFixer(t, fake, Options{CompressBackup: true}).Fix(context.Background(), gz)
	require.NoError(t, err)
	assert.Equal(t, gz, res.Input)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, path+".ORIGINAL.gz", res.Backup)
	assert.FileExists(t, res.Backup)
	assert.NoFileExists(t, path+".ORIGINAL")
	assert.Equal(t, "shifted", readFile(t, path))

	// Running again finds the backup before decompressing.
	_, err = newTestFixer(t, fake, Options{CompressBackup: true}).Fix(context.Background(), gz)
	assert.True(t, errors.IsAlreadyExists(err), "got %v", err)
	assert.Len(t, fake.shifts, 1)
	assert.Equal(t, "shifted", readFile(t, path))
}

func TestFix_CompressedDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sstr1210.19o")
	writeFile(t, path, "original")
	gz, err := rinex.Compress(path)
	require.NoError(t, err)

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)}}
	_, err = newTestFixer(t, fake, Options{DryRun: true}).Fix(context.Background(), gz)
	require.NoError(t, err)
	assert.NoFileExists(t, path, "decompressed file removed")
	assert.FileExists(t, gz)
}

func TestFixAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "sstr1210.19o")
	writeFile(t, good, "original")
	missing := filepath.Join(dir, "abcd1210.19o")

	fake := &fakeGfzrnx{meta: map[string]string{"sstr1210.19o": metaJSON(epoBroken, epoName)}}
	results, err := newTestFixer(t, fake, Options{}).FixAll(context.Background(), []string{missing, good})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "1 of 2 files failed"), err.Error())
	assert.Contains(t, err.Error(), "abcd1210.19o")
	require.Len(t, results, 2)
	assert.False(t, results[0].Changed)
	assert.Error(t, results[0].Err)
	assert.True(t, results[1].Changed)
	assert.NoError(t, results[1].Err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err = newTestFixer(t, fake, Options{}).FixAll(ctx, []string{good})
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Empty(t, results)
}
