package fixer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/de-bkg/rnxfix/pkg/gfzrnx"
	"github.com/de-bkg/rnxfix/pkg/rinex"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

// Tool reads metadata and shifts the GPS week of RINEX files.
// It is implemented by *gfzrnx.Tool.
type Tool interface {
	Meta(ctx context.Context, file string) (*gfzrnx.Metadata, error)
	ShiftGPSWeek(ctx context.Context, in, out string, weeks int) error
}

// Options configures a Fixer.
type Options struct {
	Station        string // 4- or 9-char station ID for the suggested filename, default from the filename
	BackupSuffix   string // appended to the original file, default ".ORIGINAL"
	TempSuffix     string // appended to the corrected file while written, default ".FIXED"
	CompressBackup bool   // gzip the backup
	DryRun         bool   // calculate and report only

	Now func() time.Time // for testing
}

// Result reports what Fix did with a file.
type Result struct {
	Input      string // file as given
	Path       string // the corrected file, the decompressed file for compressed inputs
	Correction Correction
	Changed    bool
	Backup     string // backup of the original file

	DayOfYear     int    // of the corrected first epoch
	SuggestedName string // RINEX2 filename matching the corrected first epoch

	Err error // set by FixAll
}

// Fixer corrects files affected by the GPS week rollover.
type Fixer struct {
	tool Tool
	opts Options
	log  log.FieldLogger
}

// New returns a Fixer using tool.
func New(tool Tool, opts Options, logger log.FieldLogger) *Fixer {
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = ".ORIGINAL"
	}
	if opts.TempSuffix == "" {
		opts.TempSuffix = ".FIXED"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Fixer{tool: tool, opts: opts, log: logger}
}

// Fix corrects the file at path. The original is kept with the backup suffix.
func (f *Fixer) Fix(ctx context.Context, path string) (*Result, error) {
	res := &Result{Input: path, Path: path}
	logger := f.log.WithField("file", path)

	if rinex.IsHatanakaCompressed(path) {
		return res, errors.NotSupportedf("Hatanaka compressed file %s, use CRX2RNX first", path)
	}

	if fil, err := rinex.NewFile(path); err == nil && (fil.IsNavType() || fil.IsMeteoType()) {
		return res, errors.NotSupportedf("%s is not an observation file", path)
	}

	if rinex.IsCompressed(path) {
		// The decompressed file of an earlier run is the corrected one.
		if err := f.checkBackup(rinex.DecompressedName(path)); err != nil {
			return res, err
		}
		p, err := rinex.Decompress(path)
		if err != nil {
			return res, errors.Annotate(err, "decompress")
		}
		res.Path = p
		logger = logger.WithField("file", p)
		logger.Debug("decompressed")
		if f.opts.DryRun {
			defer os.Remove(p)
		}
	}

	meta, err := f.tool.Meta(ctx, res.Path)
	if err != nil {
		return res, err
	}
	corr, err := Calculate(meta, f.opts.Now())
	res.Correction = corr
	if err != nil {
		return res, errors.Annotatef(err, "%s", res.Path)
	}
	logger = logger.WithFields(log.Fields{"shift": corr.ShiftWeeks, "method": corr.Method})
	logger.Infof("first epoch %s, corrected %s", corr.ObservedFirst.Format(time.DateTime), corr.CorrectedFirst.Format(time.DateTime))

	res.DayOfYear = corr.CorrectedFirst.YearDay()
	if name, err := f.suggestedName(res.Path, corr.CorrectedFirst); err == nil {
		res.SuggestedName = name
	} else {
		logger.Debugf("no filename suggestion: %v", err)
	}

	if !corr.NeedsShift() {
		logger.Info("no correction needed")
		return res, nil
	}
	if f.opts.DryRun {
		return res, nil
	}

	if err := f.checkBackup(res.Path); err != nil {
		return res, err
	}
	backup := res.Path + f.opts.BackupSuffix

	tmp := res.Path + f.opts.TempSuffix
	if err := f.tool.ShiftGPSWeek(ctx, res.Path, tmp, corr.ShiftWeeks); err != nil {
		os.Remove(tmp)
		return res, err
	}

	if err := os.Rename(res.Path, backup); err != nil {
		os.Remove(tmp)
		return res, errors.Annotate(err, "backup original")
	}
	if err := os.Rename(tmp, res.Path); err != nil {
		if rerr := os.Rename(backup, res.Path); rerr != nil {
			logger.Errorf("restore original from %s: %v", backup, rerr)
		}
		return res, errors.Annotate(err, "replace original")
	}
	res.Changed = true
	res.Backup = backup
	logger.WithField("backup", backup).Info("corrected")

	if f.opts.CompressBackup {
		gz, err := rinex.Compress(backup)
		if err != nil {
			return res, errors.Annotate(err, "compress backup")
		}
		res.Backup = gz
	}
	return res, nil
}

// FixAll fixes the files one after the other. It goes on after errors and
// returns all of them. It stops before the next file if ctx is done.
func (f *Fixer) FixAll(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, 0, len(paths))
	var errs []string
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, errors.Trace(err)
		}
		// A file once started is finished, cancellation takes effect between files.
		res, err := f.Fix(context.WithoutCancel(ctx), p)
		results = append(results, res)
		if err != nil {
			res.Err = err
			f.log.WithField("file", p).Error(err)
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return results, errors.Errorf("%d of %d files failed:\n%s", len(errs), len(paths), strings.Join(errs, "\n"))
	}
	return results, nil
}

// checkBackup returns an AlreadyExists error if path has a backup, plain or gzipped.
func (f *Fixer) checkBackup(path string) error {
	backup := path + f.opts.BackupSuffix
	for _, p := range []string{backup, backup + ".gz"} {
		if _, err := os.Stat(p); err == nil {
			return errors.AlreadyExistsf("backup %s: correction already done?", p)
		}
	}
	return nil
}

func (f *Fixer) suggestedName(path string, firstEpoch time.Time) (string, error) {
	station := f.opts.Station
	if station == "" {
		fil, err := rinex.NewFile(path)
		if err != nil {
			return "", err
		}
		station = fil.FourCharID
	}
	if station == "" {
		return "", errors.NotFoundf("station ID for %s", filepath.Base(path))
	}
	return rinex.CorrectedFilename(path, station, firstEpoch)
}
