// Package fixer repairs RINEX observation files affected by the GPS week rollover.
package fixer

import (
	"time"

	"github.com/de-bkg/rnxfix/pkg/gfzrnx"
	"github.com/de-bkg/rnxfix/pkg/gnss"
	"github.com/juju/errors"
)

// ErrFutureDate is returned if the corrected first epoch lies in the future.
// In most cases the file was corrected already.
var ErrFutureDate = errors.New("corrected date lies in the future, correction already done?")

// Method names how the week shift was determined.
type Method string

const (
	// MethodFilename compares the first epoch with the date given by the filename.
	MethodFilename Method = "filename"

	// MethodRollover adds the rollovers counted since the GPS epoch.
	MethodRollover Method = "rollover"
)

// Correction describes the week shift for a file.
type Correction struct {
	ObservedFirst  time.Time // first epoch as written in the file
	ReferenceFirst time.Time // first epoch according to the filename, zero for MethodRollover
	CorrectedFirst time.Time // first epoch after the shift
	ShiftWeeks     int
	Method         Method
}

// NeedsShift reports whether the file has to be rewritten.
func (c Correction) NeedsShift() bool {
	return c.ShiftWeeks != 0
}

// Calculate determines the GPS week shift for a file from its gfzrnx metadata.
func Calculate(meta *gfzrnx.Metadata, now time.Time) (Correction, error) {
	var c Correction
	if meta == nil {
		return c, errors.NotValidf("nil metadata")
	}

	observed, err := meta.File.FirstEpoch()
	if err != nil {
		return c, errors.Annotate(err, "first epoch")
	}
	c.ObservedFirst = observed

	if ref, ok := meta.File.FirstEpochFromName(); ok {
		c.ReferenceFirst = ref
		c.ShiftWeeks = gnss.WeekShift(observed, ref)
		c.Method = MethodFilename
	} else {
		c.ShiftWeeks = gnss.Rollovers(observed) * gnss.WeekRollover
		c.Method = MethodRollover
	}
	c.CorrectedFirst = gnss.AddWeeks(observed, c.ShiftWeeks)

	if c.CorrectedFirst.After(now) {
		return c, errors.Trace(ErrFutureDate)
	}
	return c, nil
}
