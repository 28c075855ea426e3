package rinex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// RedateStats summarizes a Redate run.
type RedateStats struct {
	Version       float32   // RINEX version of the input.
	HeaderRecords int       // Number of TIME OF FIRST/LAST OBS records changed.
	Epochs        int       // Number of epoch records changed.
	FirstEpoch    time.Time // First epoch after the change.
	LastEpoch     time.Time // Last epoch after the change.
}

// Redate copies RINEX observation data from r to w and sets the calendar
// date of the TIME OF FIRST OBS and TIME OF LAST OBS header records and of
// all epoch records to the date of date. Time of day, epoch flags and the
// observations are kept as they are, so are the line endings, LF or CRLF.
//
// Compact RINEX is not supported, decompress it first.
func Redate(r io.Reader, w io.Writer, date time.Time) (RedateStats, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	bw := bufio.NewWriter(w)
	rd := &redater{sc: sc, w: bw, date: date, eol: "\n"}
	sc.Split(rd.splitLines)

	if err := rd.header(); err != nil {
		return rd.stats, err
	}

	var err error
	if rd.dec.hdr.RINEXVersion < 3 {
		err = rd.bodyV2()
	} else {
		err = rd.bodyV3()
	}
	if err != nil {
		return rd.stats, err
	}
	if err := sc.Err(); err != nil {
		return rd.stats, fmt.Errorf("read epochs: %v", err)
	}

	return rd.stats, bw.Flush()
}

// RedateFile writes the redated content of the file in to the file out.
// The output file is removed if an error occurs.
func RedateFile(in, out string, date time.Time) (RedateStats, error) {
	if filepath.Clean(in) == filepath.Clean(out) {
		return RedateStats{}, fmt.Errorf("redate: input and output are the same file: %s", in)
	}

	r, err := os.Open(in)
	if err != nil {
		return RedateStats{}, err
	}
	defer r.Close()

	w, err := os.Create(out)
	if err != nil {
		return RedateStats{}, err
	}

	stats, err := Redate(r, w, date)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return stats, fmt.Errorf("redate %s: %w", in, err)
	}
	return stats, nil
}

// RedatedName returns the default output name for Redate: "_dated" is
// inserted before the extension.
func RedatedName(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "_dated" + ext
}

type redater struct {
	sc      *bufio.Scanner
	w       *bufio.Writer // write errors are sticky and reported by Flush
	date    time.Time
	dec     *headerDecoder
	eol     string // line ending of the current line
	lineNum int
	stats   RedateStats
}

// splitLines is bufio.ScanLines that notes the line ending.
func (rd *redater) splitLines(data []byte, atEOF bool) (int, []byte, error) {
	advance, token, err := bufio.ScanLines(data, atEOF)
	if token != nil {
		rd.eol = "\n"
		if advance > len(token)+1 {
			rd.eol = "\r\n"
		}
	}
	return advance, token, err
}

func (rd *redater) readLine() bool {
	if ok := rd.sc.Scan(); !ok {
		return false
	}
	rd.lineNum++
	return true
}

func (rd *redater) line() string {
	return rd.sc.Text()
}

func (rd *redater) write(line string) {
	rd.w.WriteString(line)
	rd.w.WriteString(rd.eol)
}

// copyLines passes n lines through unchanged.
func (rd *redater) copyLines(n int, fn func(string) error) error {
	for i := 0; i < n; i++ {
		if !rd.readLine() {
			if err := rd.sc.Err(); err != nil {
				return err
			}
			return fmt.Errorf("line %d: unexpected end of file", rd.lineNum)
		}
		if fn != nil {
			if err := fn(rd.line()); err != nil {
				return fmt.Errorf("line %d: %v", rd.lineNum, err)
			}
		}
		rd.write(rd.line())
	}
	return nil
}

func (rd *redater) header() error {
	rd.dec = newHeaderDecoder()
	for !rd.dec.done {
		if !rd.readLine() {
			if err := rd.sc.Err(); err != nil {
				return err
			}
			if rd.lineNum == 0 {
				return ErrNoHeader
			}
			return fmt.Errorf("read header: missing %q", labelEnd)
		}

		line := rd.line()
		if err := rd.dec.decodeLine(line); err != nil {
			return err
		}

		if len(line) > 60 {
			if key := strings.TrimSpace(line[60:]); key == labelFirstObs || key == labelLastObs {
				t, err := ParseEpoch(line[:43])
				if err != nil {
					return fmt.Errorf("parse %q: %v", key, err)
				}
				line = FormatEpoch(withDate(t, rd.date)) + line[43:]
				rd.stats.HeaderRecords++
			}
		}
		rd.write(line)
	}

	rd.stats.Version = rd.dec.hdr.RINEXVersion
	if rd.dec.hdr.RINEXType != "O" {
		return fmt.Errorf("not a RINEX observation file: type %q", rd.dec.hdr.RINEXType)
	}
	return nil
}

// epochRecord holds the fields of an epoch record needed to walk the body.
type epochRecord struct {
	time    time.Time
	hasTime bool
	flag    int
	num     int // number of satellites or special records
}

// isEvent reports whether special records follow instead of observations.
// Flag 6 (cycle slips) uses the observation layout.
func (epo epochRecord) isEvent() bool {
	return epo.flag >= 2 && epo.flag <= 5
}

func (rd *redater) countEpoch(t time.Time) {
	if rd.stats.Epochs == 0 {
		rd.stats.FirstEpoch = t
	}
	rd.stats.LastEpoch = t
	rd.stats.Epochs++
}

// bodyV2 walks a RINEX-2 body record by record. Observation lines cannot be
// told apart from epoch lines by their look, so the number of satellites and
// observation types decide how many lines belong to an epoch.
func (rd *redater) bodyV2() error {
	for rd.readLine() {
		line := rd.line()
		if strings.TrimSpace(line) == "" {
			rd.write(line)
			continue
		}

		epo, err := parseEpochRecordV2(line)
		if err != nil {
			return fmt.Errorf("rinex2: line %d: %v", rd.lineNum, err)
		}

		if epo.hasTime {
			t := withDate(epo.time, rd.date)
			line = fmt.Sprintf(" %02d%s%s", t.Year()%100, pad2(int(t.Month()), line[4:6]), pad2(t.Day(), line[7:9])) + line[9:]
			rd.countEpoch(t)
		}
		rd.write(line)

		if epo.isEvent() {
			var fn func(string) error
			if epo.flag == 4 { // header records may redefine the observation types
				fn = rd.dec.decodeRecord
			}
			if err := rd.copyLines(epo.num, fn); err != nil {
				return fmt.Errorf("rinex2: %v", err)
			}
			continue
		}

		ntypes := rd.dec.hdr.NumObsTypes()
		if ntypes == 0 {
			return fmt.Errorf("rinex2: no observation types defined in header")
		}
		n := 0
		if epo.num > 0 {
			n = (epo.num-1)/12 + epo.num*((ntypes+4)/5)
		}
		if err := rd.copyLines(n, nil); err != nil {
			return fmt.Errorf("rinex2: %v", err)
		}
	}
	return nil
}

// bodyV3 changes all epoch records, which start with '>' in RINEX 3 and 4.
func (rd *redater) bodyV3() error {
	for rd.readLine() {
		line := rd.line()
		if strings.HasPrefix(line, ">") && len(line) >= 29 && strings.TrimSpace(line[2:29]) != "" {
			epoTime, err := ParseEpoch(line[2:29])
			if err != nil {
				return fmt.Errorf("rinex: line %d: %v", rd.lineNum, err)
			}
			t := withDate(epoTime, rd.date)
			line = line[:2] + fmt.Sprintf("%04d %02d %02d", t.Year(), int(t.Month()), t.Day()) + line[12:]
			rd.countEpoch(t)
		}
		rd.write(line)
	}
	return nil
}

// parseEpochRecordV2 parses a RINEX-2 epoch record:
// " yy mm dd hh mm ss.sssssss  f nnnGnnGnn..."
func parseEpochRecordV2(line string) (epochRecord, error) {
	var epo epochRecord
	if len(line) < 29 {
		return epo, fmt.Errorf("not an epoch record: %q", line)
	}

	flag, err := strconv.Atoi(line[28:29])
	if err != nil {
		return epo, fmt.Errorf("parse epoch flag: %q", line)
	}
	epo.flag = flag

	if len(line) > 29 {
		end := 32
		if len(line) < end {
			end = len(line)
		}
		if s := strings.TrimSpace(line[29:end]); s != "" {
			if epo.num, err = strconv.Atoi(s); err != nil {
				return epo, fmt.Errorf("parse number of satellites: %q", line)
			}
		}
	}

	if strings.TrimSpace(line[1:26]) == "" {
		if !epo.isEvent() {
			return epo, fmt.Errorf("epoch record without time: %q", line)
		}
		return epo, nil
	}

	epo.time, err = ParseEpoch(line[1:26])
	if err != nil {
		return epo, err
	}
	epo.hasTime = true
	return epo, nil
}

// pad2 formats n with width 2 and keeps the zero padding style of orig.
func pad2(n int, orig string) string {
	if strings.HasPrefix(orig, "0") {
		return fmt.Sprintf(" %02d", n)
	}
	return fmt.Sprintf(" %2d", n)
}
