package rinex

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/de-bkg/rnxfix/pkg/gnss"
)

const (
	// The Date/Time format in the PGM / RUN BY / DATE header record.
	headerDateFormat string = "20060102 150405"

	// The Date/Time format with time zone in the PGM / RUN BY / DATE header record.
	//
	// Format: "yyyymmdd hhmmss zone" with 3–4 character code for the time zone.
	headerDateWithZoneFormat string = "20060102 150405 MST"

	// The RINEX-2 Date/Time format in the PGM / RUN BY / DATE header record.
	headerDateFormatv2 string = "02-Jan-06 15:04"

	labelFirstObs = "TIME OF FIRST OBS"
	labelLastObs  = "TIME OF LAST OBS"
	labelEnd      = "END OF HEADER"
)

// A ObsHeader provides the RINEX Observation Header information.
type ObsHeader struct {
	RINEXVersion float32 // RINEX Format version
	RINEXType    string  // RINEX File type. O for Obs
	// The header satellite system. Note that system is "Mixed" if more than one.
	SatSystem gnss.System

	Pgm   string    // name of program creating this file
	RunBy string    // name of agency creating this file
	Date  time.Time // Date and time of file creation.

	Comments []string

	MarkerName   string // The name of the antenna marker, usually the 4 or 9-character station ID.
	MarkerNumber string

	Observer, Agency string

	ReceiverNumber, ReceiverType, ReceiverVersion string
	AntennaNumber, AntennaType                    string

	ObsTypes map[gnss.System][]string // List of all observation types per GNSS.

	Interval       float64 // Observation interval in seconds
	TimeOfFirstObs time.Time
	TimeOfLastObs  time.Time
	TimeSystem     string // GPS, GLO, GAL, ... as given with TIME OF FIRST OBS.
	LeapSeconds    int
	NSatellites    int

	Labels   []string // all Header Labels found.
	Warnings []string
}

// SatSystems returns all used satellite systems.
func (hdr *ObsHeader) SatSystems() gnss.Systems {
	sysList := make(gnss.Systems, 0, len(hdr.ObsTypes))
	for sys := range hdr.ObsTypes {
		sysList = append(sysList, sys)
	}
	return sysList
}

// NumObsTypes returns the number of observation types of a RINEX-2 file.
func (hdr *ObsHeader) NumObsTypes() int {
	return len(hdr.ObsTypes[hdr.SatSystem])
}

// ReadObsHeader reads a RINEX Observation header up to END OF HEADER.
// If the Header does not exist, ErrNoHeader will be returned.
func ReadObsHeader(r io.Reader) (ObsHeader, error) {
	sc := bufio.NewScanner(r)
	dec := newHeaderDecoder()
	for sc.Scan() {
		if err := dec.decodeLine(sc.Text()); err != nil {
			return dec.hdr, err
		}
		if dec.done {
			return dec.hdr, nil
		}
	}
	if err := sc.Err(); err != nil {
		return dec.hdr, err
	}
	if dec.lineNum == 0 {
		return dec.hdr, ErrNoHeader
	}
	return dec.hdr, fmt.Errorf("read header: missing %q", labelEnd)
}

// headerDecoder decodes header lines one by one, so that callers copying
// a file can look at the header while passing it through.
type headerDecoder struct {
	hdr         ObsHeader
	lineNum     int
	rememberSys gnss.System
	done        bool
}

func newHeaderDecoder() *headerDecoder {
	return &headerDecoder{hdr: ObsHeader{ObsTypes: map[gnss.System][]string{}}}
}

// decodeLine decodes the next header line. done is set after END OF HEADER.
func (dec *headerDecoder) decodeLine(line string) error {
	dec.lineNum++
	if dec.lineNum == 1 {
		if strings.HasPrefix(line, "CRINEX") || strings.Contains(line, "CRINEX VERS") {
			return ErrCompactRINEX
		}
		if !strings.Contains(line, "RINEX VERS") {
			return ErrNoHeader
		}
	}
	return dec.decodeRecord(line)
}

// decodeRecord decodes a header record. It is also used for the header records
// following an epoch with event flag 4.
func (dec *headerDecoder) decodeRecord(line string) error {
	hdr := &dec.hdr
	if len(line) < 61 {
		// Some writers do not pad the last header line.
		if strings.TrimSpace(line) == labelEnd {
			dec.done = true
			if hdr.RINEXVersion == 0 {
				return fmt.Errorf("unknown RINEX Version")
			}
		}
		return nil
	}

	val := line[:60] // RINEX files are ASCII
	key := strings.TrimSpace(line[60:])
	hdr.Labels = append(hdr.Labels, key)

	switch key {
	case "RINEX VERSION / TYPE":
		f64, err := strconv.ParseFloat(strings.TrimSpace(val[:20]), 32)
		if err != nil {
			return fmt.Errorf("parse RINEX VERSION: %v", err)
		}
		hdr.RINEXVersion = float32(f64)
		hdr.RINEXType = strings.TrimSpace(val[20:21])
		sys, err := gnss.ParseSystem(val[40:41])
		if err != nil {
			return fmt.Errorf("read header: line %d: %v", dec.lineNum, err)
		}
		hdr.SatSystem = sys
	case "PGM / RUN BY / DATE":
		if hdr.Pgm != "" {
			return nil
		}
		hdr.Pgm = strings.TrimSpace(val[:20])
		hdr.RunBy = strings.TrimSpace(val[20:40])
		if date, err := parseHeaderDate(strings.TrimSpace(val[40:])); err == nil {
			hdr.Date = date
		} else {
			hdr.Warnings = append(hdr.Warnings, fmt.Sprintf("parse header date: %q: %v", val[40:], err))
		}
	case "COMMENT":
		hdr.Comments = append(hdr.Comments, strings.TrimSpace(val))
	case "MARKER NAME":
		hdr.MarkerName = strings.TrimSpace(val)
	case "MARKER NUMBER":
		hdr.MarkerNumber = strings.TrimSpace(val[:20])
	case "OBSERVER / AGENCY":
		hdr.Observer = strings.TrimSpace(val[:20])
		hdr.Agency = strings.TrimSpace(val[20:])
	case "REC # / TYPE / VERS":
		hdr.ReceiverNumber = strings.TrimSpace(val[:20])
		hdr.ReceiverType = strings.TrimSpace(val[20:40])
		hdr.ReceiverVersion = strings.TrimSpace(val[40:])
	case "ANT # / TYPE":
		hdr.AntennaNumber = strings.TrimSpace(val[:20])
		hdr.AntennaType = strings.TrimSpace(val[20:40])
	case "SYS / # / OBS TYPES":
		var sys gnss.System
		if val[:1] == " " { // line continued
			sys = dec.rememberSys
		} else {
			var err error
			if sys, err = gnss.ParseSystem(val[:1]); err != nil {
				return fmt.Errorf("read header: line %d: %v", dec.lineNum, err)
			}
			dec.rememberSys = sys
			nTypes, err := strconv.Atoi(strings.TrimSpace(val[3:6]))
			if err != nil {
				return fmt.Errorf("parse %q: %v", key, err)
			}
			hdr.ObsTypes[sys] = make([]string, 0, nTypes)
		}
		hdr.ObsTypes[sys] = append(hdr.ObsTypes[sys], strings.Fields(val[7:])...)
	case "# / TYPES OF OBSERV": // RINEX-2
		sys := hdr.SatSystem
		if strings.TrimSpace(val[:6]) != "" { // number of obs types
			nTypes, err := strconv.Atoi(strings.TrimSpace(val[:6]))
			if err != nil {
				return fmt.Errorf("parse %q: %v", key, err)
			}
			hdr.ObsTypes[sys] = make([]string, 0, nTypes)
		}
		hdr.ObsTypes[sys] = append(hdr.ObsTypes[sys], strings.Fields(val[6:])...)
	case "INTERVAL":
		if f64, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			hdr.Interval = f64
		}
	case labelFirstObs:
		t, err := ParseEpoch(val[:43])
		if err != nil {
			return fmt.Errorf("parse %q: %v", key, err)
		}
		hdr.TimeOfFirstObs = t
		hdr.TimeSystem = strings.TrimSpace(val[43:51])
	case labelLastObs:
		t, err := ParseEpoch(val[:43])
		if err != nil {
			return fmt.Errorf("parse %q: %v", key, err)
		}
		hdr.TimeOfLastObs = t
	case "LEAP SECONDS":
		i, err := strconv.Atoi(strings.TrimSpace(val[:6]))
		if err != nil {
			return fmt.Errorf("parse %q: %v", key, err)
		}
		hdr.LeapSeconds = i
	case "# OF SATELLITES":
		i, err := strconv.Atoi(strings.TrimSpace(val[:6]))
		if err != nil {
			return fmt.Errorf("parse %q: %v", key, err)
		}
		hdr.NSatellites = i
	case labelEnd:
		dec.done = true
		if hdr.RINEXVersion == 0 {
			return fmt.Errorf("unknown RINEX Version")
		}
	}

	return nil
}

// Parse the Date/Time in the PGM / RUN BY / DATE header record.
// It is recommended to use UTC as the time zone. Set zone to LCL if an unknown local time was used.
func parseHeaderDate(date string) (time.Time, error) {
	format := headerDateFormat
	if len(date) == 19 || len(date) == 20 {
		format = headerDateWithZoneFormat
	} else if len(date) == 15 && strings.Contains(date, "-") {
		format = headerDateFormatv2
	} else if len(date) == 18 && strings.Contains(date, "-") {
		format = "02-Jan-06 15:04:05" // unofficial!
	} else if len(date) == 17 && strings.Contains(date, "-") {
		format = "02-Jan-2006 15:04" // unofficial!
	} else if len(date) == 16 && strings.Contains(date, "-") {
		format = "2006-01-02 15:04" // unofficial!
	}

	return time.Parse(format, date)
}
