// Package rinex provides functions for reading and repairing RINEX observation files.
package rinex

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// rnx3StartTimeFormat is the time format for the start time in RINEX3 file names.
	rnx3StartTimeFormat string = "20060021504"
)

// errors
var (
	// ErrNoHeader is returned when reading RINEX data that does not begin with a RINEX Header.
	ErrNoHeader = errors.New("RINEX: no header")

	// ErrCompactRINEX is returned for Hatanaka compressed input where plain RINEX is needed.
	ErrCompactRINEX = errors.New("RINEX: compact RINEX (Hatanaka) not supported")
)

var (
	// Rnx2FileNamePattern is the regex for RINEX2 filenames.
	Rnx2FileNamePattern = regexp.MustCompile(`(([a-z0-9]{4})(\d{3})([a-x0])(\d{2})?\.(\d{2})([domnglqfph]))\.?([a-zA-Z0-9]+)?`)

	// Rnx3FileNamePattern is the regex for RINEX3 filenames.
	Rnx3FileNamePattern = regexp.MustCompile(`((([A-Z0-9]{4})(\d)(\d)([A-Z]{3})_([RSU])_((\d{4})(\d{3})(\d{2})(\d{2}))_(\d{2}[A-Z])_?(\d{2}[CZSMHDU])?_([GREJCSM][MNO]))\.(rnx|crx))\.?([a-zA-Z0-9]+)?`)

	// rnxTypMap maps RINEX3 data-types to RINEX2 types.
	rnxTypMap = map[string]string{"GO": "o", "RO": "o", "EO": "o", "JO": "o", "CO": "o", "IO": "o", "SO": "o", "MO": "o",
		"GN": "n", "RN": "g", "EN": "l", "JN": "q", "CN": "f", "SN": "h", "MN": "p", "MM": "m"}
)

// RnxFil contains the fields that can be derived from a RINEX filename.
type RnxFil struct {
	Path string

	FourCharID     string
	MonumentNumber int
	ReceiverNumber int
	CountryCode    string // ISO 3char
	StartTime      time.Time
	DataSource     string // [RSU]
	FilePeriod     string // 15M, 01H, 01D
	DataFreq       string // 30S, not for nav files
	DataType       string // The data type abbreviations GO, RO, MN, MM, ...
	Format         string // rnx, crx. Attention: Format and Hatanaka are dependent!
	Compression    string // gz, ...
}

// NewFile returns a new RINEX file object. Names that do not follow the
// RINEX conventions give a file with only Path set.
func NewFile(filepath string) (*RnxFil, error) {
	fil := &RnxFil{Path: filepath}
	err := fil.parseFilename()
	return fil, err
}

// SetStationName sets the station or project name.
// IGS users should follow the XXXXMRCCC (9 char) site and station naming convention.
func (f *RnxFil) SetStationName(name string) error {
	if len(name) == 4 {
		f.FourCharID = strings.ToUpper(name)
	} else if len(name) == 9 {
		f.FourCharID = strings.ToUpper(name[:4])
		f.MonumentNumber, _ = strconv.Atoi(name[4:5])
		f.ReceiverNumber, _ = strconv.Atoi(name[5:6])
		f.CountryCode = strings.ToUpper(name[6:])
	} else {
		return fmt.Errorf("weird station identifier %q", name)
	}

	return nil
}

// Rnx2Filename returns the filename following the RINEX2 convention.
func (f *RnxFil) Rnx2Filename() (string, error) {
	if len(f.FourCharID) != 4 {
		return "", fmt.Errorf("FourCharID: %s", f.FourCharID)
	}

	var fn strings.Builder
	fn.WriteString(strings.ToLower(f.FourCharID))
	fn.WriteString(fmt.Sprintf("%03d", f.StartTime.YearDay()))
	if f.FilePeriod == "01D" {
		fn.WriteString("0")
	} else {
		fn.WriteString(getHourAsChar(f.StartTime.Hour()))
	}

	if f.FilePeriod == "15M" { // 15min highrates
		d := time.Duration(f.StartTime.Minute()) * time.Minute
		fn.WriteString(fmt.Sprintf("%02d", int(d.Truncate(15*time.Minute).Minutes())))
	}

	fn.WriteString(fmt.Sprintf(".%02d", f.StartTime.Year()%100))

	rnx2Typ, ok := rnxTypMap[f.DataType]
	if !ok {
		return "", fmt.Errorf("could not map type %q to RINEX2", f.DataType)
	}
	if f.IsObsType() && f.Format == "crx" {
		fn.WriteString("d")
	} else {
		fn.WriteString(rnx2Typ)
	}

	shouldLength := 12
	if f.FilePeriod == "15M" {
		shouldLength = 14
	}

	if length := fn.Len(); length != shouldLength {
		return "", fmt.Errorf("wrong filename length: %s: %d (should: %d)", fn.String(), length, shouldLength)
	}

	return fn.String(), nil
}

// IsObsType returns true if the file is a RINEX observation file type.
func (f *RnxFil) IsObsType() bool {
	return strings.HasSuffix(f.DataType, "O")
}

// IsNavType returns true if the file is a RINEX navigation file type.
func (f *RnxFil) IsNavType() bool {
	return strings.HasSuffix(f.DataType, "N")
}

// IsMeteoType returns true if the file is a RINEX meteo file type.
func (f *RnxFil) IsMeteoType() bool {
	return strings.HasSuffix(f.DataType, "M")
}

// parseFilename parses the filename and fills the fields it can derive.
// RINEX2 names are matched case-insensitively, field receivers often write them uppercase.
func (f *RnxFil) parseFilename() error {
	if f.Path == "" {
		return fmt.Errorf("could not parse filename: Path is empty")
	}

	fn := filepath.Base(f.Path)
	if len(fn) > 20 { // Rnx3
		res := Rnx3FileNamePattern.FindStringSubmatch(fn)
		for k, v := range res {
			switch k {
			case 3:
				f.FourCharID = strings.ToUpper(v)
			case 4:
				i, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("could not parse MonumentNumber: %s", v)
				}
				f.MonumentNumber = i
			case 5:
				i, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("could not parse ReceiverNumber: %s", v)
				}
				f.ReceiverNumber = i
			case 6:
				f.CountryCode = strings.ToUpper(v)
			case 7:
				f.DataSource = strings.ToUpper(v)
			case 8:
				t, err := time.Parse(rnx3StartTimeFormat, v)
				if err != nil {
					return fmt.Errorf("could not parse start time: %s: %v", v, err)
				}
				f.StartTime = t
			case 13:
				f.FilePeriod = strings.ToUpper(v)
			case 14:
				f.DataFreq = strings.ToUpper(v)
			case 15:
				f.DataType = strings.ToUpper(v)
			case 16:
				f.Format = strings.ToLower(v)
			case 17:
				f.Compression = v
			}
		}
		return nil
	}

	res := Rnx2FileNamePattern.FindStringSubmatch(strings.ToLower(fn))
	for k, v := range res {
		switch k {
		case 2:
			f.FourCharID = strings.ToUpper(v)
		case 5: // highrate minutes
			if res[4] == "0" {
				f.FilePeriod = "01D"
				f.DataFreq = "30S"
			} else if v != "" {
				f.FilePeriod = "15M"
				f.DataFreq = "01S"
			} else {
				f.FilePeriod = "01H"
				f.DataFreq = "30S"
			}
		case 6: // yr
			yy, _ := strconv.Atoi(v)
			d, _ := strconv.Atoi(res[3])
			doy := ParseDoy(yy, d)
			if d < 1 || doy.Year() != fullYear(yy) {
				return fmt.Errorf("could not parse DoY: %s%s", v, res[3])
			}
			hr := 0
			if res[4] != "0" {
				var err error
				if hr, err = getHourAsDigit(rune(res[4][0])); err != nil {
					return err
				}
			}
			min := 0
			if res[5] != "" {
				min, _ = strconv.Atoi(res[5])
			}
			f.StartTime = doy.Add(time.Duration(hr)*time.Hour + time.Duration(min)*time.Minute)
		case 7:
			switch v {
			case "o":
				f.DataType = "MO"
				f.Format = "rnx"
			case "d":
				f.DataType = "MO"
				f.Format = "crx"
			case "n":
				f.DataType = "GN"
				f.Format = "rnx"
			case "g":
				f.DataType = "RN"
				f.Format = "rnx"
			case "m":
				f.DataType = "MM"
				f.Format = "rnx"
			default:
				return fmt.Errorf("could not determine the DATA TYPE of %s", fn)
			}
		case 8:
			f.Compression = v
		}
	}

	return nil
}

// CorrectedFilename returns the daily RINEX2 filename a file should carry
// once its first epoch is firstEpoch, e.g. "sstr1210.19o".
// An uppercase input name gives an uppercase result.
func CorrectedFilename(path, station string, firstEpoch time.Time) (string, error) {
	fil, err := NewFile(path)
	if err != nil {
		return "", err
	}
	if err := fil.SetStationName(station); err != nil {
		return "", err
	}
	if fil.DataType == "" {
		fil.DataType = "MO"
		fil.Format = "rnx"
	}
	fil.StartTime = firstEpoch.UTC()
	fil.FilePeriod = "01D"

	name, err := fil.Rnx2Filename()
	if err != nil {
		return "", err
	}

	base := filepath.Base(path)
	if base == strings.ToUpper(base) {
		name = strings.ToUpper(name)
	}
	return name, nil
}

// IsHatanakaCompressed returns true if the file given by filename is Hatanaka compressed.
// This is checked by the filenames' extension.
func IsHatanakaCompressed(filename string) bool {
	fn := strings.ToLower(filename)
	if IsCompressed(fn) {
		fn = strings.TrimSuffix(fn, filepath.Ext(fn))
	}
	ext := filepath.Ext(fn)
	if ext == ".crx" || (len(ext) == 4 && strings.HasSuffix(ext, "d")) { // .21d
		return true
	}
	return false
}

// ParseDoy returns the UTC-Time corresponding to the given year and day of year.
// Two-digit years 80-99 are 19xx, 00-79 are 20xx.
func ParseDoy(year, doy int) time.Time {
	if year < 100 {
		year = fullYear(year)
	}
	return time.Date(year, 1, doy, 0, 0, 0, 0, time.UTC)
}

func getHourAsChar(hr int) string {
	return string(rune(hr + 97))
}

func getHourAsDigit(char rune) (int, error) {
	hr := int(char) - int('a')
	if hr < 0 || hr > 23 {
		return 0, fmt.Errorf("could not get hour for %c", char)
	}
	return hr, nil
}
