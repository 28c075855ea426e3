// Package gnss contains common constants, type definitions and GPS time arithmetic.
package gnss

import (
	"encoding/json"
	"fmt"
	"strings"
)

// System is a satellite system.
type System int

// Available satellite systems.
const (
	SysGPS System = iota + 1
	SysGLO
	SysGAL
	SysQZSS
	SysBDS
	SysIRNSS
	SysSBAS
	SysMIXED
)

var sysPerAbbr = map[string]System{
	"G": SysGPS,
	"R": SysGLO,
	"E": SysGAL,
	"J": SysQZSS,
	"C": SysBDS,
	"I": SysIRNSS,
	"S": SysSBAS,
	"M": SysMIXED,
}

// ParseSystem returns the system for its RINEX abbreviation, e.g. "G" for GPS.
// A blank abbreviation means GPS, as in RINEX-2 headers.
func ParseSystem(abbr string) (System, error) {
	abbr = strings.TrimSpace(abbr)
	if abbr == "" {
		return SysGPS, nil
	}
	sys, ok := sysPerAbbr[strings.ToUpper(abbr[:1])]
	if !ok {
		return 0, fmt.Errorf("invalid satellite system: %q", abbr)
	}
	return sys, nil
}

func (sys System) String() string {
	if sys < SysGPS || sys > SysMIXED {
		return ""
	}
	return [...]string{"", "GPS", "GLO", "GAL", "QZSS", "BDS", "IRNSS", "SBAS", "MIXED"}[sys]
}

// Abbr returns the systems' abbreviation used in RINEX.
func (sys System) Abbr() string {
	if sys < SysGPS || sys > SysMIXED {
		return ""
	}
	return [...]string{"", "G", "R", "E", "J", "C", "I", "S", "M"}[sys]
}

// MarshalJSON encodes the system by its RINEX abbreviation.
func (sys System) MarshalJSON() ([]byte, error) {
	return json.Marshal(sys.Abbr())
}

// Systems specifies a list of satellite systems.
type Systems []System

// String returns the contained systems in sitelog manner GPS+GLO+...
func (syss Systems) String() string {
	str := make([]string, 0, len(syss))
	for _, sys := range syss {
		str = append(str, sys.String())
	}
	return strings.Join(str, "+")
}
