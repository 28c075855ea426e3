package gfzrnx

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/de-bkg/rnxfix/pkg/rinex"
	"github.com/juju/errors"
)

// Metadata is the output of "gfzrnx -meta basic:json".
type Metadata struct {
	File FileInfo `json:"file"`

	// All top-level sections as returned by gfzrnx.
	Raw map[string]json.RawMessage `json:"-"`
}

// FileInfo is the "file" section of the metadata.
type FileInfo struct {
	Name    string `json:"name"`
	Format  string `json:"format"`
	Version Value  `json:"version"`

	// Epochs in RINEX notation, e.g. "1999 09 15 10 30  0.0000000".
	EpoFirst     string `json:"epo_first"`
	EpoLast      string `json:"epo_last"`
	EpoFirstName string `json:"epo_first_name"` // first epoch according to the filename
	EpoLastName  string `json:"epo_last_name"`

	// Fields not listed above.
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the unknown fields in Extra.
func (fi *FileInfo) UnmarshalJSON(data []byte) error {
	type plain FileInfo
	if err := json.Unmarshal(data, (*plain)(fi)); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range []string{"name", "format", "version", "epo_first", "epo_last", "epo_first_name", "epo_last_name"} {
		delete(all, k)
	}
	if len(all) > 0 {
		fi.Extra = all
	}
	return nil
}

// FirstEpoch returns the first observation epoch.
func (fi FileInfo) FirstEpoch() (time.Time, error) {
	return parseEpoch("epo_first", fi.EpoFirst)
}

// LastEpoch returns the last observation epoch.
func (fi FileInfo) LastEpoch() (time.Time, error) {
	return parseEpoch("epo_last", fi.EpoLast)
}

// FirstEpochFromName returns the first epoch given by the filename.
// ok is false if the filename does not carry a date.
func (fi FileInfo) FirstEpochFromName() (t time.Time, ok bool) {
	t, err := parseEpoch("epo_first_name", fi.EpoFirstName)
	return t, err == nil
}

func parseEpoch(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, errors.NotFoundf("metadata field %q", field)
	}
	t, err := rinex.ParseEpoch(s)
	if err != nil {
		return time.Time{}, errors.NewNotValid(err, "metadata field "+field)
	}
	return t, nil
}

// Value is a JSON value that can be given as string or number.
type Value string

// UnmarshalJSON accepts strings, numbers and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	*v = Value(data)
	return nil
}

// DecodeMetadata decodes the JSON metadata written by gfzrnx.
func DecodeMetadata(data []byte) (*Metadata, error) {
	meta := &Metadata{}
	if err := json.Unmarshal(data, &meta.Raw); err != nil {
		return nil, errors.NewNotValid(err, "metadata")
	}
	file, ok := meta.Raw["file"]
	if !ok {
		return nil, errors.NotValidf("metadata without file section")
	}
	if err := json.Unmarshal(file, &meta.File); err != nil {
		return nil, errors.NewNotValid(err, "metadata file section")
	}
	if strings.TrimSpace(meta.File.EpoFirst) == "" {
		return nil, errors.NotValidf("metadata without epo_first")
	}
	return meta, nil
}
