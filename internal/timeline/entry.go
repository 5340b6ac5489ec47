// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// EntryKind tags a RawEntry with the source shape it was cut from.
type EntryKind string

// The four raw entry kinds. Every source format flattens into these; the
// validator dispatches on the tag and nothing else ever inspects source
// structure.
const (
	KindPathPoint   EntryKind = "path_point"
	KindVisit       EntryKind = "visit"
	KindActivityLeg EntryKind = "activity_leg"
	KindTrackPoint  EntryKind = "track_point"
)

// RawEntry is one loosely-typed entry cut out of a source document by the
// streaming parser. It is a closed tagged variant: Kind selects which field
// group is meaningful, and unrelated groups stay zero. Entries live only for
// the hop between parser and validator.
//
// Timestamps and coordinates are carried in their source string form;
// interpreting them (timezone defaulting, degree-sign stripping, range
// checks) is the validator's job, so a parse pass never fails on bad values,
// only on bad structure.
type RawEntry struct {
	Kind EntryKind

	// Segment time window as found in the source (visits, activity legs,
	// and path points all inherit their segment's window).
	SegmentStart string
	SegmentEnd   string

	// Instant timestamp: a path point's own time, or a track point's time.
	Time string

	// Coordinate string for path/visit/activity entries. Either the
	// Android "lat°, lng°" form or the iPhone "geo:lat,lng" form.
	Location string

	// Visit fields.
	PlaceID      string
	SemanticType string

	// Activity fields. Leg is "start" or "end"; every activity segment in
	// the source yields one entry per endpoint that carries a location.
	Activity       string
	Leg            string
	DistanceMeters *float64

	// Shared by visits and activity legs.
	Probability *float64

	// Track point fields, already numeric in the line-delimited source.
	Latitude  *float64
	Longitude *float64
	Elevation *float64
	Speed     *float64
	Source    string
	TrackName string
	Sequence  *int64

	// Byte offset of the enclosing structure in the source stream, for
	// parse diagnostics.
	Offset int64
}

// Activity leg names used in RawEntry.Leg.
const (
	legStart = "start"
	legEnd   = "end"
)

// flexFloat decodes a JSON number that real exports sometimes quote:
// Android writes distanceMeters as a number, iPhone as a string. Null,
// empty string, and absence all decode to nil.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		f.value = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			f.value = nil
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("numeric string %q: %w", s, err)
		}
		f.value = &v
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.value = &v
	return nil
}

// flexInt is flexFloat's integer counterpart, used for track point sequence
// numbers.
type flexInt struct {
	value *int64
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var ff flexFloat
	if err := ff.UnmarshalJSON(data); err != nil {
		return err
	}
	if ff.value == nil {
		f.value = nil
		return nil
	}
	v := int64(*ff.value)
	f.value = &v
	return nil
}
