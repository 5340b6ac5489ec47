// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// sourceFormat identifies which of the accepted document forms a stream
// carries.
type sourceFormat string

const (
	// formatAndroid is the nested Android export: one object with a
	// semanticSegments array of path/visit/activity segments.
	formatAndroid sourceFormat = "android"
	// formatIPhone is the iPhone export: a top-level array of segments
	// with geo-URI coordinate strings.
	formatIPhone sourceFormat = "iphone"
	// formatTrackLines is the newline-delimited form emitted by track
	// recorders: one small JSON object per line.
	formatTrackLines sourceFormat = "track_lines"
)

// detectWindow bounds how far into the stream format detection looks. Real
// Android exports open with the semanticSegments key within the first few
// hundred bytes; 64 KiB leaves room for pretty-printing and exotic key
// ordering without holding more than one buffer.
const detectWindow = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EmitFunc receives each raw entry as soon as its enclosing object closes.
// Returning an error stops the parse pass; the parser propagates it
// unchanged, so a canceled pipeline surfaces its own cause.
type EmitFunc func(RawEntry) error

// StreamingParser turns a source byte stream into a forward-only sequence of
// raw entries without materializing the document.
//
// One segment is decoded at a time and flattened into per-point entries
// immediately, so peak memory is bounded by the largest single segment, not
// by input size. A parser pass is single-shot: the reader is consumed and
// the pass cannot be restarted.
//
// Structural failures return *ParseError with the byte offset; a stream that
// ends mid-document returns ErrIncompleteInput. Both mean the upload must be
// aborted with nothing kept.
type StreamingParser struct{}

// NewStreamingParser returns a parser. The parser carries no state between
// passes and is safe for concurrent use by independent uploads.
func NewStreamingParser() *StreamingParser {
	return &StreamingParser{}
}

// Parse detects the source form from the leading bytes and drives one full
// pass over the stream, calling emit for every entry.
func (p *StreamingParser) Parse(ctx context.Context, r io.Reader, emit EmitFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	br := bufio.NewReaderSize(r, detectWindow)
	window, err := br.Peek(detectWindow)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read source stream: %w", err)
	}

	format, offset, err := detectFormat(window)
	if err != nil {
		return err
	}

	// The decoder reads from br, so the byte order mark seen during
	// detection has to actually be consumed.
	if bytes.HasPrefix(window, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return fmt.Errorf("read source stream: %w", err)
		}
	}

	switch format {
	case formatIPhone:
		return p.parseIPhone(ctx, br, emit)
	case formatTrackLines:
		return p.parseTrackLines(ctx, br, emit)
	default:
		return p.parseAndroid(ctx, br, offset, emit)
	}
}

// detectFormat classifies the stream from its leading window.
//
// A leading '[' is the iPhone array form. A leading '{' is either the
// Android nested form or the first of many newline-delimited track objects;
// the two are told apart by the semanticSegments key and by whether the
// first line already closes a complete JSON object.
func detectFormat(window []byte) (sourceFormat, int64, error) {
	i := 0
	if bytes.HasPrefix(window, utf8BOM) {
		i = len(utf8BOM)
	}
	for i < len(window) && isJSONSpace(window[i]) {
		i++
	}
	if i >= len(window) {
		return "", int64(i), &ParseError{Offset: int64(i), Msg: "no document found"}
	}

	offset := int64(i)
	switch window[i] {
	case '[':
		return formatIPhone, offset, nil
	case '{':
		if bytes.Contains(window[i:], []byte(`"semanticSegments"`)) {
			return formatAndroid, offset, nil
		}
		if line, complete := firstLine(window[i:]); complete && json.Valid(line) {
			return formatTrackLines, offset, nil
		}
		return formatAndroid, offset, nil
	default:
		return "", offset, &ParseError{
			Offset: offset,
			Msg:    fmt.Sprintf("unrecognized document start %q", window[i]),
		}
	}
}

// firstLine cuts the first newline-terminated line out of the window.
// complete is false when the window holds no newline, in which case the
// stream cannot be line-delimited short objects.
func firstLine(window []byte) ([]byte, bool) {
	nl := bytes.IndexByte(window, '\n')
	if nl < 0 {
		return nil, false
	}
	line := bytes.TrimRight(window[:nl], "\r \t")
	return line, len(line) > 0
}

func isJSONSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Source-shape structs. These mirror the export formats field for field and
// exist only inside one segment's Decode call.

type androidSegment struct {
	StartTime    string             `json:"startTime"`
	EndTime      string             `json:"endTime"`
	TimelinePath []androidPathPoint `json:"timelinePath"`
	Visit        *androidVisit      `json:"visit"`
	Activity     *androidActivity   `json:"activity"`
}

type androidPathPoint struct {
	Point string `json:"point"`
	Time  string `json:"time"`
}

type androidVisit struct {
	Probability  flexFloat       `json:"probability"`
	TopCandidate androidVisitTop `json:"topCandidate"`
}

type androidVisitTop struct {
	PlaceID       string        `json:"placeId"`
	SemanticType  string        `json:"semanticType"`
	PlaceLocation androidLatLng `json:"placeLocation"`
}

type androidLatLng struct {
	LatLng string `json:"latLng"`
}

type androidActivity struct {
	Start          *androidLatLng     `json:"start"`
	End            *androidLatLng     `json:"end"`
	DistanceMeters flexFloat          `json:"distanceMeters"`
	TopCandidate   androidActivityTop `json:"topCandidate"`
}

type androidActivityTop struct {
	Type        string    `json:"type"`
	Probability flexFloat `json:"probability"`
}

type iphoneSegment struct {
	StartTime string          `json:"startTime"`
	EndTime   string          `json:"endTime"`
	Visit     *iphoneVisit    `json:"visit"`
	Activity  *iphoneActivity `json:"activity"`
}

type iphoneVisit struct {
	Probability  flexFloat      `json:"probability"`
	TopCandidate iphoneVisitTop `json:"topCandidate"`
}

type iphoneVisitTop struct {
	// The iPhone export capitalizes ID and writes the place location as a
	// "geo:lat,lng" string rather than a nested object.
	PlaceID       string `json:"placeID"`
	SemanticType  string `json:"semanticType"`
	PlaceLocation string `json:"placeLocation"`
}

type iphoneActivity struct {
	Start          string            `json:"start"`
	End            string            `json:"end"`
	DistanceMeters flexFloat         `json:"distanceMeters"`
	TopCandidate   iphoneActivityTop `json:"topCandidate"`
}

type iphoneActivityTop struct {
	Type        string    `json:"type"`
	Probability flexFloat `json:"probability"`
}

type trackLine struct {
	Time      string    `json:"time"`
	Lat       flexFloat `json:"lat"`
	Lon       flexFloat `json:"lon"`
	Elevation flexFloat `json:"elevation"`
	Speed     flexFloat `json:"speed"`
	Source    string    `json:"source"`
	Name      string    `json:"name"`
	Sequence  flexInt   `json:"sequence"`
}

// parseAndroid walks the top-level object token by token, decoding one
// semanticSegments element at a time and skipping every other member.
func (p *StreamingParser) parseAndroid(ctx context.Context, r io.Reader, start int64, emit EmitFunc) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return wrapDecodeError(err, dec)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return &ParseError{Offset: start, Msg: "expected a top-level object"}
	}

	sawSegments := false
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return wrapDecodeError(err, dec)
		}
		key, ok := keyTok.(string)
		if !ok {
			return &ParseError{Offset: dec.InputOffset(), Msg: "expected an object key"}
		}

		if key != "semanticSegments" {
			if err := skipValue(dec); err != nil {
				return wrapDecodeError(err, dec)
			}
			continue
		}

		sawSegments = true
		tok, err := dec.Token()
		if err != nil {
			return wrapDecodeError(err, dec)
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return &ParseError{Offset: dec.InputOffset(), Msg: "semanticSegments must be an array"}
		}

		for dec.More() {
			if err := ctx.Err(); err != nil {
				return err
			}
			off := dec.InputOffset()
			var seg androidSegment
			if err := dec.Decode(&seg); err != nil {
				return wrapDecodeError(err, dec)
			}
			if err := emitAndroidSegment(&seg, off, emit); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return wrapDecodeError(err, dec)
		}
	}
	if _, err := dec.Token(); err != nil {
		return wrapDecodeError(err, dec)
	}

	if !sawSegments {
		return &ParseError{Offset: start, Msg: `document has no "semanticSegments" member`}
	}
	return nil
}

// parseIPhone streams the top-level array one segment at a time.
func (p *StreamingParser) parseIPhone(ctx context.Context, r io.Reader, emit EmitFunc) error {
	dec := json.NewDecoder(r)

	if _, err := dec.Token(); err != nil {
		return wrapDecodeError(err, dec)
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		off := dec.InputOffset()
		var seg iphoneSegment
		if err := dec.Decode(&seg); err != nil {
			return wrapDecodeError(err, dec)
		}
		if err := emitIPhoneSegment(&seg, off, emit); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return wrapDecodeError(err, dec)
	}
	return nil
}

// parseTrackLines decodes a stream of small standalone objects. The decoder
// treats newlines as ordinary whitespace, so concatenated objects work the
// same as strict one-per-line input.
func (p *StreamingParser) parseTrackLines(ctx context.Context, r io.Reader, emit EmitFunc) error {
	dec := json.NewDecoder(r)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		off := dec.InputOffset()
		var line trackLine
		err := dec.Decode(&line)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return wrapDecodeError(err, dec)
		}

		// A wrong detection guess lands here with objects that carry
		// none of the track fields. Fail loudly instead of ingesting
		// empty records.
		if line.Time == "" && line.Lat.value == nil && line.Lon.value == nil {
			return &ParseError{Offset: off, Msg: "object is not a track point line"}
		}

		entry := RawEntry{
			Kind:      KindTrackPoint,
			Time:      line.Time,
			Latitude:  line.Lat.value,
			Longitude: line.Lon.value,
			Elevation: line.Elevation.value,
			Speed:     line.Speed.value,
			Source:    line.Source,
			TrackName: line.Name,
			Sequence:  line.Sequence.value,
			Offset:    off,
		}
		if err := emit(entry); err != nil {
			return err
		}
	}
}

// emitAndroidSegment flattens one Android segment into per-point entries.
// An activity segment yields one entry per endpoint that carries a location,
// tagged start or end.
func emitAndroidSegment(seg *androidSegment, off int64, emit EmitFunc) error {
	for _, pt := range seg.TimelinePath {
		entry := RawEntry{
			Kind:         KindPathPoint,
			SegmentStart: seg.StartTime,
			SegmentEnd:   seg.EndTime,
			Time:         pt.Time,
			Location:     pt.Point,
			Offset:       off,
		}
		if err := emit(entry); err != nil {
			return err
		}
	}

	if v := seg.Visit; v != nil {
		entry := RawEntry{
			Kind:         KindVisit,
			SegmentStart: seg.StartTime,
			SegmentEnd:   seg.EndTime,
			Location:     v.TopCandidate.PlaceLocation.LatLng,
			PlaceID:      v.TopCandidate.PlaceID,
			SemanticType: v.TopCandidate.SemanticType,
			Probability:  v.Probability.value,
			Offset:       off,
		}
		if err := emit(entry); err != nil {
			return err
		}
	}

	if a := seg.Activity; a != nil {
		legs := []struct {
			name  string
			point *androidLatLng
		}{
			{legStart, a.Start},
			{legEnd, a.End},
		}
		for _, leg := range legs {
			if leg.point == nil {
				continue
			}
			entry := RawEntry{
				Kind:           KindActivityLeg,
				SegmentStart:   seg.StartTime,
				SegmentEnd:     seg.EndTime,
				Location:       leg.point.LatLng,
				Activity:       a.TopCandidate.Type,
				Leg:            leg.name,
				DistanceMeters: a.DistanceMeters.value,
				Probability:    a.TopCandidate.Probability.value,
				Offset:         off,
			}
			if err := emit(entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitIPhoneSegment flattens one iPhone segment. The iPhone form has no
// timelinePath; movement shows up only as visit and activity entries.
func emitIPhoneSegment(seg *iphoneSegment, off int64, emit EmitFunc) error {
	if v := seg.Visit; v != nil {
		entry := RawEntry{
			Kind:         KindVisit,
			SegmentStart: seg.StartTime,
			SegmentEnd:   seg.EndTime,
			Location:     v.TopCandidate.PlaceLocation,
			PlaceID:      v.TopCandidate.PlaceID,
			SemanticType: v.TopCandidate.SemanticType,
			Probability:  v.Probability.value,
			Offset:       off,
		}
		if err := emit(entry); err != nil {
			return err
		}
	}

	if a := seg.Activity; a != nil {
		legs := []struct {
			name     string
			location string
		}{
			{legStart, a.Start},
			{legEnd, a.End},
		}
		for _, leg := range legs {
			if leg.location == "" {
				continue
			}
			entry := RawEntry{
				Kind:           KindActivityLeg,
				SegmentStart:   seg.StartTime,
				SegmentEnd:     seg.EndTime,
				Location:       leg.location,
				Activity:       a.TopCandidate.Type,
				Leg:            leg.name,
				DistanceMeters: a.DistanceMeters.value,
				Probability:    a.TopCandidate.Probability.value,
				Offset:         off,
			}
			if err := emit(entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// skipValue consumes one complete JSON value, tracking nesting depth so
// unknown top-level members of any size pass by without being held.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '[' && d != '{') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}

// wrapDecodeError maps a decoder failure into the parse taxonomy: truncated
// input becomes ErrIncompleteInput, everything else a *ParseError carrying
// the byte offset.
func wrapDecodeError(err error, dec *json.Decoder) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrIncompleteInput
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ParseError{Offset: syntaxErr.Offset, Msg: syntaxErr.Error()}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ParseError{
			Offset: typeErr.Offset,
			Msg:    fmt.Sprintf("unexpected %s for %s", typeErr.Value, typeErr.Field),
		}
	}
	return &ParseError{Offset: dec.InputOffset(), Msg: err.Error()}
}
