// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/models"
)

// OutcomeStatus classifies what validation did with one entry.
type OutcomeStatus string

const (
	// OutcomeAccepted means the record is clean and will be loaded.
	OutcomeAccepted OutcomeStatus = "accepted"
	// OutcomeWarned means the record is kept but degraded, typically with
	// null coordinates or a dropped timestamp.
	OutcomeWarned OutcomeStatus = "warned"
	// OutcomeRejected means the entry is dropped and never reaches the
	// store.
	OutcomeRejected OutcomeStatus = "rejected"
)

// Outcome is the result of validating one raw entry. Record is nil exactly
// when Status is OutcomeRejected. Reason is empty for accepted records.
type Outcome struct {
	Status OutcomeStatus
	Record *models.Record
	Reason string
}

// maxDistanceMeters caps plausible activity distances. One segment longer
// than 1000 km is corrupt source data, not a trip.
const maxDistanceMeters = 1_000_000.0

// RecordValidator turns raw entries into canonical records, stamping every
// record with the upload's owner key and upload id.
//
// The rules, in check order: coordinates must parse and sit inside WGS84
// range, the time window must not be inverted, the owner key must be
// non-empty, and probability and distance values must be inside their
// plausible ranges. Missing coordinates and unparseable timestamps degrade
// the record (Warned, kept); everything else listed rejects it.
//
// Not safe for concurrent use; each upload builds its own validator.
type RecordValidator struct {
	owner    string
	uploadID uuid.UUID
	loc      *time.Location

	accepted int64
	warned   int64
	rejected int64
}

// NewRecordValidator builds a validator for one upload. loc resolves
// timestamps written without a zone; nil falls back to UTC.
func NewRecordValidator(owner string, uploadID uuid.UUID, loc *time.Location) *RecordValidator {
	if loc == nil {
		loc = time.UTC
	}
	return &RecordValidator{owner: owner, uploadID: uploadID, loc: loc}
}

// Counts returns how many entries were accepted, warned, and rejected so
// far.
func (v *RecordValidator) Counts() (accepted, warned, rejected int64) {
	return v.accepted, v.warned, v.rejected
}

// Validate maps one raw entry to exactly one outcome.
func (v *RecordValidator) Validate(entry RawEntry) Outcome {
	var reasons []string

	rec := &models.Record{OwnerKey: v.owner}
	if v.uploadID != uuid.Nil {
		id := v.uploadID
		rec.UploadID = &id
	}

	lat, lng, reason := v.resolveCoordinates(entry)
	if reason != "" {
		return v.reject(reason)
	}
	if lat != nil {
		rec.Latitude, rec.Longitude = lat, lng
	} else {
		reasons = append(reasons, "missing coordinates")
	}

	switch entry.Kind {
	case KindPathPoint:
		rec.Type = models.RecordTypePath
		rec.PointTime = v.timeField(entry.Time, &reasons)

	case KindVisit:
		rec.Type = models.RecordTypeVisit
		rec.StartTime = v.timeField(entry.SegmentStart, &reasons)
		rec.EndTime = v.timeField(entry.SegmentEnd, &reasons)
		rec.VisitPlaceID = optionalString(entry.PlaceID)
		rec.VisitSemanticType = optionalString(entry.SemanticType)
		rec.VisitProbability = entry.Probability

	case KindActivityLeg:
		rec.Type = models.RecordTypeActivity
		rec.StartTime = v.timeField(entry.SegmentStart, &reasons)
		rec.EndTime = v.timeField(entry.SegmentEnd, &reasons)
		rec.PointTime = legPointTime(entry.Leg, rec.StartTime, rec.EndTime)
		rec.ActivityType = optionalString(entry.Activity)
		rec.ActivityDistanceMeters = entry.DistanceMeters
		rec.ActivityProbability = entry.Probability

	case KindTrackPoint:
		rec.Type = models.RecordTypeTrackPoint
		rec.PointTime = v.timeField(entry.Time, &reasons)
		rec.Elevation = entry.Elevation
		rec.Speed = entry.Speed
		rec.Source = optionalString(entry.Source)
		rec.TrackName = optionalString(entry.TrackName)
		rec.Sequence = entry.Sequence

	default:
		return v.reject(fmt.Sprintf("unknown entry kind %q", entry.Kind))
	}

	if rec.StartTime != nil && rec.EndTime != nil && rec.StartTime.After(*rec.EndTime) {
		return v.reject("start time after end time")
	}
	if v.owner == "" {
		return v.reject("missing owner key")
	}
	if !inUnitInterval(rec.VisitProbability) || !inUnitInterval(rec.ActivityProbability) {
		return v.reject("probability out of range")
	}
	if d := rec.ActivityDistanceMeters; d != nil && !(*d >= 0 && *d <= maxDistanceMeters) {
		return v.reject("distance out of range")
	}

	if len(reasons) > 0 {
		v.warned++
		return Outcome{Status: OutcomeWarned, Record: rec, Reason: strings.Join(reasons, "; ")}
	}
	v.accepted++
	return Outcome{Status: OutcomeAccepted, Record: rec}
}

func (v *RecordValidator) reject(reason string) Outcome {
	v.rejected++
	return Outcome{Status: OutcomeRejected, Reason: reason}
}

// resolveCoordinates produces the entry's coordinate pair. Track points
// carry numeric fields; every other shape carries a location string. A
// non-empty reason means the entry must be rejected; (nil, nil, "") means
// coordinates are legitimately absent.
func (v *RecordValidator) resolveCoordinates(entry RawEntry) (lat, lng *float64, reason string) {
	if entry.Kind == KindTrackPoint {
		lat, lng = entry.Latitude, entry.Longitude
		if (lat == nil) != (lng == nil) {
			return nil, nil, "incomplete coordinate pair"
		}
	} else {
		var err error
		lat, lng, err = parseCoordinatePair(entry.Location)
		if err != nil {
			return nil, nil, "invalid coordinates: " + err.Error()
		}
	}

	if lat == nil {
		return nil, nil, ""
	}
	// Positive-form comparison so NaN fails the check too.
	if !(*lat >= -90 && *lat <= 90 && *lng >= -180 && *lng <= 180) {
		return nil, nil, "coordinate out of range"
	}
	return lat, lng, ""
}

// timeField parses one raw timestamp string. Empty means absent. A present
// but unparseable value records a warning and yields nil rather than
// dropping the whole record.
func (v *RecordValidator) timeField(raw string, reasons *[]string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, ok := v.parseTimestamp(raw)
	if !ok {
		*reasons = append(*reasons, fmt.Sprintf("unparseable timestamp %q", clip(raw, 40)))
		return nil
	}
	return t
}

// naiveLayouts are timestamp forms some exporters write without a zone.
// They resolve in the validator's configured location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (v *RecordValidator) parseTimestamp(raw string) (*time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		utc := t.UTC()
		return &utc, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, v.loc); err == nil {
			utc := t.UTC()
			return &utc, true
		}
	}
	return nil, false
}

// legPointTime picks the timestamp that disambiguates an activity endpoint:
// the segment start for the start leg, the segment end for the end leg.
func legPointTime(leg string, start, end *time.Time) *time.Time {
	src := start
	if leg == legEnd {
		src = end
	}
	if src == nil {
		return nil
	}
	t := *src
	return &t
}

// parseCoordinatePair reads the coordinate string forms the exports use:
// "35.6812°, 139.7671°", "geo:35.6812,139.7671", and the spelled-out
// "GeoCoordinates: 35.6812, 139.7671" variant. Empty input means the
// coordinates are absent, not invalid. Components beyond the first two
// (geo-URI altitude) are ignored.
func parseCoordinatePair(s string) (lat, lng *float64, err error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil, nil
	}

	lower := strings.ToLower(trimmed)
	for _, prefix := range []string{"geocoordinates:", "geo:"} {
		if strings.HasPrefix(lower, prefix) {
			trimmed = strings.TrimSpace(trimmed[len(prefix):])
			break
		}
	}
	trimmed = strings.ReplaceAll(trimmed, "°", "")

	parts := strings.Split(trimmed, ",")
	if len(parts) < 2 {
		return nil, nil, fmt.Errorf("coordinate pair %q has one component", clip(s, 40))
	}

	latV, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, nil, fmt.Errorf("latitude %q is not a number", clip(strings.TrimSpace(parts[0]), 40))
	}
	lngV, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, nil, fmt.Errorf("longitude %q is not a number", clip(strings.TrimSpace(parts[1]), 40))
	}
	return &latV, &lngV, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func inUnitInterval(p *float64) bool {
	return p == nil || (*p >= 0 && *p <= 1)
}

// clip bounds user-supplied text embedded in error reasons.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
