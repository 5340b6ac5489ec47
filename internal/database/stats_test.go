// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package database

import (
	"context"
	"testing"
	"time"
)

func TestGetStatsEmptyStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	stats, err := db.GetStats(context.Background())
	checkNoError(t, err)

	checkInt64Equal(t, "total", stats.TotalRecords, 0)
	checkInt64Equal(t, "valid", stats.ValidCoordinates, 0)
	checkInt64Equal(t, "invalid", stats.InvalidCoordinates, 0)
	if stats.UserStats == nil || stats.TypeStats == nil {
		t.Fatal("expected initialized stat maps")
	}
	checkIntEqual(t, "owners", len(stats.UserStats), 0)
	checkIntEqual(t, "types", len(stats.TypeStats), 0)
	if stats.DateRange.Earliest != nil || stats.DateRange.Latest != nil {
		t.Error("expected a null date range for an empty store")
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	insertTestRecords(t, db,
		pathRecord("alice", 52.52, 13.405, testBase),
		pathRecord("alice", 52.53, 13.406, testBase.Add(time.Hour)),
		coordlessRecord("alice", testBase.Add(2*time.Hour)),
		visitRecord("bob", 48.85, 2.35, testBase.Add(-time.Hour), testBase, "home"),
		visitRecord("bob", 48.86, 2.36, testBase.Add(3*time.Hour), testBase.Add(4*time.Hour), "work"),
	)

	stats, err := db.GetStats(context.Background())
	checkNoError(t, err)

	checkInt64Equal(t, "total", stats.TotalRecords, 5)
	checkInt64Equal(t, "valid", stats.ValidCoordinates, 4)
	checkInt64Equal(t, "invalid", stats.InvalidCoordinates, 1)

	alice := stats.UserStats["alice"]
	checkInt64Equal(t, "alice total", alice.TotalRecords, 3)
	checkInt64Equal(t, "alice valid", alice.ValidCoordinates, 2)

	bob := stats.UserStats["bob"]
	checkInt64Equal(t, "bob total", bob.TotalRecords, 2)
	checkInt64Equal(t, "bob valid", bob.ValidCoordinates, 2)

	checkInt64Equal(t, "path count", stats.TypeStats["path"], 3)
	checkInt64Equal(t, "visit count", stats.TypeStats["visit"], 2)

	if stats.DateRange.Earliest == nil || stats.DateRange.Latest == nil {
		t.Fatal("expected a populated date range")
	}
	checkTimeEqual(t, "earliest", *stats.DateRange.Earliest, testBase.Add(-time.Hour))
	checkTimeEqual(t, "latest", *stats.DateRange.Latest, testBase.Add(3*time.Hour))
}

func TestListOwnersEmpty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	owners, err := db.ListOwners(context.Background())
	checkNoError(t, err)
	if owners == nil {
		t.Fatal("expected an empty slice, got nil")
	}
	checkIntEqual(t, "owners", len(owners), 0)
}

func TestListOwnersOrdering(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	insertTestRecords(t, db,
		pathRecord("carol", 52.52, 13.405, testBase),
		pathRecord("carol", 52.53, 13.406, testBase.Add(time.Minute)),
		pathRecord("carol", 52.54, 13.407, testBase.Add(2*time.Minute)),
		pathRecord("alice", 48.85, 2.35, testBase),
		pathRecord("alice", 0, 0, testBase.Add(time.Minute)),
		pathRecord("bob", 35.68, 139.65, testBase.Add(3*time.Minute)),
	)

	owners, err := db.ListOwners(context.Background())
	checkNoError(t, err)
	checkIntEqual(t, "owners", len(owners), 3)

	checkStringEqual(t, "first owner", owners[0].OwnerKey, "carol")
	checkInt64Equal(t, "carol total", owners[0].TotalRecords, 3)
	checkInt64Equal(t, "carol valid", owners[0].ValidCoordinates, 3)

	checkStringEqual(t, "second owner", owners[1].OwnerKey, "alice")
	checkInt64Equal(t, "alice total", owners[1].TotalRecords, 2)
	checkInt64Equal(t, "alice valid", owners[1].ValidCoordinates, 1)

	checkStringEqual(t, "third owner", owners[2].OwnerKey, "bob")

	if owners[0].LatestRecord == nil {
		t.Fatal("expected a latest record timestamp")
	}
	checkTimeEqual(t, "carol latest", *owners[0].LatestRecord, testBase.Add(2*time.Minute))
}

func TestGetOwnerSummary(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	insertTestRecords(t, db,
		visitRecord("alice", 52.52, 13.405, testBase, testBase.Add(time.Hour), "home"),
		visitRecord("alice", 52.52, 13.405, testBase.Add(2*time.Hour), testBase.Add(3*time.Hour), "home"),
		visitRecord("alice", 52.53, 13.406, testBase.Add(4*time.Hour), testBase.Add(5*time.Hour), "work"),
		activityRecord("alice", 52.54, 13.407, testBase.Add(6*time.Hour), "walking"),
		activityRecord("alice", 52.55, 13.408, testBase.Add(7*time.Hour), "walking"),
		activityRecord("alice", 52.56, 13.409, testBase.Add(8*time.Hour), "cycling"),
		pathRecord("alice", 52.57, 13.410, testBase.Add(9*time.Hour)),
		// Another owner's records must not leak into the summary.
		visitRecord("bob", 48.85, 2.35, testBase, testBase.Add(time.Hour), "cafe"),
	)

	summary, err := db.GetOwnerSummary(context.Background(), "alice")
	checkNoError(t, err)

	checkStringEqual(t, "owner", summary.OwnerKey, "alice")
	checkInt64Equal(t, "total", summary.TotalRecords, 7)
	checkInt64Equal(t, "visits", summary.TypeCounts["visit"], 3)
	checkInt64Equal(t, "activities", summary.TypeCounts["activity"], 3)
	checkInt64Equal(t, "paths", summary.TypeCounts["path"], 1)

	if len(summary.TopSemanticTypes) != 2 {
		t.Fatalf("expected 2 semantic labels, got %d", len(summary.TopSemanticTypes))
	}
	checkStringEqual(t, "top semantic", summary.TopSemanticTypes[0].Label, "home")
	checkInt64Equal(t, "top semantic count", summary.TopSemanticTypes[0].Count, 2)
	checkStringEqual(t, "second semantic", summary.TopSemanticTypes[1].Label, "work")

	if len(summary.TopActivityTypes) != 2 {
		t.Fatalf("expected 2 activity kinds, got %d", len(summary.TopActivityTypes))
	}
	checkStringEqual(t, "top activity", summary.TopActivityTypes[0].Label, "walking")
	checkInt64Equal(t, "top activity count", summary.TopActivityTypes[0].Count, 2)

	if summary.DateRange.Earliest == nil || summary.DateRange.Latest == nil {
		t.Fatal("expected a populated date range")
	}
	checkTimeEqual(t, "earliest", *summary.DateRange.Earliest, testBase)
	checkTimeEqual(t, "latest", *summary.DateRange.Latest, testBase.Add(9*time.Hour))
}

func TestGetOwnerSummaryRequiresOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetOwnerSummary(context.Background(), "")
	checkError(t, err)
}

func TestGetOwnerSummaryUnknownOwner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	insertTestRecords(t, db, pathRecord("alice", 52.52, 13.405, testBase))

	summary, err := db.GetOwnerSummary(context.Background(), "nobody")
	checkNoError(t, err)
	checkInt64Equal(t, "total", summary.TotalRecords, 0)
	checkIntEqual(t, "type counts", len(summary.TypeCounts), 0)
	checkIntEqual(t, "semantic labels", len(summary.TopSemanticTypes), 0)
	checkIntEqual(t, "activity kinds", len(summary.TopActivityTypes), 0)
}
