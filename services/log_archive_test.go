package services

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"testing"
	"time"
)

func archiveFixture() []archiveEntry {
	base := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.Local)
	return []archiveEntry{
		{ID: 1, UserID: 1, Username: "admin", UserRole: "admin", Action: "CREATE", Resource: "students", ResourceID: 10, IPAddress: "10.0.0.1", CreatedAt: base},
		{ID: 2, UserID: 2, Username: "frontdesk", UserRole: "staff", Action: "UPDATE", Resource: "payments", ResourceID: 55, Details: map[string]any{"action": "mark_paid", "month": "2025-07"}, IPAddress: "10.0.0.2", CreatedAt: base.Add(time.Hour)},
		{ID: 3, UserID: 2, Username: "frontdesk", UserRole: "staff", Action: "UPDATE", Resource: "payments", ResourceID: 56, IPAddress: "10.0.0.2", CreatedAt: base.Add(2 * time.Hour)},
	}
}

func readZipFile(t *testing.T, zr *zip.Reader, name string) []byte {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return data
	}
	t.Fatalf("archive is missing %s", name)
	return nil
}

func TestBuildArchive(t *testing.T) {
	entries := archiveFixture()
	buf, err := buildArchive(entries, "fee-activity-2025-08-01.zip")
	if err != nil {
		t.Fatalf("buildArchive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 3 {
		t.Fatalf("archive files = %d, want 3", len(zr.File))
	}

	var summary struct {
		RecordCount int                  `json:"record_count"`
		ByResource  map[string]int       `json:"by_resource"`
		ByAction    map[string]int       `json:"by_action"`
		DateRange   map[string]time.Time `json:"date_range"`
	}
	if err := json.Unmarshal(readZipFile(t, zr, "summary.json"), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.RecordCount != 3 {
		t.Errorf("record_count = %d, want 3", summary.RecordCount)
	}
	if summary.ByResource["payments"] != 2 || summary.ByResource["students"] != 1 {
		t.Errorf("by_resource = %v", summary.ByResource)
	}
	if summary.ByAction["UPDATE"] != 2 {
		t.Errorf("by_action = %v", summary.ByAction)
	}
	if !summary.DateRange["start"].Equal(entries[0].CreatedAt) || !summary.DateRange["end"].Equal(entries[2].CreatedAt) {
		t.Errorf("date_range = %v", summary.DateRange)
	}

	var decoded []archiveEntry
	if err := json.Unmarshal(readZipFile(t, zr, "activity_logs.json"), &decoded); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(decoded) != 3 || decoded[1].Details["month"] != "2025-07" {
		t.Fatalf("decoded entries = %+v", decoded)
	}

	records, err := csv.NewReader(bytes.NewReader(readZipFile(t, zr, "activity_logs.csv"))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("csv rows = %d, want header + 3", len(records))
	}
	if records[0][4] != "Resource" {
		t.Errorf("csv header = %v", records[0])
	}
	if records[2][1] != "frontdesk" || records[2][4] != "payments" {
		t.Errorf("csv payment row = %v", records[2])
	}
	// Details JSON contains commas and quotes and must survive quoting.
	var details map[string]any
	if err := json.Unmarshal([]byte(records[2][8]), &details); err != nil {
		t.Errorf("csv details not valid JSON: %q", records[2][8])
	}
}
