package exports

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"depinledger/core/journal"
)

func sampleEntries() []journal.Entry {
	return []journal.Entry{{
		ID:         uuid.New(),
		Seq:        1,
		Type:       "treasury.unlocked",
		Subject:    "lock-1",
		Attributes: `{"payout":"1098","penalty":"902"}`,
		RecordedAt: time.Unix(1_750_000_000, 0).UTC(),
	}}
}

func TestJournalCSV(t *testing.T) {
	data, checksum, err := JournalCSV(sampleEntries())
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(data) == 0 || len(checksum) != 64 {
		t.Fatalf("expected data and checksum")
	}
	output := string(data)
	if !strings.Contains(output, "seq,id,type,subject,recorded_at,attributes") {
		t.Fatalf("missing header: %s", output)
	}
	if !strings.Contains(output, "payout=1098;penalty=902") {
		t.Fatalf("attributes not flattened: %s", output)
	}
}

func TestJournalJSONL(t *testing.T) {
	data, checksum, err := JournalJSONL(sampleEntries())
	if err != nil {
		t.Fatalf("jsonl: %v", err)
	}
	if len(data) == 0 || checksum == "" {
		t.Fatalf("expected data and checksum")
	}
	output := string(data)
	if !strings.Contains(output, `"seq":1`) {
		t.Fatalf("unexpected payload: %s", output)
	}
	if !strings.Contains(output, `"penalty":"902"`) {
		t.Fatalf("missing attributes: %s", output)
	}
}

func TestJournalExportRejectsCorruptAttributes(t *testing.T) {
	entries := sampleEntries()
	entries[0].Attributes = "{"
	if _, _, err := JournalCSV(entries); err == nil {
		t.Fatalf("expected decode error")
	}
}
