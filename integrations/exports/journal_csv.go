// Package exports renders journal entries for auditors. Every export is
// returned with the SHA-256 checksum of its bytes.
package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"depinledger/core/journal"
)

// JournalCSV builds a CSV export of entries. Attributes are flattened into a
// single key=value column sorted by key.
func JournalCSV(entries []journal.Entry) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"seq", "id", "type", "subject", "recorded_at", "attributes"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	for i := range entries {
		entry := &entries[i]
		evt, err := entry.Event()
		if err != nil {
			return nil, "", err
		}
		record := []string{
			strconv.FormatUint(entry.Seq, 10),
			entry.ID.String(),
			entry.Type,
			entry.Subject,
			entry.RecordedAt.UTC().Format(time.RFC3339Nano),
			flatten(evt.Attributes),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	return checksummed(buffer.Bytes())
}

func flatten(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, ";")
}

func checksummed(data []byte) ([]byte, string, error) {
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
