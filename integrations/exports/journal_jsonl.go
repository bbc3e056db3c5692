package exports

import (
	"bytes"
	"encoding/json"
	"time"

	"depinledger/core/journal"
)

// JournalJSONL builds a JSON Lines export of entries.
func JournalJSONL(entries []journal.Entry) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for i := range entries {
		entry := &entries[i]
		evt, err := entry.Event()
		if err != nil {
			return nil, "", err
		}
		payload := map[string]interface{}{
			"seq":         entry.Seq,
			"id":          entry.ID.String(),
			"type":        entry.Type,
			"subject":     entry.Subject,
			"recorded_at": entry.RecordedAt.UTC().Format(time.RFC3339Nano),
			"attributes":  evt.Attributes,
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	return checksummed(buffer.Bytes())
}
