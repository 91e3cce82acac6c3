package feed

import (
	"strings"

	"deal-feed-service/internal/models"
)

const (
	// Delimiter separates feed columns
	Delimiter = ","
	// MinColumns is the fewest columns a row needs to be accepted
	MinColumns = 10
)

// ParseStats counts what happened to the data lines of a feed
type ParseStats struct {
	Lines     int `json:"lines"`
	Parsed    int `json:"parsed"`
	Malformed int `json:"malformed"`
}

// Parse converts raw delimited feed text into records.
// The first line is the header and is always discarded. Blank lines are ignored
// and rows with fewer than MinColumns fields are counted as malformed.
//
// Fields are split naively on Delimiter: a quoted cell containing a comma
// shifts every following column.
func Parse(raw string) ([]models.FeedRecord, ParseStats) {
	var stats ParseStats

	lines := strings.Split(raw, "\n")
	if len(lines) <= 1 {
		return []models.FeedRecord{}, stats
	}

	records := make([]models.FeedRecord, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		stats.Lines++

		fields := strings.Split(line, Delimiter)
		if len(fields) < MinColumns {
			stats.Malformed++
			continue
		}

		records = append(records, recordFromFields(fields))
		stats.Parsed++
	}

	return records, stats
}

func recordFromFields(fields []string) models.FeedRecord {
	var rec models.FeedRecord
	for i, col := range Columns {
		var raw string
		if i < len(fields) {
			raw = fields[i]
		}
		col.assign(&rec, raw)
	}
	return rec
}
