// Package tsa loads daily TSA checkpoint passenger counts and derives the
// point-in-time feature table consumed by the prediction model.
package tsa

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrDataUnavailable is returned when the source series is empty or the
// cutoff window removes every row.
var ErrDataUnavailable = errors.New("tsa: no passenger data available")

// DailyCount is one raw checkpoint-volume observation.
type DailyCount struct {
	Date       time.Time
	Passengers float64
}

// LoadDailyCounts reads the raw passenger CSV from disk.
func LoadDailyCounts(path string) ([]DailyCount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open passenger data: %w", err)
	}
	defer f.Close()

	counts, err := ParseDailyCounts(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return counts, nil
}

// ParseDailyCounts parses the two-column raw series (date as MM/DD/YYYY,
// integer count), tolerating a leading index column. Rows are deduplicated
// by date with a keep-last policy: overlapping year fetches re-report the
// same dates and the later fetch wins. Output is sorted ascending.
func ParseDailyCounts(r io.Reader) ([]DailyCount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, numCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Date", "date":
			dateCol = i
		case "Numbers", "passengers":
			numCol = i
		}
	}
	if dateCol < 0 || numCol < 0 {
		return nil, fmt.Errorf("missing Date/Numbers columns in header %v", header)
	}

	byDate := make(map[time.Time]float64)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) <= dateCol || len(rec) <= numCol {
			continue
		}
		date, err := time.Parse("01/02/2006", strings.TrimSpace(rec[dateCol]))
		if err != nil {
			continue
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(rec[numCol]), ",", ""), 64)
		if err != nil {
			continue
		}
		byDate[DateOnly(date)] = n
	}

	if len(byDate) == 0 {
		return nil, ErrDataUnavailable
	}

	counts := make([]DailyCount, 0, len(byDate))
	for date, n := range byDate {
		counts = append(counts, DailyCount{Date: date, Passengers: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Date.Before(counts[j].Date) })
	return counts, nil
}

// FilterThrough returns the counts dated on or before cutoff. This is the
// point-in-time restriction used when reconstructing what was knowable on a
// historical run date.
func FilterThrough(counts []DailyCount, cutoff time.Time) []DailyCount {
	cutoff = DateOnly(cutoff)
	out := make([]DailyCount, 0, len(counts))
	for _, c := range counts {
		if !c.Date.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}
