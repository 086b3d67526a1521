// Package tle loads and parses NORAD two-line element sets.
// Element sets are fetched from Celestrak by group and cached locally so
// repeated runs close together don't hammer the remote service.
package tle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Entry is a single satellite's element set in 3-line format
// (name line followed by the two data lines).
type Entry struct {
	// Name is the satellite name from the title line, trimmed
	Name string

	// NORADID is the catalog number from columns 3-7 of line 1
	NORADID int

	// Epoch is the element set epoch decoded from line 1
	Epoch time.Time

	// Line1 and Line2 are the raw element lines, as required by SGP4
	Line1 string
	Line2 string
}

// Parse reads 3-line TLE data from r and returns the parsed entries.
// Malformed entries are skipped rather than failing the whole file,
// since public catalogs occasionally contain damaged records.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Resync on the next line and try again.
			i++
			continue
		}

		if len(line1) < 32 {
			i += 3
			continue
		}

		noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
		if err != nil {
			i += 3
			continue
		}

		epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
		if err != nil {
			i += 3
			continue
		}

		entries = append(entries, Entry{
			Name:    strings.TrimSpace(name),
			NORADID: noradID,
			Epoch:   epoch,
			Line1:   line1,
			Line2:   line2,
		})
		i += 3
	}

	return entries, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
