package models

import (
	"regexp"
	"strings"
	"time"
)

// SerialDate pairs an extracted serial number with its acquisition date.
type SerialDate struct {
	Serial     string    `json:"serial"`
	AcquiredAt time.Time `json:"acquired_at"`
}

var (
	digitRunPattern = regexp.MustCompile(`[0-9]+`)
	datePattern     = regexp.MustCompile(`([0-9]{4})[-/.]([0-9]{2})[-/.]([0-9]{2})`)
)

// serialLength is the exact digit count of a unit serial. Longer runs are
// order numbers or timestamps, shorter ones are counts; both are ignored.
const serialLength = 8

// pairWindow is how many lines below a serial line the matching date may
// sit. Source reports put the serial and its date on adjacent lines in no
// fixed order.
const pairWindow = 3

// ExtractPairs pulls (serial, acquisition date) pairs out of pasted report
// text. Serials are runs of exactly eight digits. Each serial line is paired
// with the first date found on it or within the few lines after it, falling
// back to defaultDate. A serial repeated later in the text overwrites the
// earlier date; output keeps first-appearance order.
func ExtractPairs(text string, defaultDate time.Time) []SerialDate {
	normalized := normalizeDigits(text)
	defaultDate = DateOf(defaultDate)

	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	order := make([]string, 0)
	dates := make(map[string]time.Time)
	record := func(serial string, date time.Time) {
		if _, seen := dates[serial]; !seen {
			order = append(order, serial)
		}
		dates[serial] = date
	}

	for i, line := range lines {
		serials := serialsIn(line)
		if len(serials) == 0 {
			continue
		}

		date := defaultDate
		end := i + pairWindow + 1
		if end > len(lines) {
			end = len(lines)
		}
		for _, windowLine := range lines[i:end] {
			if found, ok := firstDateIn(windowLine); ok {
				date = found
				break
			}
		}

		for _, serial := range serials {
			record(serial, date)
		}
	}

	// Pastes with no line structure left: scan the whole text at once and
	// spread its first date over every serial.
	if len(order) == 0 {
		date := defaultDate
		if found, ok := firstDateIn(normalized); ok {
			date = found
		}
		for _, serial := range serialsIn(normalized) {
			record(serial, date)
		}
	}

	pairs := make([]SerialDate, 0, len(order))
	for _, serial := range order {
		pairs = append(pairs, SerialDate{Serial: serial, AcquiredAt: dates[serial]})
	}
	return pairs
}

// ExtractSerials returns just the deduplicated serials found in the text, in
// first-appearance order. Used when dates do not matter, as in return
// batches and quick stock counts.
func ExtractSerials(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, serial := range serialsIn(normalizeDigits(text)) {
		if _, dup := seen[serial]; dup {
			continue
		}
		seen[serial] = struct{}{}
		out = append(out, serial)
	}
	return out
}

// normalizeDigits folds full-width digits into their ASCII counterparts so
// text pasted from Japanese apps matches the same patterns.
func normalizeDigits(text string) string {
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return '0' + (r - '０')
		}
		return r
	}, text)
}

// serialsIn returns the digit runs of exactly serialLength in the text.
func serialsIn(text string) []string {
	var out []string
	for _, run := range digitRunPattern.FindAllString(text, -1) {
		if len(run) == serialLength {
			out = append(out, run)
		}
	}
	return out
}

// firstDateIn returns the first parseable date in the text. Separator
// variants (2024/01/05, 2024.01.05) are normalized; matches that fail
// calendar validation are skipped.
func firstDateIn(text string) (time.Time, bool) {
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		parsed, err := time.Parse(DateLayout, m[1]+"-"+m[2]+"-"+m[3])
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
