// Package parsers turns the raw text a device prints in response to a
// diagnostic command into typed models.models records. generic.go
// implements the small category-table engine shared by the
// device-family-specific parsers in linux.go and qnx.go: find a header
// line whose tokens are all known categories, build one combined regex
// from the per-category regexes (joined by the same whitespace the
// table itself uses as a column separator), then apply it line by line.
package parsers

import (
	"fmt"
	"regexp"
	"strings"
)

// ParsingError is returned when the parser received output it could not
// structure. The raw input is attached verbatim for diagnosis.
type ParsingError struct {
	Message string
	Raw     string
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Raw)
}

func newParsingError(raw, format string, args ...any) error {
	return &ParsingError{Message: fmt.Sprintf(format, args...), Raw: raw}
}

// Category describes one column of a text table: the regex that
// matches its value, a parse function turning the matched text into a
// typed value, whether it participates in the result key, and an
// optional rename used as the column's key in each parsed row in place
// of Name. Header lookup always matches Name exactly.
type Category struct {
	Name   string
	Regex  string
	Parse  func(string) (any, error)
	Key    bool
	Rename string
}

func parseString(s string) (any, error) { return s, nil }

func parseInt(s string) (any, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

// ParseString and ParseInt are exported parse-function building blocks
// for Category.Parse.
var (
	ParseString = parseString
	ParseInt    = parseInt
)

// ParseTable locates the header row among raw's lines (or treats every
// line as data when header is false), builds the combined regex, and
// parses each matching row into a map keyed by the category marked Key.
// required lists column names that must be present in at least the
// first parsed row, distinguishing "device responded with junk" from
// "device is missing a field we need."
func ParseTable(raw string, categories []Category, required []string, header bool) (map[string]map[string]any, error) {
	var lines []string
	var ordered []Category

	if header {
		var err error
		lines, ordered, err = splitHeader(raw, categories)
		if err != nil {
			return nil, err
		}
	} else {
		lines = strings.Split(raw, "\n")
		ordered = categories
	}

	result, err := parseTableLines(lines, ordered)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, newParsingError(raw, "failed to parse table")
	}
	var sample map[string]any
	for _, row := range result {
		sample = row
		break
	}
	for _, req := range required {
		if _, ok := sample[req]; !ok {
			return nil, newParsingError(raw, "failed to parse all required categories (%v) from table", required)
		}
	}
	return result, nil
}

func byHeaderToken(categories []Category) map[string]Category {
	m := make(map[string]Category, len(categories))
	for _, c := range categories {
		m[c.Name] = c
	}
	return m
}

// splitHeader advances line by line until every whitespace-separated
// token on a line is a known category name, then returns the remaining lines as data plus the categories in the
// order the header listed them.
func splitHeader(raw string, categories []Category) ([]string, []Category, error) {
	byName := byHeaderToken(categories)
	allLines := strings.Split(raw, "\n")
	if len(allLines) == 0 {
		return nil, nil, newParsingError(raw, "empty table")
	}

	header := allLines[0]
	rest := allLines[1:]
	for {
		tokens := strings.Fields(header)
		ok := len(tokens) > 0
		for _, tok := range tokens {
			if _, known := byName[tok]; !known {
				ok = false
				break
			}
		}
		if ok {
			break
		}
		if len(rest) == 0 {
			return nil, nil, newParsingError(raw, "failed to find a recognizable header")
		}
		header, rest = rest[0], rest[1:]
	}

	ordered := make([]Category, 0, len(strings.Fields(header)))
	for _, tok := range strings.Fields(header) {
		ordered = append(ordered, byName[tok])
	}
	return rest, ordered, nil
}

func parseTableLines(lines []string, ordered []Category) (map[string]map[string]any, error) {
	if len(ordered) == 0 {
		return nil, fmt.Errorf("no categories to parse")
	}
	regexes := make([]string, len(ordered))
	for i, c := range ordered {
		regexes[i] = c.Regex
	}
	combined, err := regexp.Compile(strings.Join(regexes, `\s+`))
	if err != nil {
		return nil, fmt.Errorf("invalid category regex set: %w", err)
	}

	result := make(map[string]map[string]any)
	for _, line := range lines {
		match := combined.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		groups := match[1:]
		row := make(map[string]any, len(ordered))
		var key string
		haveKey := false
		for i, c := range ordered {
			name := c.Name
			if c.Rename != "" {
				name = c.Rename
			}
			val, err := c.Parse(groups[i])
			if err != nil {
				return nil, err
			}
			row[name] = val
			if c.Key {
				key = fmt.Sprint(val)
				haveKey = true
			}
		}
		if !haveKey {
			return nil, fmt.Errorf("no category marked as key in table definition")
		}
		result[key] = row
	}
	return result, nil
}

var compactFormatRe = regexp.MustCompile(`(\d*\.?\d+)([dhms])?`)

// ConvertCompactFormatToSeconds converts a systemd-analyze-style time
// string ("1min 30.5s") into seconds.
func ConvertCompactFormatToSeconds(s string) float64 {
	var total float64
	for _, m := range compactFormatRe.FindAllStringSubmatch(s, -1) {
		value, unit := m[1], m[2]
		var f float64
		fmt.Sscanf(value, "%f", &f)
		switch unit {
		case "d":
			total += f * 86400
		case "h":
			total += f * 3600
		case "m":
			total += f * 60
		case "s", "":
			total += f
		}
	}
	return total
}

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// ConvertToInt extracts the digits from value and parses them as an
// integer, returning 0 if none are present. The original source's
// equivalent iterated a literal "value" string instead of its argument;
// that is a bug and is not reproduced here.
func ConvertToInt(value string) int64 {
	digits := nonDigitRe.ReplaceAllString(value, "")
	if digits == "" {
		return 0
	}
	var n int64
	fmt.Sscanf(digits, "%d", &n)
	return n
}
