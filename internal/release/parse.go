package release

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// Spreadsheet columns A..U.
const (
	colTrack = iota
	colCover
	colUPC
	colISRC
	colTrackName
	colGenre
	colSubgenre
	colName
	colPerformerRelease
	colFeatRelease
	colPerformerTrack
	colFeatTrack
	colComposer
	colLyricist
	colExplicit
	colTrackLanguage
	colLabel
	colAudioPlatforms
	colRegions
	colDateFirstPublication
	colPartnerCode
)

const noWords = "без слов"

// Options supplies the lookup lists and clock used while mapping rows.
type Options struct {
	Countries      []string
	Platforms      []string
	Today          time.Time
	StartDelayDays int
}

// Record is one release assembled from one or more spreadsheet rows.
type Record struct {
	// Rows lists the 1-based spreadsheet rows merged into this record.
	Rows                 []int
	Name                 string
	CoverFile            string
	Genre                string
	Subgenre             string
	Code                 string
	Label                string
	PartnerCode          string
	DateFirstPublication string
	DateStartSites       string
	Persons              []ReleasePerson
	Tracks               []Track
	AudioPlatforms       []string
	Regions              []string
	ReleaseType          string
	ReleaseKind          string
}

// Issue is a non-fatal problem found in a row.
type Issue struct {
	Row     int
	Column  string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("row %d, %s: %s", i.Row, i.Column, i.Message)
}

// ParseRows maps spreadsheet rows (header first) to merged, classified records.
func ParseRows(rows [][]string, opts Options) ([]Record, []Issue) {
	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}
	startSites := today.AddDate(0, 0, opts.StartDelayDays).Format(time.DateOnly)

	var (
		records []Record
		issues  []Issue
	)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		rowNumber := i + 1
		rec, rowIssues := parseRow(row, rowNumber, opts)
		rec.DateStartSites = startSites
		records = append(records, rec)
		issues = append(issues, rowIssues...)
	}

	merged := Merge(records)
	for i := range merged {
		Classify(&merged[i])
	}
	return merged, issues
}

func parseRow(row []string, rowNumber int, opts Options) (Record, []Issue) {
	get := func(col int) string { return cell(row, col) }
	var issues []Issue

	lyricistCell := get(colLyricist)
	isNoWords := strings.EqualFold(lyricistCell, noWords)

	track := newTrack()
	if name := get(colTrackName); name != "" {
		track.Name = name
	}
	track.Src = get(colTrack)
	track.Code = numericText(get(colISRC))

	persons := make([]TrackPerson, 0)
	persons = mergeTrackPersons(persons, splitPersons(get(colPerformerTrack)), RolePerformer)
	persons = mergeTrackPersons(persons, splitPersons(get(colFeatTrack)), RoleFeat)
	persons = mergeTrackPersons(persons, splitPersons(get(colComposer)), RoleComposer)
	if !isNoWords {
		persons = mergeTrackPersons(persons, splitPersons(lyricistCell), RoleLyricist)
	}
	track.PersonsAndRoles = persons

	if lang := strings.ToLower(get(colTrackLanguage)); lang != "" {
		track.TrackLanguage = &lang
	} else if isNoWords {
		lang := LanguageNoWords
		track.TrackLanguage = &lang
	}

	rec := Record{
		Rows:        []int{rowNumber},
		Name:        get(colName),
		CoverFile:   get(colCover),
		Genre:       get(colGenre),
		Subgenre:    get(colSubgenre),
		Code:        numericText(get(colUPC)),
		Label:       get(colLabel),
		PartnerCode: numericText(get(colPartnerCode)),
		Tracks:      []Track{track},
	}
	for _, name := range splitPersons(get(colPerformerRelease)) {
		rec.Persons = append(rec.Persons, ReleasePerson{Person: name, Role: RolePerformer})
	}
	for _, name := range splitPersons(get(colFeatRelease)) {
		rec.Persons = append(rec.Persons, ReleasePerson{Person: name, Role: RoleFeat})
	}
	if rec.Persons == nil {
		rec.Persons = []ReleasePerson{}
	}

	rec.AudioPlatforms = expandList(get(colAudioPlatforms), opts.Platforms, "All")
	rec.Regions = expandList(get(colRegions), opts.Countries, "All", "WW")

	if raw := get(colDateFirstPublication); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			issues = append(issues, Issue{Row: rowNumber, Column: "dateFirstPublication", Message: err.Error()})
		} else {
			rec.DateFirstPublication = date
		}
	}
	if rec.Name == "" {
		issues = append(issues, Issue{Row: rowNumber, Column: "name", Message: "release name is empty"})
	}
	if track.Src == "" {
		issues = append(issues, Issue{Row: rowNumber, Column: "track", Message: "track file is empty"})
	}
	return rec, issues
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(norm.NFC.String(row[col]))
}

func isBlank(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func splitPersons(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ", ") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeTrackPersons appends role to each named person, keeping first-seen
// order and dropping duplicate roles.
func mergeTrackPersons(dst []TrackPerson, names []string, role string) []TrackPerson {
	for _, name := range names {
		found := false
		for i := range dst {
			if dst[i].Person != name {
				continue
			}
			found = true
			if !containsString(dst[i].Roles, role) {
				dst[i].Roles = append(dst[i].Roles, role)
			}
			break
		}
		if !found {
			dst = append(dst, TrackPerson{Person: name, Roles: []string{role}})
		}
	}
	return dst
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// expandList returns all when value equals one of the wildcard keywords and
// the comma separated entries otherwise.
func expandList(value string, all []string, wildcards ...string) []string {
	for _, w := range wildcards {
		if value == w {
			return append([]string{}, all...)
		}
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// numericText renders spreadsheet numbers such as UPCs stored as floats
// ("4.607123456789E+12") as plain digits.
func numericText(value string) string {
	if value == "" || !strings.ContainsAny(value, ".eE") {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var dateLayouts = []string{
	time.DateOnly,
	"02.01.2006",
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseDate accepts Excel serial dates and common textual layouts and returns
// YYYY-MM-DD.
func parseDate(value string) (string, error) {
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", fmt.Errorf("invalid excel date %q: %w", value, err)
		}
		return t.Format(time.DateOnly), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", value)
}
