package release

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"
)

// File kinds a spreadsheet row names.
const (
	FileTrack = "Track"
	FileCover = "Cover"
)

// Severity grades a mismatch by how far the closest file is from the name.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// Mismatch is a spreadsheet file name without an exact match in the folder.
type Mismatch struct {
	Kind string
	// Row is the 1-based spreadsheet row, header included.
	Row  int
	Name string
	// Closest is the folder entry most similar to Name, empty when no file
	// with the same extension exists.
	Closest string
	// Similarity is a percentage rounded to two decimals.
	Similarity  float64
	Differences string
}

// Severity is high below 50% similarity and medium below 80%.
func (m Mismatch) Severity() Severity {
	switch {
	case m.Similarity < 50:
		return SeverityHigh
	case m.Similarity < 80:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var (
	spaceAroundPunct = regexp.MustCompile(`[\s\p{Zs}]*([()\[\]{}.,\-_])[\s\p{Zs}]*`)
	spaceRun         = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// NormalizeFileName folds a file name for comparison: NFKC, no whitespace
// around brackets and punctuation, single spaces, lower case.
func NormalizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = norm.NFKC.String(name)
	name = spaceAroundPunct.ReplaceAllString(name, "$1")
	name = spaceRun.ReplaceAllString(name, " ")
	name = strings.ToLower(name)
	base, ext := splitExt(name)
	if ext == "" {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(base) + "." + strings.TrimSpace(ext[1:])
}

// splitExt splits at the last dot. Leading dots do not start an extension.
func splitExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.TrimLeft(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}

// Similarity returns how alike two file names are, from 0 to 100. Names with
// different extensions score 0.
func Similarity(a, b string) float64 {
	a, b = NormalizeFileName(a), NormalizeFileName(b)
	if a == "" || b == "" {
		return 0
	}
	aBase, aExt := splitExt(a)
	bBase, bExt := splitExt(b)
	if aExt != bExt {
		return 0
	}
	m := difflib.NewMatcher(runes(aBase), runes(bBase))
	return m.Ratio() * 100
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// ClosestMatch returns the file most similar to name and its similarity.
// Only files with the same extension are considered; the first of equally
// similar files wins.
func ClosestMatch(name string, files []string) (string, float64) {
	normalized := NormalizeFileName(name)
	if normalized == "" {
		return "", 0
	}
	_, ext := splitExt(normalized)
	var (
		best  string
		score float64
	)
	for _, file := range files {
		if _, fileExt := splitExt(NormalizeFileName(file)); fileExt != ext {
			continue
		}
		if sim := Similarity(normalized, file); sim > score {
			best, score = file, sim
		}
	}
	return best, score
}

// Differences lists per-position character differences between the
// normalized names, followed by the trailing characters of the longer one.
func Differences(a, b string) string {
	ra := []rune(NormalizeFileName(a))
	rb := []rune(NormalizeFileName(b))
	n := min(len(ra), len(rb))

	var parts []string
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			parts = append(parts, fmt.Sprintf("position %d: '%c' vs '%c'", i+1, ra[i], rb[i]))
		}
	}
	if len(ra) > n {
		parts = append(parts, fmt.Sprintf("extra in spreadsheet: '%s'", string(ra[n:])))
	}
	if len(rb) > n {
		parts = append(parts, fmt.Sprintf("extra in folder: '%s'", string(rb[n:])))
	}
	return strings.Join(parts, "; ")
}

// Compare checks the track and cover file named on every data row against
// files. Columns are found by their "track"/"cover" headers and default to
// the first two columns. Rows are reported in order, track before cover.
func Compare(rows [][]string, files []string) []Mismatch {
	if len(rows) == 0 {
		return nil
	}
	trackCol := headerColumn(rows[0], "track", colTrack)
	coverCol := headerColumn(rows[0], "cover", colCover)

	var out []Mismatch
	for i := 1; i < len(rows); i++ {
		for _, c := range []struct {
			kind string
			col  int
		}{{FileTrack, trackCol}, {FileCover, coverCol}} {
			name := cell(rows[i], c.col)
			if name == "" {
				continue
			}
			closest, sim := ClosestMatch(name, files)
			if sim >= 100 {
				continue
			}
			out = append(out, Mismatch{
				Kind:        c.kind,
				Row:         i + 1,
				Name:        name,
				Closest:     closest,
				Similarity:  math.Round(sim*100) / 100,
				Differences: Differences(name, closest),
			})
		}
	}
	return out
}

// headerColumn finds a header equal to name or to "name (…)", ignoring case.
func headerColumn(header []string, name string, fallback int) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == name || strings.HasPrefix(h, name+" (") {
			return i
		}
	}
	return fallback
}
