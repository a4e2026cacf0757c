package release_test

import (
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"silkstaff/internal/release"
)

func TestNormalizeFileName(t *testing.T) {
	cases := map[string]string{
		"  Track ( Remix ) .WAV ": "track(remix).wav",
		"Song  Name.mp3":          "song name.mp3",
		"ｓｏｎｇ.wav":                "song.wav",
		"Cover - Front _ v2.JPG":  "cover-front_v2.jpg",
		"README":                  "readme",
		"":                        "",
	}
	for in, want := range cases {
		if got := release.NormalizeFileName(in); got != want {
			t.Errorf("NormalizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := release.Similarity("Song.wav", "song .WAV"); got != 100 {
		t.Fatalf("equal names after normalization = %v, want 100", got)
	}
	if got := release.Similarity("abcd.wav", "abce.wav"); got != 75 {
		t.Fatalf("one differing character = %v, want 75", got)
	}
	if got := release.Similarity("a.wav", "a.mp3"); got != 0 {
		t.Fatalf("different extensions = %v, want 0", got)
	}
	if got := release.Similarity("", "a.wav"); got != 0 {
		t.Fatalf("empty name = %v, want 0", got)
	}
}

func TestClosestMatchSkipsOtherExtensions(t *testing.T) {
	files := []string{"song one.mp3", "Song Two.wav", "Song On.wav"}
	best, score := release.ClosestMatch("Song One.wav", files)
	if best != "Song On.wav" {
		t.Fatalf("closest = %q, want Song On.wav", best)
	}
	if math.Abs(score-93.333) > 0.01 {
		t.Fatalf("score = %v, want about 93.33", score)
	}

	best, score = release.ClosestMatch("Song One.flac", files)
	if best != "" || score != 0 {
		t.Fatalf("no file with the extension should give no match, got %q %v", best, score)
	}
}

func TestDifferences(t *testing.T) {
	if got := release.Differences("abc.wav", "ABD.wav"); got != "position 3: 'c' vs 'd'" {
		t.Fatalf("Differences = %q", got)
	}
	if got := release.Differences("art.png", ""); got != "extra in spreadsheet: 'art.png'" {
		t.Fatalf("Differences against nothing = %q", got)
	}
	if got := release.Differences("ab.wav", "ab.wav"); got != "" {
		t.Fatalf("equal names should have no differences, got %q", got)
	}
}

func TestCompareReportsTrackThenCover(t *testing.T) {
	rows := [][]string{
		{"Track (titel)", "Cover (titel)", "upc"},
		{"01 Intro.wav", "cover.jpg", "1"},
		{"02 Song.wav", "art.png", "1"},
		{"", "", ""},
	}
	files := []string{"01 intro.WAV", "cover.jpg", "02 Songs.wav"}

	got := release.Compare(rows, files)
	if len(got) != 2 {
		t.Fatalf("expected 2 mismatches, got %+v", got)
	}
	track := got[0]
	if track.Kind != release.FileTrack || track.Row != 3 || track.Closest != "02 Songs.wav" || track.Similarity != 93.33 {
		t.Fatalf("unexpected track mismatch: %+v", track)
	}
	if track.Differences == "" || track.Severity() != release.SeverityLow {
		t.Fatalf("track mismatch should carry differences and low severity: %+v", track)
	}
	want := release.Mismatch{Kind: release.FileCover, Row: 3, Name: "art.png", Differences: "extra in spreadsheet: 'art.png'"}
	if !reflect.DeepEqual(got[1], want) {
		t.Fatalf("cover mismatch = %+v, want %+v", got[1], want)
	}
	if got[1].Severity() != release.SeverityHigh {
		t.Fatal("missing cover should be high severity")
	}
}

func TestCompareFindsColumnsByHeader(t *testing.T) {
	rows := [][]string{
		{"upc", "cover", "track"},
		{"1", "front.jpg", "a.wav"},
	}
	got := release.Compare(rows, []string{"a.wav"})
	if len(got) != 1 || got[0].Kind != release.FileCover || got[0].Name != "front.jpg" {
		t.Fatalf("unexpected mismatches: %+v", got)
	}
}

func TestWriteComparisonStylesRowsBySeverity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	mismatches := []release.Mismatch{
		{Kind: release.FileTrack, Row: 2, Name: "a.wav", Closest: "a1.wav", Similarity: 90.91},
		{Kind: release.FileTrack, Row: 3, Name: "abc.wav", Closest: "xbc.wav", Similarity: 66.67, Differences: "position 1: 'a' vs 'x'"},
		{Kind: release.FileCover, Row: 3, Name: "art.png", Differences: "extra in spreadsheet: 'art.png'"},
	}
	if err := release.WriteComparison(path, mismatches); err != nil {
		t.Fatalf("WriteComparison: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(release.ComparisonSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "Type" || rows[3][2] != "Not found" || rows[2][4] != "66.67" {
		t.Fatalf("unexpected results rows: %q", rows)
	}

	styleOf := func(cell string) int {
		t.Helper()
		id, err := f.GetCellStyle(release.ComparisonSheet, cell)
		if err != nil {
			t.Fatalf("GetCellStyle %s: %v", cell, err)
		}
		return id
	}
	fill := func(id int) string {
		t.Helper()
		style, err := f.GetStyle(id)
		if err != nil {
			t.Fatalf("GetStyle %d: %v", id, err)
		}
		if len(style.Fill.Color) == 0 {
			return ""
		}
		return strings.ToUpper(style.Fill.Color[0])
	}

	if id := styleOf("A2"); id != 0 && fill(id) != "" {
		t.Fatalf("high similarity row should not be filled, got %q", fill(id))
	}
	if got := fill(styleOf("F3")); !strings.HasSuffix(got, "FFFF00") {
		t.Fatalf("medium row fill = %q, want yellow", got)
	}
	if got := fill(styleOf("A4")); !strings.HasSuffix(got, "FF0000") || strings.HasSuffix(got, "FFFF00") {
		t.Fatalf("low similarity row fill = %q, want red", got)
	}
	if width, err := f.GetColWidth(release.ComparisonSheet, "B"); err != nil || width < float64(len("Name in spreadsheet")) {
		t.Fatalf("column B width = %v, %v", width, err)
	}
}
