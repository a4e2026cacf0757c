package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"silkstaff/internal/config"
	"silkstaff/internal/jobs"
	"silkstaff/internal/release"
	"silkstaff/internal/services"
	"silkstaff/internal/testsupport"
)

func newCompareFixture(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	mediaDir := filepath.Join(dir, "media")
	excelPath := filepath.Join(dir, "releases.xlsx")
	testsupport.WriteMedia(t, mediaDir, "01 Intro.wav", 4)
	testsupport.WriteMedia(t, mediaDir, "02 Songs.wav", 4)
	testsupport.WriteMedia(t, mediaDir, "cover.jpg", 4)
	testsupport.WriteMedia(t, filepath.Join(mediaDir, "nested.wav"), "inner.wav", 4)
	testsupport.WriteWorkbook(t, excelPath, release.DefaultSheet, [][]string{
		{"track (titel)", "cover (titel)"},
		{"01 intro.WAV", "cover.jpg"},
		{"02 Song.wav", "cover.jpg"},
		{"nested.wav", "front.png"},
	})
	return testsupport.NewConfig(t, testsupport.WithMediaDir(excelPath, mediaDir))
}

func TestMediaComparisonWritesResults(t *testing.T) {
	cfg := newCompareFixture(t)
	var report bytes.Buffer
	now := time.Date(2025, 3, 1, 14, 5, 9, 0, time.Local)
	job := jobs.NewMediaComparison(cfg, jobs.WithReport(&report), jobs.WithClock(func() time.Time { return now }))

	result, err := job.Execute(context.Background(), jobs.CompareOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Rows != 3 || result.Files != 3 {
		t.Fatalf("rows = %d, files = %d; want 3 and 3", result.Rows, result.Files)
	}
	if len(result.Mismatches) != 3 {
		t.Fatalf("expected 3 mismatches, got %+v", result.Mismatches)
	}
	if m := result.Mismatches[0]; m.Row != 3 || m.Closest != "02 Songs.wav" {
		t.Fatalf("unexpected first mismatch: %+v", m)
	}
	if m := result.Mismatches[1]; m.Name != "nested.wav" || m.Closest == "nested.wav" {
		t.Fatalf("directories must not count as media: %+v", m)
	}

	want := filepath.Join(cfg.Paths.ResultsDir, "file_comparison_results_2025-03-01_14-05-09.xlsx")
	if result.ResultsPath != want {
		t.Fatalf("results path = %q, want %q", result.ResultsPath, want)
	}
	rows, err := release.ReadWorkbook(want, release.ComparisonSheet)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if len(rows) != 4 || rows[3][1] != "front.png" || rows[3][2] != "Not found" {
		t.Fatalf("unexpected results rows: %q", rows)
	}
	if !strings.Contains(report.String(), "Media Comparison Report") {
		t.Fatalf("report missing title:\n%s", report.String())
	}

	saved, ok, err := config.ReadSavedPaths(cfg.Paths.DataDir)
	if err != nil || !ok || saved.DirectoryPath != cfg.ReleaseUpload.MediaDir {
		t.Fatalf("paths not remembered: %+v %v %v", saved, ok, err)
	}
}

func TestMediaComparisonAllMatch(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteMedia(t, dir, "a.wav", 1)
	testsupport.WriteMedia(t, dir, "a.jpg", 1)
	excelPath := filepath.Join(dir, "sheet.xlsx")
	testsupport.WriteWorkbook(t, excelPath, release.DefaultSheet, [][]string{
		{"track (titel)", "cover (titel)"},
		{"A.wav", "a.jpg"},
	})
	cfg := testsupport.NewConfig(t)

	result, err := jobs.NewMediaComparison(cfg).Execute(context.Background(), jobs.CompareOptions{ExcelPath: excelPath, MediaDir: dir})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Mismatches) != 0 || result.ResultsPath == "" {
		t.Fatalf("expected no mismatches and a results file, got %+v", result)
	}
}

func TestMediaComparisonMissingInputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := jobs.NewMediaComparison(cfg).Execute(context.Background(), jobs.CompareOptions{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}

	_, err = jobs.NewMediaComparison(cfg).Execute(context.Background(), jobs.CompareOptions{
		ExcelPath: filepath.Join(t.TempDir(), "none.xlsx"),
		MediaDir:  t.TempDir(),
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
