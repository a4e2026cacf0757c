package jobs

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UploadStats counts release upload outcomes. Records before the start index
// of a resumed run are credited as successful.
type UploadStats struct {
	TotalReleases      int
	SuccessfulReleases int
	FailedReleases     int
	TotalTracks        int
	SuccessfulTracks   int
	FailedTracks       int
	SuccessfulCovers   int
	FailedCovers       int
	MissingFiles       int
	StartIndex         int
	Started            time.Time
	Finished           time.Time
}

// SuccessRate returns successful releases as a rounded percentage of the total.
func (s UploadStats) SuccessRate() int {
	if s.TotalReleases == 0 {
		return 0
	}
	return int(math.Round(float64(s.SuccessfulReleases) * 100 / float64(s.TotalReleases)))
}

// Elapsed returns the run duration rounded to seconds.
func (s UploadStats) Elapsed() time.Duration {
	if s.Started.IsZero() || s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started).Round(time.Second)
}

// ShipmentStats counts shipment hand-off outcomes.
type ShipmentStats struct {
	Matched    int
	Updated    int
	Failed     int
	StartIndex int
	BackupPath string
	Resumed    bool
	Started    time.Time
	Finished   time.Time
}

// Elapsed returns the run duration rounded to seconds.
func (s ShipmentStats) Elapsed() time.Duration {
	if s.Started.IsZero() || s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started).Round(time.Second)
}

// WriteUploadReport renders the final release upload summary.
func WriteUploadReport(w io.Writer, s UploadStats) error {
	rows := [][2]string{
		{"elapsed", s.Elapsed().String()},
		{"releases total", strconv.Itoa(s.TotalReleases)},
		{"releases uploaded", strconv.Itoa(s.SuccessfulReleases)},
		{"releases failed", strconv.Itoa(s.FailedReleases)},
		{"tracks total", strconv.Itoa(s.TotalTracks)},
		{"tracks uploaded", strconv.Itoa(s.SuccessfulTracks)},
		{"tracks failed", strconv.Itoa(s.FailedTracks)},
		{"covers uploaded", strconv.Itoa(s.SuccessfulCovers)},
		{"covers failed", strconv.Itoa(s.FailedCovers)},
		{"missing files", strconv.Itoa(s.MissingFiles)},
		{"success rate", fmt.Sprintf("%d%%", s.SuccessRate())},
	}
	if s.StartIndex > 0 {
		rows = append(rows, [2]string{"resumed at", strconv.Itoa(s.StartIndex + 1)})
	}
	return writeReport(w, "release upload report", rows)
}

// WriteShipmentReport renders the final shipment summary.
func WriteShipmentReport(w io.Writer, s ShipmentStats) error {
	rows := [][2]string{
		{"elapsed", s.Elapsed().String()},
		{"releases matched", strconv.Itoa(s.Matched)},
		{"releases moved", strconv.Itoa(s.Updated)},
		{"releases failed", strconv.Itoa(s.Failed)},
		{"backup", s.BackupPath},
	}
	if s.Resumed {
		rows = append(rows, [2]string{"resumed at", strconv.Itoa(s.StartIndex + 1)})
	}
	return writeReport(w, "shipment report", rows)
}

// WriteCompareReport renders the media comparison summary.
func WriteCompareReport(w io.Writer, r CompareResult) error {
	rows := [][2]string{
		{"rows checked", strconv.Itoa(r.Rows)},
		{"files in folder", strconv.Itoa(r.Files)},
		{"mismatches", strconv.Itoa(len(r.Mismatches))},
		{"results file", r.ResultsPath},
	}
	return writeReport(w, "media comparison report", rows)
}

func writeReport(w io.Writer, title string, rows [][2]string) error {
	if w == nil {
		return nil
	}
	caser := cases.Title(language.English)
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(caser.String(title))
	for _, row := range rows {
		tw.AppendRow(table.Row{caser.String(row[0]), row[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}
