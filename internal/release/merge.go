package release

// Merge folds records that describe the same release. Records with a code are
// grouped by code; records without one join the first earlier record with the
// same name, coded or not. The first record of each group keeps its metadata
// and the tracks of later ones are appended in order.
func Merge(records []Record) []Record {
	out := make([]Record, 0, len(records))
	byCode := make(map[string]int)
	byName := make(map[string]int)

	for _, rec := range records {
		var (
			idx int
			ok  bool
		)
		if rec.Code != "" {
			idx, ok = byCode[rec.Code]
		} else {
			idx, ok = byName[rec.Name]
		}
		if ok {
			out[idx].Tracks = append(out[idx].Tracks, rec.Tracks...)
			out[idx].Rows = append(out[idx].Rows, rec.Rows...)
			continue
		}
		out = append(out, rec)
		if rec.Code != "" {
			byCode[rec.Code] = len(out) - 1
		}
		if _, seen := byName[rec.Name]; !seen {
			byName[rec.Name] = len(out) - 1
		}
	}
	return out
}

// Classify sets the release type and kind from the track count: more than
// five tracks is an album, anything else a single, and singles with two to
// five tracks are "single-maxi".
func Classify(rec *Record) {
	n := len(rec.Tracks)
	switch {
	case n > 5:
		rec.ReleaseType = TypeAlbum
		rec.ReleaseKind = ""
	case n >= 2:
		rec.ReleaseType = TypeSingle
		rec.ReleaseKind = KindMaxi
	default:
		rec.ReleaseType = TypeSingle
		rec.ReleaseKind = ""
	}
}
