package release

// TrackCount returns the number of tracks in the record.
func (r Record) TrackCount() int { return len(r.Tracks) }

// DisplayName returns the release name or a placeholder for logs.
func (r Record) DisplayName() string {
	if r.Name == "" {
		return "(untitled)"
	}
	return r.Name
}

// Payload builds the release document. trackSrcs holds the uploaded URL per
// track, in order; a missing or empty entry leaves the track without audio.
func (r Record) Payload(cover Asset, trackSrcs []string) Release {
	doc := NewRelease()
	doc.Name = r.Name
	doc.Cover = cover
	doc.Genre = r.Genre
	doc.Subgenre = r.Subgenre
	doc.Code = r.Code
	doc.Label = r.Label
	doc.PartnerCode = r.PartnerCode
	doc.ReleaseType = r.ReleaseType
	doc.ReleaseKind = r.ReleaseKind
	doc.DateFirstPublication = optional(r.DateFirstPublication)
	doc.DateStartSites = optional(r.DateStartSites)
	if len(r.Persons) > 0 {
		doc.PersonsAndRoles = append([]ReleasePerson(nil), r.Persons...)
	}
	if r.AudioPlatforms != nil {
		doc.AudioPlatforms = append([]string{}, r.AudioPlatforms...)
	}
	if r.Regions != nil {
		doc.Regions = append([]string{}, r.Regions...)
	}

	doc.Tracks = make([]Track, len(r.Tracks))
	for i, track := range r.Tracks {
		track.Src = ""
		if i < len(trackSrcs) {
			track.Src = trackSrcs[i]
		}
		doc.Tracks[i] = track
	}
	return doc
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
