package release

// Asset references an uploaded file.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ReleasePerson credits a person on the release.
type ReleasePerson struct {
	Person string `json:"person"`
	Role   string `json:"role"`
}

// TrackPerson credits a person on a track with one or more roles.
type TrackPerson struct {
	Person string   `json:"person"`
	Roles  []string `json:"role"`
}

// Track is one track of a release document. Src holds the media file name
// from the spreadsheet until Payload swaps in the uploaded URL.
type Track struct {
	Name                 string        `json:"name"`
	Src                  string        `json:"src"`
	Subtitle             string        `json:"subtitle"`
	AuthorRights         int           `json:"authorRights"`
	RelatedRights        int           `json:"relatedRights"`
	TrackVersion         []string      `json:"trackVersion"`
	TiktokStartAt        string        `json:"tiktokStartAt"`
	TiktokEndAt          string        `json:"tiktokEndAt"`
	PersonsAndRoles      []TrackPerson `json:"personsAndRoles"`
	InstantGratification bool          `json:"instantGratification"`
	TimeStartPreview     string        `json:"timeStartPreview"`
	DateStartPreview     *string       `json:"dateStartPreview"`
	Code                 string        `json:"code"`
	Lyrics               string        `json:"lyrics"`
	TrackLanguage        *string       `json:"trackLanguage"`
	KaraokeFile          Asset         `json:"karaokeFile"`
	SyncLyrics           bool          `json:"syncLyrics"`
	Ringtone             Asset         `json:"ringtone"`
	Video                Asset         `json:"video"`
	Order                int           `json:"order"`
}

// Price is an iTunes price tier.
type Price struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// SiteStart holds a per-storefront start date.
type SiteStart struct {
	DateStart *string `json:"dateStart"`
}

// AppleMusic holds Apple Music storefront options.
type AppleMusic struct {
	DateStart         *string `json:"dateStart"`
	AllowedAppleMusic bool    `json:"allowedAppleMusic"`
}

// ITunes holds iTunes storefront options.
type ITunes struct {
	AllowedITunes                      bool     `json:"allowedITunes"`
	DisablePreview                     bool     `json:"disablePreview"`
	DateStart                          *string  `json:"dateStart"`
	PriceCategoryRelease               Price    `json:"priceCategoryRelease"`
	PriceCategoryTrack                 Price    `json:"priceCategoryTrack"`
	MinimalPriceCategoryTrackAllowed   bool     `json:"minimalPriceCategoryTrackAllowed"`
	MinimalPriceCategoryTrack          Price    `json:"minimalPriceCategoryTrack"`
	MinimalPriceCategoryTrackCountries []string `json:"minimalPriceCategoryTrackCountries"`
}

// SitesParameters groups storefront-specific settings.
type SitesParameters struct {
	AppleMusic AppleMusic `json:"appleMusic"`
	VKMusic    SiteStart  `json:"vkMusic"`
	Spotify    SiteStart  `json:"spotify"`
	TikTok     SiteStart  `json:"tiktok"`
	YouTube    SiteStart  `json:"youTube"`
	ITunes     ITunes     `json:"itunes"`
}

// Release is the document stored in the releases table.
type Release struct {
	Name                 string          `json:"name"`
	Status               string          `json:"status"`
	Subtitle             string          `json:"subtitle"`
	LangMeta             string          `json:"langMeta"`
	ReleaseType          string          `json:"releaseType"`
	ReleaseKind          string          `json:"releaseKind,omitempty"`
	Tracks               []Track         `json:"tracks"`
	Cover                Asset           `json:"cover"`
	PersonsAndRoles      []ReleasePerson `json:"personsAndRoles"`
	Genre                string          `json:"genre"`
	Subgenre             string          `json:"subgenre"`
	Code                 string          `json:"code"`
	Label                string          `json:"label"`
	PartnerCode          string          `json:"partnerCode"`
	DateFirstPublication *string         `json:"dateFirstPublication"`
	DateStartSites       *string         `json:"dateStartSites"`
	DatePreorder         *string         `json:"datePreorder"`
	DateCopyright        *string         `json:"dateCopyright"`
	Description          string          `json:"description"`
	Booklet              Asset           `json:"booklet"`
	Video                Asset           `json:"video"`
	VideoCover           Asset           `json:"videoCover"`
	VideoPlatforms       []string        `json:"videoPlatforms"`
	AudioPlatforms       []string        `json:"audioPlatforms"`
	Regions              []string        `json:"regions"`
	SitesParameters      SitesParameters `json:"sitesParameters"`
	MessageToModerator   string          `json:"messageToModerator"`
	MessageFromModerator string          `json:"messageFromModerator"`
	IsVariousArtists     bool            `json:"isVariousArtists"`
	ApplyForPromo        bool            `json:"applyForPromo"`
}

const (
	StatusNew = "new"

	TypeAlbum  = "album"
	TypeSingle = "single"
	KindMaxi   = "single-maxi"

	RolePerformer = "performer"
	RoleFeat      = "feat."
	RoleComposer  = "music-author"
	RoleLyricist  = "lyricist"

	LanguageNoWords = "no-words"
)

// NewRelease returns a release document carrying the table defaults.
func NewRelease() Release {
	return Release{
		Status:          StatusNew,
		Tracks:          []Track{},
		PersonsAndRoles: []ReleasePerson{},
		VideoPlatforms:  []string{},
		AudioPlatforms:  []string{},
		Regions:         []string{},
		SitesParameters: SitesParameters{
			ITunes: ITunes{MinimalPriceCategoryTrackCountries: []string{}},
		},
	}
}

func newTrack() Track {
	return Track{
		Name:            "unknown",
		RelatedRights:   100,
		TrackVersion:    []string{},
		TiktokStartAt:   "00:00.001",
		PersonsAndRoles: []TrackPerson{},
	}
}
