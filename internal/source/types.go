package source

// Wire types for the external notice catalog. Every field is optional-tolerant:
// the upstream omits fields freely and downstream code must consume typed
// zero values instead of poking at raw maps.

// Link is one href entry in a HAL-style _links object.
type Link struct {
	Href string `json:"href"`
}

// NoticeLinks carries the per-notice resource links the pipeline follows.
type NoticeLinks struct {
	Self      Link `json:"self"`
	Images    Link `json:"images"`
	Thumbnail Link `json:"thumbnail"`
}

// Notice is one catalog entry from a search page.
type Notice struct {
	EntityID      string      `json:"entity_id"`
	Name          string      `json:"name"`
	Forename      string      `json:"forename"`
	DateOfBirth   string      `json:"date_of_birth"`
	Nationalities []string    `json:"nationalities"`
	Links         NoticeLinks `json:"_links"`
}

// Page is the search response envelope.
type Page struct {
	Total    int `json:"total"`
	Embedded struct {
		Notices []Notice `json:"notices"`
	} `json:"_embedded"`
}

// Warrant is one legal-charge entry in a detail document.
type Warrant struct {
	IssuingCountry string `json:"issuing_country_id"`
	Charge         string `json:"charge"`
}

// Detail is the secondary per-notice resource with physical and legal data.
type Detail struct {
	SexID          string    `json:"sex_id"`
	Height         *float64  `json:"height"`
	Weight         *float64  `json:"weight"`
	EyeColorIDs    []string  `json:"eyes_colors_id"`
	HairIDs        []string  `json:"hairs_id"`
	PlaceOfBirth   string    `json:"place_of_birth"`
	BirthCountryID string    `json:"country_of_birth_id"`
	LanguageIDs    []string  `json:"languages_spoken_ids"`
	Marks          string    `json:"distinguishing_marks"`
	Warrants       []Warrant `json:"arrest_warrants"`
	Links          struct {
		Images Link `json:"images"`
	} `json:"_links"`
}

// Image is one entry in a notice's image gallery.
type Image struct {
	PictureID int64 `json:"picture_id"`
	Links     struct {
		Self Link `json:"self"`
	} `json:"_links"`
}

// ImageList is the gallery envelope.
type ImageList struct {
	Embedded struct {
		Images []Image `json:"images"`
	} `json:"_embedded"`
}
