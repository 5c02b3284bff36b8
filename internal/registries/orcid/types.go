package orcid

// worksResponse is the top-level payload of the ORCID works endpoint. Works
// are grouped by preferred version; only the first summary of each group is
// consumed.
type worksResponse struct {
	Group []workGroup `json:"group"`
}

type workGroup struct {
	WorkSummary []workSummary `json:"work-summary"`
}

type workSummary struct {
	PutCode         int64            `json:"put-code"`
	Title           *titleContainer  `json:"title"`
	JournalTitle    *valueField      `json:"journal-title"`
	PublicationDate *publicationDate `json:"publication-date"`
	ExternalIDs     *externalIDs     `json:"external-ids"`
}

type titleContainer struct {
	Title *valueField `json:"title"`
}

type valueField struct {
	Value string `json:"value"`
}

type publicationDate struct {
	Year  *valueField `json:"year"`
	Month *valueField `json:"month"`
	Day   *valueField `json:"day"`
}

type externalIDs struct {
	ExternalID []externalID `json:"external-id"`
}

type externalID struct {
	Type  string `json:"external-id-type"`
	Value string `json:"external-id-value"`
}
