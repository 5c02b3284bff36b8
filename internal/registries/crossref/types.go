package crossref

// workResponse is the envelope Crossref wraps every works lookup in.
type workResponse struct {
	Message workMessage `json:"message"`
}

// workMessage captures the fields the pipeline needs from a Crossref work
// record. Crossref reports titles and container titles as arrays even for
// single values, and dates as nested date-parts arrays.
type workMessage struct {
	Title           []string   `json:"title"`
	Abstract        string     `json:"abstract"`
	Author          []author   `json:"author"`
	ContainerTitle  []string   `json:"container-title"`
	Published       *dateField `json:"published"`
	PublishedPrint  *dateField `json:"published-print"`
	PublishedOnline *dateField `json:"published-online"`
}

// author is a Crossref contributor entry. Personal authors carry given/family
// names; collaborations carry a single collective name instead.
type author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

// dateField holds Crossref's nested date representation: the outer array has
// one entry per date variant, the inner array is [year, month, day] with
// trailing elements optionally absent.
type dateField struct {
	DateParts [][]int `json:"date-parts"`
}
