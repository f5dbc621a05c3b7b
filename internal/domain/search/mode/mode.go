package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Vector embeds the query and ranks nearest neighbours by cosine similarity.
	Vector Mode = "vector"
	// Text matches the query literally against enrichment fields.
	Text Mode = "text"
	// Source matches the query literally against verified source code.
	Source Mode = "source"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Vector || m == Text || m == Source
}

// Scored reports whether results of this mode carry a similarity score.
func (m Mode) Scored() bool { return m == Vector }
