package confluence

const (
	contentTypePage       = "page"
	representationStorage = "storage"
)

// Space identifies a Confluence space by key.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// Version is a content version.
type Version struct {
	Number    int  `json:"number"`
	MinorEdit bool `json:"minorEdit,omitempty"`
}

// Ancestor references a parent page.
type Ancestor struct {
	ID string `json:"id"`
}

// Storage holds a body in a given representation.
type Storage struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

// Body wraps the storage representation of page content.
type Body struct {
	Storage *Storage `json:"storage,omitempty"`
}

// Content is a page or attachment as returned by /rest/api/content.
type Content struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Status    string     `json:"status,omitempty"`
	Title     string     `json:"title"`
	Space     *Space     `json:"space,omitempty"`
	Version   *Version   `json:"version,omitempty"`
	Ancestors []Ancestor `json:"ancestors,omitempty"`
	Body      *Body      `json:"body,omitempty"`
}

// VersionNumber returns the current version, treating a missing one as 1.
func (c Content) VersionNumber() int {
	if c.Version == nil || c.Version.Number == 0 {
		return 1
	}
	return c.Version.Number
}

// HasAncestor reports whether id appears among the content's ancestors.
func (c Content) HasAncestor(id string) bool {
	for _, a := range c.Ancestors {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ContentList is a paged result from a content or child listing.
type ContentList struct {
	Results []Content `json:"results"`
	Start   int       `json:"start"`
	Limit   int       `json:"limit"`
	Size    int       `json:"size"`
}

// PageRequest describes a page to create or update.
type PageRequest struct {
	Title    string
	SpaceKey string
	// ParentID is only sent on create.
	ParentID string
	Storage  string
}

type pagePayload struct {
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Space     Space      `json:"space"`
	Ancestors []Ancestor `json:"ancestors,omitempty"`
	Version   *Version   `json:"version,omitempty"`
	Body      Body       `json:"body"`
}

func (r PageRequest) payload() pagePayload {
	return pagePayload{
		Type:  contentTypePage,
		Title: r.Title,
		Space: Space{Key: r.SpaceKey},
		Body: Body{Storage: &Storage{
			Value:          r.Storage,
			Representation: representationStorage,
		}},
	}
}
