package model

// RequestDescriptor is the fully resolved target of a single query.
// Resource is empty for raw queries.
type RequestDescriptor struct {
	Resource Resource `json:"resource,omitempty"`
	URL      string   `json:"url"`
}

func (d RequestDescriptor) IsRaw() bool {
	return d.Resource == ""
}
