package model

// Resource identifies one of the backend resources a user can query.
type Resource string

const (
	ResourceUsers            Resource = "users"
	ResourceCourses          Resource = "courses"
	ResourceCourseAssignment Resource = "course_assignment"
)

// ResourceInfo pairs the URL path segment of a resource with its UI label.
type ResourceInfo struct {
	Path  string `json:"path" yaml:"path"`
	Label string `json:"label" yaml:"label"`
}

// Resources is the fixed lookup table from selector to endpoint.
var Resources = map[Resource]ResourceInfo{
	ResourceUsers:            {Path: "users", Label: "Users"},
	ResourceCourses:          {Path: "courses", Label: "Courses"},
	ResourceCourseAssignment: {Path: "course_assignment", Label: "Course Assignment"},
}

// ResourceOrder is the order selectors are offered in.
var ResourceOrder = []Resource{
	ResourceUsers,
	ResourceCourses,
	ResourceCourseAssignment,
}

func (r Resource) Known() bool {
	_, ok := Resources[r]
	return ok
}

func (r Resource) Label() string {
	if info, ok := Resources[r]; ok {
		return info.Label
	}
	return string(r)
}
