package dto

// AddCourseRequest selects a course for the authenticated student.
type AddCourseRequest struct {
	CourseID         string `json:"course_id" validate:"required,max=32"`
	RegistrationType string `json:"registration_type" validate:"omitempty,max=32"`
}

// UpdateRegistrationTypeRequest changes the type of an existing selection.
type UpdateRegistrationTypeRequest struct {
	RegistrationType string `json:"registration_type" validate:"required,max=32"`
}

// SetDeadlineRequest moves a student's submission deadline. Deadline accepts
// RFC 3339 or a zone-less ISO-8601 timestamp read as UTC.
type SetDeadlineRequest struct {
	Deadline string `json:"deadline" validate:"required"`
}

// SlipRequest selects the slip rendering.
type SlipRequest struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// CatalogQuery carries catalog filters from the query string.
type CatalogQuery struct {
	Category string `form:"category" validate:"omitempty,oneof='Departmental Core' Elective 'Liberal Arts'"`
	Semester int    `form:"semester" validate:"omitempty,min=1,max=12"`
	Credits  int    `form:"credits" validate:"omitempty,min=1,max=30"`
	Search   string `form:"q" validate:"omitempty,max=64"`
}
