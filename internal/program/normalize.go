package program

import "github.com/garyellow/program-lookup/internal/dataset"

// Default values for fields the dataset does not carry.
const (
	DefaultUniversityName = "University of Toronto"
	DefaultLocation       = "Ontario"
)

// Source column names as authored in the spreadsheet header row.
const (
	ColumnCourseCode    = "course code"
	ColumnProgramName   = "full course name"
	ColumnDegreeName    = "degree Name"
	ColumnDescription   = "program description"
	ColumnAreaOfStudy   = "area of study"
	ColumnPrerequisites = "pre requisite"
	ColumnWebsiteLink   = "website link to the course"
)

// NormalizedProgram is the lookup response shape. Every field is always
// present in the JSON output.
type NormalizedProgram struct {
	CourseCode     string `json:"courseCode"`
	ProgramName    string `json:"programName"`
	DegreeName     string `json:"degreeName"`
	Description    string `json:"description"`
	AreaOfStudy    string `json:"areaOfStudy"`
	Prerequisites  string `json:"prerequisites"`
	WebsiteLink    string `json:"websiteLink"`
	UniversityName string `json:"universityName"`
	FacultyName    string `json:"facultyName"`
	Location       string `json:"location"`
}

// Accessor extracts a candidate value for a field. ok is false when the
// record has nothing usable for it.
type Accessor func(r dataset.Record) (value string, ok bool)

// Column reads a single column. Empty values count as absent.
func Column(name string) Accessor {
	return func(r dataset.Record) (string, bool) {
		v, ok := r.Get(name)
		return v, ok && v != ""
	}
}

// Constant always yields value.
func Constant(value string) Accessor {
	return func(dataset.Record) (string, bool) {
		return value, true
	}
}

// FieldRule binds one output field to its accessors in priority order.
type FieldRule struct {
	Field     string
	Accessors []Accessor
	set       func(p *NormalizedProgram, v string)
}

// Resolve returns the first value produced by the accessors, or "".
func (f FieldRule) Resolve(r dataset.Record) string {
	for _, get := range f.Accessors {
		if v, ok := get(r); ok {
			return v
		}
	}
	return ""
}

// Rules lists the field mapping: raw spreadsheet column first, then the
// camel-cased alias, then the default.
var Rules = []FieldRule{
	{
		Field:     "courseCode",
		Accessors: []Accessor{Column(ColumnCourseCode)},
		set:       func(p *NormalizedProgram, v string) { p.CourseCode = v },
	},
	{
		Field:     "programName",
		Accessors: []Accessor{Column(ColumnProgramName), Column("programName")},
		set:       func(p *NormalizedProgram, v string) { p.ProgramName = v },
	},
	{
		Field:     "degreeName",
		Accessors: []Accessor{Column(ColumnDegreeName), Column("degreeName")},
		set:       func(p *NormalizedProgram, v string) { p.DegreeName = v },
	},
	{
		Field:     "description",
		Accessors: []Accessor{Column(ColumnDescription), Column("description")},
		set:       func(p *NormalizedProgram, v string) { p.Description = v },
	},
	{
		Field:     "areaOfStudy",
		Accessors: []Accessor{Column(ColumnAreaOfStudy), Column("areaOfStudy")},
		set:       func(p *NormalizedProgram, v string) { p.AreaOfStudy = v },
	},
	{
		Field:     "prerequisites",
		Accessors: []Accessor{Column(ColumnPrerequisites), Column("prerequisites")},
		set:       func(p *NormalizedProgram, v string) { p.Prerequisites = v },
	},
	{
		Field:     "websiteLink",
		Accessors: []Accessor{Column(ColumnWebsiteLink), Column("websiteLink")},
		set:       func(p *NormalizedProgram, v string) { p.WebsiteLink = v },
	},
	{
		Field:     "universityName",
		Accessors: []Accessor{Column("universityName"), Constant(DefaultUniversityName)},
		set:       func(p *NormalizedProgram, v string) { p.UniversityName = v },
	},
	{
		Field:     "facultyName",
		Accessors: []Accessor{Column("facultyName")},
		set:       func(p *NormalizedProgram, v string) { p.FacultyName = v },
	},
	{
		Field:     "location",
		Accessors: []Accessor{Column("location"), Constant(DefaultLocation)},
		set:       func(p *NormalizedProgram, v string) { p.Location = v },
	},
}

// Normalize maps a dataset record onto NormalizedProgram using Rules.
func Normalize(r dataset.Record) NormalizedProgram {
	var p NormalizedProgram
	for _, rule := range Rules {
		rule.set(&p, rule.Resolve(r))
	}
	return p
}
