package engine

import "strings"

// Department is the closed set of directory groupings.
// Unknown values received from the server are kept verbatim and never match a specific filter.
type Department string

const (
	DeptAll        Department = "all"
	DeptAndroid    Department = "android"
	DeptIOS        Department = "ios"
	DeptDesign     Department = "design"
	DeptManagement Department = "management"
	DeptQA         Department = "qa"
	DeptBackOffice Department = "back_office"
	DeptFrontend   Department = "frontend"
	DeptHR         Department = "hr"
	DeptPR         Department = "pr"
	DeptBackend    Department = "backend"
	DeptSupport    Department = "support"
	DeptAnalytics  Department = "analytics"
)

// Departments lists every department in display order, starting with the "all" wildcard.
var Departments = []Department{
	DeptAll,
	DeptAndroid,
	DeptDesign,
	DeptAnalytics,
	DeptBackend,
	DeptBackOffice,
	DeptFrontend,
	DeptHR,
	DeptIOS,
	DeptManagement,
	DeptPR,
	DeptQA,
	DeptSupport,
}

// DepartmentNames holds the English display names, used when no translation is available.
var DepartmentNames = map[Department]string{
	DeptAll:        "All",
	DeptAndroid:    "Android",
	DeptDesign:     "Design",
	DeptAnalytics:  "Analytics",
	DeptBackend:    "Backend",
	DeptBackOffice: "Back Office",
	DeptFrontend:   "Frontend",
	DeptHR:         "HR",
	DeptIOS:        "iOS",
	DeptManagement: "Management",
	DeptPR:         "PR",
	DeptQA:         "QA",
	DeptSupport:    "Support",
}

// ParseDepartment maps a label (case-insensitive) to a known Department.
func ParseDepartment(s string) (Department, bool) {
	d := Department(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	_, ok := DepartmentNames[d]
	return d, ok
}

// Person is one directory entry. JSON tags follow the remote record shape.
type Person struct {
	ID         string     `json:"id" validate:"required"`
	AvatarURL  string     `json:"avatarUrl"`
	FirstName  string     `json:"firstName" validate:"required"`
	LastName   string     `json:"lastName"`
	UserTag    string     `json:"userTag"`
	Department Department `json:"department"`
	Position   string     `json:"position"`
	Birthday   string     `json:"birthday" validate:"required,datetime=2006-01-02"`
	Phone      string     `json:"phone"`
}

// FullName is the "first last" key used for alphabetical order and search.
func (p Person) FullName() string {
	return p.FirstName + " " + p.LastName
}
