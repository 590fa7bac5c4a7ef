package ingestion

// Institutions export certificates from many registrar systems, so one
// logical column arrives under many names. Alias lists are ordered: the
// first header carrying a non-empty value wins, independently per field.
var (
	rollAliases        = []string{"Roll Number", "rollNumber", "roll_number", "certificateId", "ID", "id"}
	nameAliases        = []string{"studentName", "Name", "name", "student_name"}
	courseAliases      = []string{"courseName", "Course", "course", "course_name"}
	gradeAliases       = []string{"grade", "CGPA", "Marks", "marks", "Percentage", "percentage", "GPA"}
	issuedAliases      = []string{"issueDate", "Issued Year", "issued_year", "Year", "year"}
	institutionAliases = []string{"institutionName", "Institution", "institution"}
)

// mapField resolves one logical field from a header-keyed row. Values are
// already trimmed; empty means absent.
func mapField(row map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := row[alias]; v != "" {
			return v
		}
	}
	return ""
}
