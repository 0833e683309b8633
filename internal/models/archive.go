package models

// ArchiveEntity names a table reachable through the archive endpoints.
type ArchiveEntity string

const (
	ArchiveStudents    ArchiveEntity = "students"
	ArchiveProfessors  ArchiveEntity = "professors"
	ArchiveCourses     ArchiveEntity = "courses"
	ArchiveDepartments ArchiveEntity = "departments"
	ArchiveSections    ArchiveEntity = "sections"
	ArchiveSubjects    ArchiveEntity = "subjects"
	ArchiveClasses     ArchiveEntity = "classes"
	ArchiveYearLevel   ArchiveEntity = "year_level"
	ArchiveSemester    ArchiveEntity = "semester"
)

// ArchiveAction is the requested lifecycle transition.
type ArchiveAction string

const (
	ActionArchive         ArchiveAction = "archive"
	ActionRestore         ArchiveAction = "restore"
	ActionPermanentDelete ArchiveAction = "permanent_delete"
)
