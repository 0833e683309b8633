package models

// GradebookTab is the active period tab of the gradebook view.
type GradebookTab string

const (
	TabMidterm GradebookTab = "midterm"
	TabFinal   GradebookTab = "final"
	TabSummary GradebookTab = "summary"
)

// GradebookViewMode toggles between the full table and the condensed view.
type GradebookViewMode string

const (
	ViewModeTable   GradebookViewMode = "table"
	ViewModeCompact GradebookViewMode = "compact"
)

// GradebookPreferences is the per user, per class layout of the gradebook.
type GradebookPreferences struct {
	ActiveTab         GradebookTab      `json:"activeTab"`
	ViewMode          GradebookViewMode `json:"viewMode"`
	SearchTerm        string            `json:"searchTerm"`
	VisibleComponents []int64           `json:"visibleComponents"`
	ComponentOrder    []int64           `json:"componentOrder"`
}

// ProfileVisibility controls whether classmates may see a student profile.
type ProfileVisibility string

const (
	VisibilityPublic  ProfileVisibility = "public"
	VisibilityPrivate ProfileVisibility = "private"
)

// PrivacySettings is stored as JSON on the student row.
type PrivacySettings struct {
	ProfileVisibility ProfileVisibility `json:"profileVisibility"`
}
