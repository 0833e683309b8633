// Package roster reconciles a class roster against an external classroom
// roster, partitioning both sides into matched, internal-only and
// external-only students.
package roster

import "strings"

// MatchType records how a pair was linked.
type MatchType string

const (
	MatchEmail MatchType = "email"
	MatchName  MatchType = "name"
)

// InternalStudent is a student enrolled in the class.
type InternalStudent struct {
	StudentID  int64  `json:"student_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
}

// Name renders "First Last".
func (s InternalStudent) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// ExternalStudent is a member of the external classroom course. GivenName and
// FamilyName are optional; FullName is used when they are missing.
type ExternalStudent struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// Name renders the best display name available.
func (s ExternalStudent) Name() string {
	if s.FullName != "" {
		return s.FullName
	}
	return strings.TrimSpace(s.GivenName + " " + s.FamilyName)
}

// Match links one internal student to one external student.
type Match struct {
	StudentID      int64     `json:"student_id"`
	ExternalUserID string    `json:"external_user_id"`
	Email          string    `json:"email"`
	InternalName   string    `json:"internal_name"`
	ExternalName   string    `json:"external_name"`
	MatchType      MatchType `json:"match_type"`
}

// Result partitions both rosters. Every internal student appears exactly once
// across Matched and InternalOnly; every external student exactly once across
// Matched and ExternalOnly.
type Result struct {
	Matched      []Match           `json:"matched"`
	InternalOnly []InternalStudent `json:"db_only"`
	ExternalOnly []ExternalStudent `json:"gc_only"`
}

// TotalMatched is len(Matched).
func (r Result) TotalMatched() int { return len(r.Matched) }

// TotalInternalOnly is len(InternalOnly).
func (r Result) TotalInternalOnly() int { return len(r.InternalOnly) }

// TotalExternalOnly is len(ExternalOnly).
func (r Result) TotalExternalOnly() int { return len(r.ExternalOnly) }

// MatchedByStudent indexes the matches by internal student id.
func (r Result) MatchedByStudent() map[int64]Match {
	out := make(map[int64]Match, len(r.Matched))
	for _, m := range r.Matched {
		out[m.StudentID] = m
	}
	return out
}

// Reconcile matches the rosters. Emails are compared case-insensitively for
// every internal student before any name comparison runs, so an email pair is
// never pre-empted by a name pair. Unmatched students then fall back to a
// normalized first+last name comparison; ties go to the earliest unclaimed
// external student. Output order follows the input rosters.
func Reconcile(internal []InternalStudent, external []ExternalStudent) Result {
	claimed := make([]bool, len(external))
	matchedAt := make([]int, len(internal))
	for i := range matchedAt {
		matchedAt[i] = -1
	}
	types := make([]MatchType, len(internal))

	byEmail := make(map[string]int, len(external))
	for j, ext := range external {
		key := normalizeEmail(ext.Email)
		if key == "" {
			continue
		}
		if _, exists := byEmail[key]; !exists {
			byEmail[key] = j
		}
	}

	for i, student := range internal {
		key := normalizeEmail(student.Email)
		if key == "" {
			continue
		}
		if j, ok := byEmail[key]; ok && !claimed[j] {
			claimed[j] = true
			matchedAt[i] = j
			types[i] = MatchEmail
		}
	}

	byName := make(map[string][]int, len(external))
	for j, ext := range external {
		if claimed[j] {
			continue
		}
		if key := externalNameKey(ext); key != "" {
			byName[key] = append(byName[key], j)
		}
	}

	for i, student := range internal {
		if matchedAt[i] >= 0 {
			continue
		}
		j := firstUnclaimed(byName, claimed, internalNameKeys(student))
		if j < 0 {
			continue
		}
		claimed[j] = true
		matchedAt[i] = j
		types[i] = MatchName
	}

	result := Result{
		Matched:      make([]Match, 0, len(internal)),
		InternalOnly: make([]InternalStudent, 0),
		ExternalOnly: make([]ExternalStudent, 0),
	}
	for i, student := range internal {
		j := matchedAt[i]
		if j < 0 {
			result.InternalOnly = append(result.InternalOnly, student)
			continue
		}
		email := student.Email
		if email == "" {
			email = external[j].Email
		}
		result.Matched = append(result.Matched, Match{
			StudentID:      student.StudentID,
			ExternalUserID: external[j].UserID,
			Email:          email,
			InternalName:   student.Name(),
			ExternalName:   external[j].Name(),
			MatchType:      types[i],
		})
	}
	for j, ext := range external {
		if !claimed[j] {
			result.ExternalOnly = append(result.ExternalOnly, ext)
		}
	}
	return result
}

func firstUnclaimed(index map[string][]int, claimed []bool, keys []string) int {
	best := -1
	for _, key := range keys {
		for _, j := range index[key] {
			if claimed[j] {
				continue
			}
			if best < 0 || j < best {
				best = j
			}
			break
		}
	}
	return best
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(parts ...string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.Join(parts, " "))), " ")
}

// internalNameKeys yields "first last" and, when a middle name exists,
// "first middle last" so an external full name that spells it out still
// matches.
func internalNameKeys(s InternalStudent) []string {
	base := normalizeName(s.FirstName, s.LastName)
	if base == "" || normalizeName(s.FirstName) == "" || normalizeName(s.LastName) == "" {
		return nil
	}
	keys := []string{base}
	if middle := normalizeName(s.MiddleName); middle != "" {
		keys = append(keys, normalizeName(s.FirstName, s.MiddleName, s.LastName))
	}
	return keys
}

func externalNameKey(s ExternalStudent) string {
	if normalizeName(s.GivenName) != "" && normalizeName(s.FamilyName) != "" {
		return normalizeName(s.GivenName, s.FamilyName)
	}
	return normalizeName(s.FullName)
}
