package models

// Branch is the organizational unit (academic department) a profile,
// timetable slot, occupancy window or chat message belongs to.
type Branch string

const (
	BranchCSE   Branch = "CSE"
	BranchECE   Branch = "ECE"
	BranchIT    Branch = "IT"
	BranchMECH  Branch = "MECH"
	BranchCIVIL Branch = "CIVIL"
	BranchEEE   Branch = "EEE"
)

// AllBranches returns every known branch in display order.
func AllBranches() []Branch {
	return []Branch{BranchCSE, BranchECE, BranchIT, BranchMECH, BranchCIVIL, BranchEEE}
}

// Valid reports whether b is a known branch code.
func (b Branch) Valid() bool {
	for _, known := range AllBranches() {
		if b == known {
			return true
		}
	}
	return false
}
