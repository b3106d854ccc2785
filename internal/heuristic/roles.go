package heuristic

import (
	"strings"

	"intentrouter/internal/domain"
)

// Role is a user role with a known category affinity.
type Role int

const (
	Admin Role = iota
	Teacher
	Analyst

	numRoles = 3
)

var roleNames = [numRoles]string{
	Admin:   "admin",
	Teacher: "teacher",
	Analyst: "analyst",
}

// coefficients holds each role's affinity for each category, in [0,1].
var coefficients = [numRoles]domain.Scores{
	Admin: {
		domain.SystemConfiguration: 1.00,
		domain.DataAnalysis:        0.60,
		domain.QuizCreation:        0.20,
	},
	Teacher: {
		domain.SystemConfiguration: 0.10,
		domain.DataAnalysis:        0.50,
		domain.QuizCreation:        1.00,
	},
	Analyst: {
		domain.SystemConfiguration: 0.20,
		domain.DataAnalysis:        1.00,
	},
}

// ParseRole matches a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range roleNames {
		if name == s {
			return Role(i), true
		}
	}
	return 0, false
}

func (r Role) String() string {
	if r < 0 || int(r) >= numRoles {
		return "unknown"
	}
	return roleNames[r]
}

// Coefficients returns the role's category affinities.
func (r Role) Coefficients() domain.Scores { return coefficients[r] }

// Roles lists the known role names.
func Roles() []string {
	return append([]string(nil), roleNames[:]...)
}
