package holds

import "sort"

// Role is the functional purpose of a hold within one climb.
type Role int

const (
	Unknown Role = iota
	Start
	Hand
	Foot
	Finish
)

// Roles lists the classified roles in report order.
var Roles = []Role{Start, Hand, Foot, Finish}

func (r Role) String() string {
	switch r {
	case Start:
		return "start"
	case Hand:
		return "hand"
	case Foot:
		return "foot"
	case Finish:
		return "finish"
	default:
		return "unknown"
	}
}

// Label is the upper-case name used in chart titles.
func (r Role) Label() string {
	switch r {
	case Start:
		return "START"
	case Hand:
		return "HAND"
	case Foot:
		return "FOOT"
	case Finish:
		return "TOP"
	default:
		return "UNKNOWN"
	}
}

// roleCodes partitions the role codes seen in app data. Each product line of
// the app uses its own block of codes for the same four roles. 42 is a start
// code only; one historical code path also treated it as a finish, which
// double-counted those holds.
var roleCodes = map[string]Role{
	"12": Start, "20": Start, "24": Start, "28": Start, "32": Start, "39": Start, "42": Start,
	"13": Hand, "21": Hand, "25": Hand, "29": Hand, "33": Hand, "36": Hand, "37": Hand, "41": Hand, "43": Hand,
	"14": Finish, "22": Finish, "26": Finish, "30": Finish, "34": Finish, "44": Finish,
	"15": Foot, "23": Foot, "27": Foot, "31": Foot, "35": Foot, "45": Foot,
}

// Classify maps a two-character role code to its Role. Codes outside the
// known sets return Unknown.
func Classify(code string) Role {
	return roleCodes[code]
}

// Codes returns the role codes belonging to r in ascending order.
func Codes(r Role) []string {
	var out []string
	for code, role := range roleCodes {
		if role == r {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
