package holds

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Start, Classify("12"))
	assert.Equal(t, Hand, Classify("13"))
	assert.Equal(t, Finish, Classify("14"))
	assert.Equal(t, Foot, Classify("15"))
	assert.Equal(t, Start, Classify("42"))
	assert.Equal(t, Unknown, Classify("99"))
	assert.Equal(t, Unknown, Classify(""))
	assert.Equal(t, Unknown, Classify("1"))
}

func TestClassify_Partitions(t *testing.T) {
	t.Parallel()

	want := map[Role][]string{
		Start:  {"12", "20", "24", "28", "32", "39", "42"},
		Hand:   {"13", "21", "25", "29", "33", "36", "37", "41", "43"},
		Finish: {"14", "22", "26", "30", "34", "44"},
		Foot:   {"15", "23", "27", "31", "35", "45"},
	}
	for role, codes := range want {
		assert.Equal(t, codes, Codes(role), role.String())
		for _, code := range codes {
			assert.Equal(t, role, Classify(code), "code %s", code)
		}
	}
}

// Every two-digit code maps to at most one role, and the known codes are
// exactly the union of the four partitions.
func TestClassify_TotalAndExclusive(t *testing.T) {
	t.Parallel()

	seen := map[string]Role{}
	for _, role := range Roles {
		for _, code := range Codes(role) {
			_, dup := seen[code]
			assert.False(t, dup, "code %s in more than one role", code)
			seen[code] = role
		}
	}

	for i := 0; i < 100; i++ {
		code := fmt.Sprintf("%02d", i)
		role := Classify(code)
		if want, ok := seen[code]; ok {
			assert.Equal(t, want, role, code)
		} else {
			assert.Equal(t, Unknown, role, code)
		}
	}
}

func TestRole_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "start", Start.String())
	assert.Equal(t, "finish", Finish.String())
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "TOP", Finish.Label())
	assert.Equal(t, "FOOT", Foot.Label())
}
