package version

import (
	"fmt"
	"strconv"
	"strings"
)

// maxScratch bounds how much of the input is considered.
const maxScratch = 63

// Version is a four-component version value. It is a plain value type.
type Version struct {
	Major uint16
	Minor uint16
	Patch uint16
	Build uint16
}

// Parse reads a version from text. At least major.minor.patch must be
// present; Build defaults to 0 when omitted. Parse reports false when fewer
// than three components are found or a component does not fit in 16 bits.
func Parse(text string) (Version, bool) {
	// ASCII whitespace only.
	text = strings.TrimLeft(text, " \t\n\v\f\r")

	var scratch [maxScratch]byte
	n := 0
	for i := 0; i < len(text) && n < len(scratch); i++ {
		c := text[i]
		if !isDigit(c) && c != '.' {
			break
		}
		scratch[n] = c
		n++
	}

	var parts [4]uint16
	parsed := 0
	buf := scratch[:n]
	for parsed < len(parts) {
		end := 0
		for end < len(buf) && isDigit(buf[end]) {
			end++
		}
		if end == 0 {
			break
		}
		v, err := strconv.ParseUint(string(buf[:end]), 10, 16)
		if err != nil {
			return Version{}, false
		}
		parts[parsed] = uint16(v)
		parsed++
		buf = buf[end:]
		if len(buf) == 0 || buf[0] != '.' {
			break
		}
		buf = buf[1:]
	}
	if parsed < 3 {
		return Version{}, false
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2], Build: parts[3]}, true
}

// MustParse is like Parse but panics when text is not a version.
func MustParse(text string) Version {
	v, ok := Parse(text)
	if !ok {
		panic(fmt.Sprintf("version: cannot parse %q", text))
	}
	return v
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// String renders all four components as major.minor.patch.build.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// Compare orders a and b by major, minor, patch and build. It returns the
// difference of the first differing component, or 0 when all are equal.
func Compare(a, b Version) int {
	if a.Major != b.Major {
		return int(a.Major) - int(b.Major)
	}
	if a.Minor != b.Minor {
		return int(a.Minor) - int(b.Minor)
	}
	if a.Patch != b.Patch {
		return int(a.Patch) - int(b.Patch)
	}
	return int(a.Build) - int(b.Build)
}

// Compare is shorthand for Compare(v, o).
func (v Version) Compare(o Version) int { return Compare(v, o) }

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// AtLeast reports whether v is equal to or newer than floor.
func (v Version) AtLeast(floor Version) bool { return Compare(v, floor) >= 0 }

// CompareStrings parses a and b and compares them.
func CompareStrings(a, b string) (int, error) {
	va, ok := Parse(a)
	if !ok {
		return 0, fmt.Errorf("version: cannot parse %q", a)
	}
	vb, ok := Parse(b)
	if !ok {
		return 0, fmt.Errorf("version: cannot parse %q", b)
	}
	return Compare(va, vb), nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("version: cannot parse %q", string(text))
	}
	*v = parsed
	return nil
}
