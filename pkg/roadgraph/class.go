package roadgraph

import "fmt"

// Class is the hierarchy level of a road. Lower values rank higher.
type Class int

const (
	// Highway roads are injected from polyline fields and never traced.
	Highway Class = iota
	// Major roads follow the major eigenvector.
	Major
	// Minor roads follow the minor eigenvector.
	Minor
	// Alley is a minor streamline shorter than the alley length.
	Alley
)

var classNames = [...]string{"highway", "major", "minor", "alley"}

// String returns the lowercase class name used in configuration and
// GeoJSON properties.
func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Outranks reports whether c is a higher road class than o.
func (c Class) Outranks(o Class) bool { return c < o }

// ParseClass converts a class name.
func ParseClass(s string) (Class, error) {
	for i, name := range classNames {
		if s == name {
			return Class(i), nil
		}
	}
	return 0, fmt.Errorf("unknown road class %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(b []byte) error {
	v, err := ParseClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
