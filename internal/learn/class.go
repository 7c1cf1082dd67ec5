// Package learn trains a small feed-forward classifier on user-labeled
// histogram features and predicts ripeness classes.
package learn

import (
	"fmt"
	"strings"
)

// Class is a ripeness class index. The order is fixed: it is the output
// layer's column order.
type Class int

const (
	Unripe Class = iota
	Ripe
	Overripe
)

// NumClasses is the size of the output layer.
const NumClasses = 3

var classNames = [NumClasses]string{"unripe", "ripe", "overripe"}

// Classes returns every class in output order.
func Classes() []Class {
	return []Class{Unripe, Ripe, Overripe}
}

// Valid reports whether c is one of the fixed classes.
func (c Class) Valid() bool {
	return c >= 0 && int(c) < NumClasses
}

func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

// ParseClass parses a class name, ignoring case and surrounding space.
func ParseClass(s string) (Class, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range classNames {
		if n == name {
			return Class(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClass, s)
}

func (c Class) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownClass, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
