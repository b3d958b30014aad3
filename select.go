package sasl

import (
	"strings"
)

// SelectClient picks the best mutually supported mechanism: the
// highest-priority constructed client whose name appears in the peer's
// advertised list. Matching is exact and case-sensitive. It returns
// ErrUnsupportedMechanism when the two sets do not intersect; retrying with
// another mechanism after a failed exchange is the caller's call, nothing is
// reattempted here.
func SelectClient(offered []string, available []Client) (Client, error) {
	for _, name := range Priority {
		for _, c := range available {
			if c.Name() != name {
				continue
			}
			for _, o := range offered {
				if o == name {
					return c, nil
				}
			}
		}
	}
	return nil, &Error{
		Kind:    KindUnsupportedMechanism,
		Message: "no mutually supported mechanism in [" + strings.Join(offered, " ") + "]",
	}
}
