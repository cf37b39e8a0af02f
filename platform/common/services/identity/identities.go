/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

// Identities is a list of identities that can be treated as a set
type Identities []Identity

// Count returns the number of identities in the list
func (i Identities) Count() int {
	return len(i)
}

func (i Identities) Filter(f func(identity Identity) bool) Identities {
	res := Identities{}
	for _, identity := range i {
		if f(identity) {
			res = append(res, identity)
		}
	}
	return res
}

// Others returns the identities different from the passed one
func (i Identities) Others(me Identity) Identities {
	return i.Filter(func(identity Identity) bool { return !identity.Equal(me) })
}

// Contain returns true if the passed identity is in the list
func (i Identities) Contain(id Identity) bool {
	for _, identity := range i {
		if identity.Equal(id) {
			return true
		}
	}
	return false
}

// Set returns the list without duplicates, preserving the first occurrence order
func (i Identities) Set() Identities {
	res := make(Identities, 0, len(i))
	for _, identity := range i {
		if !res.Contain(identity) {
			res = append(res, identity)
		}
	}
	return res
}

// Union returns the set union of this list and the passed ones
func (i Identities) Union(others ...Identity) Identities {
	res := make(Identities, 0, len(i)+len(others))
	res = append(res, i...)
	res = append(res, others...)
	return res.Set()
}

// Match returns true if the passed identities and this list denote the same set,
// modulo position and repetitions.
func (i Identities) Match(ids []Identity) bool {
	a, b := i.Set(), Identities(ids).Set()
	if len(a) != len(b) {
		return false
	}
	for _, id := range b {
		if !a.Contain(id) {
			return false
		}
	}
	return true
}
