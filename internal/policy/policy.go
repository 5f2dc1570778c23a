// Package policy holds the ownership-authorization rules applied uniformly to
// users acting on users and users acting on items. Decisions are pure
// functions of the requester and the resource owner; no state is consulted.
package policy

import "errors"

// ErrForbidden indicates an authenticated requester is not permitted to act
// on the resource.
var ErrForbidden = errors.New("policy: forbidden")

// CanActOn allows the operation when the requester owns the resource or holds
// the superuser flag.
func CanActOn(requesterID int64, requesterIsSuperuser bool, ownerID int64) error {
	if requesterID == ownerID {
		return nil
	}
	if requesterIsSuperuser {
		return nil
	}
	return ErrForbidden
}

// RequireSuperuser allows the operation only for superusers.
func RequireSuperuser(requesterIsSuperuser bool) error {
	if requesterIsSuperuser {
		return nil
	}
	return ErrForbidden
}
