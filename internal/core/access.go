package core

// Viewer identifies who is looking at the data. It replaces string role
// checks scattered through callers: either an admin seeing everything, or a
// regular user bound to their own records.
type Viewer struct {
	admin  bool
	userID string
}

// AdminViewer sees all records.
func AdminViewer() Viewer {
	return Viewer{admin: true}
}

// RegularViewer sees only records owned by userID.
func RegularViewer(userID string) Viewer {
	return Viewer{userID: userID}
}

// ViewerFor derives the viewer from a user account.
func ViewerFor(u User) Viewer {
	if u.Role == RoleAdmin {
		return AdminViewer()
	}
	return RegularViewer(u.ID)
}

func (v Viewer) Admin() bool    { return v.admin }
func (v Viewer) UserID() string { return v.userID }

// CanDelete reports whether the viewer may delete a record owned by ownerID.
func (v Viewer) CanDelete(ownerID string) bool {
	return v.admin || v.userID == ownerID
}

// FilterTrips applies the role visibility rule. It must run before any
// aggregation; the balance engine never sees records the viewer is not
// entitled to.
func FilterTrips(v Viewer, trips []TripRecord) []TripRecord {
	if v.admin {
		return trips
	}
	out := make([]TripRecord, 0, len(trips))
	for _, t := range trips {
		if t.UserID == v.userID {
			out = append(out, t)
		}
	}
	return out
}

// FilterRefuels applies the role visibility rule to refuels.
func FilterRefuels(v Viewer, refuels []RefuelRecord) []RefuelRecord {
	if v.admin {
		return refuels
	}
	out := make([]RefuelRecord, 0, len(refuels))
	for _, r := range refuels {
		if r.UserID == v.userID {
			out = append(out, r)
		}
	}
	return out
}
