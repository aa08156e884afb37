package lendkit

// AccessPolicyEvaluator decides feature access from a RoleSnapshot.
// It never touches the store: callers capture the snapshot once per session
// and every check during that session evaluates against it.
type AccessPolicyEvaluator struct {
	policy *Policy
}

// NewAccessPolicyEvaluator creates an evaluator over a policy.
// A nil policy means DefaultPolicy.
func NewAccessPolicyEvaluator(policy *Policy) *AccessPolicyEvaluator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &AccessPolicyEvaluator{policy: policy}
}

// Policy returns the capability table in use.
func (e *AccessPolicyEvaluator) Policy() *Policy {
	return e.policy
}

// CanAccessFeature checks whether the snapshot grants a feature.
//
// Library-scoped grants apply when libraryID is one of the snapshot's
// libraries. An empty libraryID asks whether the feature is granted in any
// assigned library.
//
// Example:
//
//	if evaluator.CanAccessFeature(snapshot, lendkit.FeatureInventoryAdd, libraryID) {
//	    // show the add-book form for this library
//	}
func (e *AccessPolicyEvaluator) CanAccessFeature(snapshot RoleSnapshot, feature, libraryID string) bool {
	if !snapshot.Role.Valid() || feature == "" {
		return false
	}

	global, scoped := e.policy.Grants(snapshot.Role)
	if MatchAnyFeature(global, feature) {
		return true
	}
	if !MatchAnyFeature(scoped, feature) {
		return false
	}
	if libraryID == "" {
		return len(snapshot.LibraryIDs) > 0
	}
	return snapshot.HasLibrary(libraryID)
}

// CanAccessAny checks whether the snapshot grants at least one of the features.
func (e *AccessPolicyEvaluator) CanAccessAny(snapshot RoleSnapshot, features []string, libraryID string) bool {
	for _, f := range features {
		if e.CanAccessFeature(snapshot, f, libraryID) {
			return true
		}
	}
	return false
}

// CanAccessAll checks whether the snapshot grants every feature.
func (e *AccessPolicyEvaluator) CanAccessAll(snapshot RoleSnapshot, features []string, libraryID string) bool {
	for _, f := range features {
		if !e.CanAccessFeature(snapshot, f, libraryID) {
			return false
		}
	}
	return true
}

// CanAssignRoleTo checks whether the snapshot may change the role of target.
// Nobody may change their own role.
func (e *AccessPolicyEvaluator) CanAssignRoleTo(snapshot RoleSnapshot, targetID string) bool {
	if targetID == "" || targetID == snapshot.UserID {
		return false
	}
	return e.CanAccessFeature(snapshot, FeatureRolesAssign, "")
}

// Features returns the features the snapshot grants in at least one library, sorted.
//
// Example:
//
//	features := evaluator.Features(snapshot)
//	// a librarian with assignments might get
//	// ["borrowing.borrow", "borrowing.history", "borrowing.return", "catalog.browse",
//	//  "inventory.add", "inventory.edit", "inventory.remove", "records.view"]
func (e *AccessPolicyEvaluator) Features(snapshot RoleSnapshot) []string {
	out := []string{}
	for _, f := range e.policy.Features() {
		if e.CanAccessFeature(snapshot, f, "") {
			out = append(out, f)
		}
	}
	return out
}

// Libraries returns the libraries in which the snapshot grants a library-scoped
// feature. It returns nil when the feature is granted everywhere or nowhere.
func (e *AccessPolicyEvaluator) Libraries(snapshot RoleSnapshot, feature string) []string {
	if !snapshot.Role.Valid() {
		return nil
	}
	global, scoped := e.policy.Grants(snapshot.Role)
	if MatchAnyFeature(global, feature) || !MatchAnyFeature(scoped, feature) {
		return nil
	}
	out := make([]string, len(snapshot.LibraryIDs))
	copy(out, snapshot.LibraryIDs)
	return out
}
