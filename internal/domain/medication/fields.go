package medication

// FieldPatch carries a partial edit of the user-editable fields. Nil members
// are left untouched by the merge; the store never sees them.
type FieldPatch struct {
	Name        *string `json:"name,omitempty"`
	EnrolleeID  *string `json:"enrolleeId,omitempty"`
	Address     *string `json:"address,omitempty"`
	Diagnosis   *string `json:"diagnosis,omitempty"`
	Medications *string `json:"medications,omitempty"`
}

// IsZero reports whether the patch carries no edits.
func (p FieldPatch) IsZero() bool {
	return p.Name == nil && p.EnrolleeID == nil && p.Address == nil &&
		p.Diagnosis == nil && p.Medications == nil
}

// Fields returns the store-level field map for the populated members.
func (p FieldPatch) Fields() map[string]any {
	m := make(map[string]any)
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.EnrolleeID != nil {
		m["enrolleeId"] = *p.EnrolleeID
	}
	if p.Address != nil {
		m["address"] = *p.Address
	}
	if p.Diagnosis != nil {
		m["diagnosis"] = *p.Diagnosis
	}
	if p.Medications != nil {
		m["medications"] = *p.Medications
	}
	return m
}
