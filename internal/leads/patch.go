package leads

import "encoding/json"

// Patch is an explicit partial update. Each Set flag records whether the
// field appeared in the request at all, so "omitted" and "explicitly
// cleared" are distinguishable.
type Patch struct {
	Name      string
	SetName   bool
	Email     *string
	SetEmail  bool
	Status    string
	SetStatus bool
	Notes     *string
	SetNotes  bool
	Value     *float64
	SetValue  bool
}

// UnmarshalJSON records field presence alongside the values.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &p.Name); err != nil {
			return err
		}
		p.SetName = true
	}
	if v, ok := raw["email"]; ok {
		if err := json.Unmarshal(v, &p.Email); err != nil {
			return err
		}
		p.SetEmail = true
	}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &p.Status); err != nil {
			return err
		}
		p.SetStatus = true
	}
	if v, ok := raw["notes"]; ok {
		if err := json.Unmarshal(v, &p.Notes); err != nil {
			return err
		}
		p.SetNotes = true
	}
	if v, ok := raw["value"]; ok {
		if err := json.Unmarshal(v, &p.Value); err != nil {
			return err
		}
		p.SetValue = true
	}
	return nil
}

// Empty reports whether the patch carries no fields.
func (p *Patch) Empty() bool {
	return !p.SetName && !p.SetEmail && !p.SetStatus && !p.SetNotes && !p.SetValue
}

// Validate checks the supplied fields only.
func (p *Patch) Validate() []Issue {
	var issues []Issue
	if p.SetStatus && !ValidStatus(p.Status) {
		issues = append(issues, Issue{Path: "status", Message: "invalid status"})
	}
	return issues
}
