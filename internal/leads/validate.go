package leads

// Issue is a single validation failure, addressed by the field path that
// produced it.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// minPhoneLength is a raw string-length check. Punctuation is deliberately
// not stripped before counting, so "(11) 99999-9999" passes on character
// count alone. The dashboard has always behaved this way and tests pin it.
const minPhoneLength = 10

func validPhone(phone string) bool {
	return len(phone) >= minPhoneLength
}

// Input is the lead create payload. Pointer fields distinguish absent from
// empty; name, email and notes stay unset when the caller omits them.
type Input struct {
	Name   *string  `json:"name"`
	Phone  *string  `json:"phone"`
	Email  *string  `json:"email"`
	Status *string  `json:"status"`
	Notes  *string  `json:"notes"`
	Value  *float64 `json:"value"`
}

// Validate checks the create payload. Phone and status are required; the
// status must be one of the four known values.
func (in *Input) Validate() []Issue {
	var issues []Issue
	if in.Phone == nil {
		issues = append(issues, Issue{Path: "phone", Message: "phone is required"})
	} else if !validPhone(*in.Phone) {
		issues = append(issues, Issue{Path: "phone", Message: "phone must be at least 10 characters"})
	}
	if in.Status == nil {
		issues = append(issues, Issue{Path: "status", Message: "status is required"})
	} else if !ValidStatus(*in.Status) {
		issues = append(issues, Issue{Path: "status", Message: "invalid status"})
	}
	return issues
}

// Params converts a validated input into create parameters.
func (in *Input) Params() CreateParams {
	params := CreateParams{
		Phone:  *in.Phone,
		Status: *in.Status,
		Source: SourceManual,
		Email:  in.Email,
		Notes:  in.Notes,
		Value:  in.Value,
	}
	if in.Name != nil {
		params.Name = *in.Name
	}
	return params
}

// ImportRow is one row of the bulk import payload. The keys mirror the CSV
// template the dashboard hands out, hence the Portuguese headers.
type ImportRow struct {
	Name   *string `json:"Nome"`
	Phone  *string `json:"Telefone"`
	Email  *string `json:"Email"`
	Status *string `json:"Status"`
	Notes  *string `json:"Observações"`
}

// Validate checks an import row. Nome and Telefone are required; Status must
// be valid when present.
func (r *ImportRow) Validate() []Issue {
	var issues []Issue
	if r.Name == nil || *r.Name == "" {
		issues = append(issues, Issue{Path: "Nome", Message: "Nome is required"})
	}
	if r.Phone == nil {
		issues = append(issues, Issue{Path: "Telefone", Message: "Telefone is required"})
	} else if !validPhone(*r.Phone) {
		issues = append(issues, Issue{Path: "Telefone", Message: "Telefone must be at least 10 characters"})
	}
	if r.Status != nil && !ValidStatus(*r.Status) {
		issues = append(issues, Issue{Path: "Status", Message: "invalid status"})
	}
	return issues
}

// Params converts a validated row, applying the import defaults: Status
// falls back to novo, Email and Observações to the empty string.
func (r *ImportRow) Params() CreateParams {
	email := ""
	if r.Email != nil {
		email = *r.Email
	}
	notes := ""
	if r.Notes != nil {
		notes = *r.Notes
	}
	status := StatusNovo
	if r.Status != nil {
		status = *r.Status
	}
	return CreateParams{
		Name:   *r.Name,
		Phone:  *r.Phone,
		Email:  &email,
		Status: status,
		Source: SourceManual,
		Notes:  &notes,
	}
}
