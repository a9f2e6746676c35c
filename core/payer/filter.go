package payer

import (
	"strings"
	"unicode/utf8"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/filter"
)

const maxSearchLen = 100

// QueryFilter selects active payers. Zero fields are ignored.
type QueryFilter struct {
	FacultyID int
	GroupID   int
	Status    Status
	Statuses  []Status
	// Search does a case-insensitive match on the names, email and phone.
	Search string
}

// NewQueryFilter reads the payer list filters from query parameters.
func NewQueryFilter(f *filter.Filter) (QueryFilter, error) {
	var qf QueryFilter
	var fldErrs []core.FieldError

	if f.Has("faculty_id") {
		if n, ok := f.Int("faculty_id"); ok && n > 0 {
			qf.FacultyID = n
		} else {
			fldErrs = append(fldErrs, core.FieldError{Field: "faculty_id", Error: "faculty_id must be a positive integer"})
		}
	}
	if f.Has("group_id") {
		if n, ok := f.Int("group_id"); ok && n > 0 {
			qf.GroupID = n
		} else {
			fldErrs = append(fldErrs, core.FieldError{Field: "group_id", Error: "group_id must be a positive integer"})
		}
	}
	if f.Has("status") {
		st := Status(strings.ToLower(f.Get("status")))
		if st.IsValid() {
			qf.Status = st
		} else {
			fldErrs = append(fldErrs, core.FieldError{Field: "status", Error: "status must be one of [paid partial unpaid exempt]"})
		}
	}
	qf.Search = core.CleanString(f.Get("search"))
	if utf8.RuneCountInString(qf.Search) > maxSearchLen {
		fldErrs = append(fldErrs, core.FieldError{Field: "search", Error: "search must be a maximum of 100 characters in length"})
	}

	if fldErrs != nil {
		return QueryFilter{}, core.NewValidationError(nil, fldErrs...)
	}
	return qf, nil
}

// Match reports whether p matches the filter. Used by in-memory storage.
func (qf QueryFilter) Match(p Payer) bool {
	if !p.IsActive {
		return false
	}
	if qf.FacultyID > 0 && (!p.FacultyID.Valid || p.FacultyID.Int != qf.FacultyID) {
		return false
	}
	if qf.GroupID > 0 && (!p.GroupID.Valid || p.GroupID.Int != qf.GroupID) {
		return false
	}
	if qf.Status != "" && p.Status != qf.Status {
		return false
	}
	if len(qf.Statuses) > 0 {
		var found bool
		for _, st := range qf.Statuses {
			if p.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		fields := []string{p.LastName, p.FirstName, p.MiddleName.String, p.Email.String, p.Phone.String}
		var found bool
		for _, fld := range fields {
			if strings.Contains(strings.ToLower(fld), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
