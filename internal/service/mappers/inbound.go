package mappers

import "strings"

// EvaluationCreateForm is the validated input of a new evaluation.
type EvaluationCreateForm struct {
	Address   string
	URL       string
	UserNeeds string
}

// Subject returns the listing URL when one is given, the address otherwise.
func (f EvaluationCreateForm) Subject() string {
	if u := strings.TrimSpace(f.URL); u != "" {
		return u
	}
	return strings.TrimSpace(f.Address)
}

func (f EvaluationCreateForm) Needs() string {
	return strings.TrimSpace(f.UserNeeds)
}
