package domain

import "errors"

var (
	ErrPersonNotFound    = errors.New("person not found")
	ErrProposalExists    = errors.New("proposal already exists")
	ErrProposalNotFound  = errors.New("proposal not found")
	ErrIdentityNotFound  = errors.New("github identity not found")
	ErrSectionOutOfRange = errors.New("section index out of range")
	ErrRowOutOfRange     = errors.New("row index out of range")
)
