package model

// Identity is the caller resolved by the identity verifier.  SubjectID is
// stable across sessions and is the owner key of every ticket.
type Identity struct {
	SubjectID string
	Email     string
}
