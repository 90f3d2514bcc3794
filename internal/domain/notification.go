package domain

import "strings"

// Notification accumulates validation errors across a unit of work instead
// of short-circuiting on the first failure, so callers can present the full
// list of violations to the end user.
type Notification struct {
	errs []error
}

// NewNotification returns an empty accumulator.
func NewNotification() *Notification {
	return &Notification{}
}

// Append adds a single error. Nil errors are ignored.
func (n *Notification) Append(err error) {
	if err != nil {
		n.errs = append(n.errs, err)
	}
}

// Merge appends every error collected by another notification.
func (n *Notification) Merge(other *Notification) {
	if other != nil {
		n.errs = append(n.errs, other.errs...)
	}
}

// HasErrors reports whether any error has been collected.
func (n *Notification) HasErrors() bool {
	return len(n.errs) > 0
}

// FirstError returns the first collected error, or nil if there is none.
func (n *Notification) FirstError() error {
	if len(n.errs) == 0 {
		return nil
	}
	return n.errs[0]
}

// Errors returns all collected errors in insertion order.
func (n *Notification) Errors() []error {
	return n.errs
}

// Error joins all collected messages so a Notification can travel through a
// plain error return.
func (n *Notification) Error() string {
	msgs := make([]string, 0, len(n.errs))
	for _, err := range n.errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrOrNil returns the notification as an error when it holds at least one
// violation, nil otherwise.
func (n *Notification) ErrOrNil() error {
	if n.HasErrors() {
		return n
	}
	return nil
}
