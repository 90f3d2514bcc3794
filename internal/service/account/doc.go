// Package account implements customer registration, email verification,
// authentication and address book management.
package account
