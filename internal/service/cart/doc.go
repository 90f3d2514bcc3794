// Package cart implements the shopping cart use-cases. Each client owns at
// most one cart, created lazily on first access.
package cart
