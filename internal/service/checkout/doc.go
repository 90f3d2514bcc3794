// Package checkout implements order placement, coupon application, payment
// processing against the gateway, and order lifecycle transitions.
package checkout
