// Package rules holds the pure scoring and progression rules: the item
// catalog, donation scoring, streak tracking, tier progression, the
// declarative achievement table and leader selection.
//
// Nothing in this package touches a store or a clock it was not handed,
// so every rule is unit-testable in isolation. The DonationService in
// package service composes these rules inside a single store transaction.
package rules
