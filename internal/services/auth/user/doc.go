// Package user defines the auth user model and the role ladder that every
// authorization check in Baranex compares against.
package user
