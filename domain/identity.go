// Package domain contains core concepts of the support-chat system.
// This file defines the Identity projection bound to a live connection.
// The core never mutates an Identity; it is resolved by the verifier.
package domain

type Role string

const (
	RoleRequester     Role = "requester"
	RoleCounterpart   Role = "counterpart"
	RoleAdministrator Role = "administrator"
)

type Identity struct {
	ID     string
	Name   string
	Role   Role
	Active bool
}
