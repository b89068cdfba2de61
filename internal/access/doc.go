// Package access decides who may do what to projects and tasks.
//
// A user's role in a project comes from ownership (projects.owner_id) or,
// failing that, from their row in the project's team. Guards then map
// (role, operation, context) to Allow or Deny(reason). Denials are plain
// values; nothing here panics on bad input and every unknown case denies.
package access
