// Package command defines the command envelope, the decision contract, and the
// command registry used on the objective write path.
//
// Commands express intent from API callers. They are validated for shape here so
// deciders only evaluate business rules against well-formed input.
package command
