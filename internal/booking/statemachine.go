package booking

import "fmt"

type transitionKey struct {
	from Status
	role Role
}

// allowedTransitions is the single source of truth for who may move a
// booking from one status to another. The only edges out of a terminal
// status are the two admin overrides.
var allowedTransitions = map[transitionKey][]Status{
	{StatusPendingApproval, RoleCustomer}: {StatusCancelled},
	{StatusPendingApproval, RoleVendor}:   {StatusConfirmed, StatusCancelled},
	{StatusPendingApproval, RoleAdmin}:    {StatusConfirmed, StatusCancelled},

	{StatusConfirmed, RoleCustomer}: {StatusCancelled},
	{StatusConfirmed, RoleVendor}:   {StatusInProgress, StatusCancelled},
	{StatusConfirmed, RoleAdmin}:    {StatusInProgress, StatusCancelled},

	{StatusInProgress, RoleVendor}: {StatusCompleted, StatusCancelled},
	{StatusInProgress, RoleAdmin}:  {StatusCompleted, StatusCancelled},

	// Admin overrides: the only edges out of a terminal status.
	{StatusCompleted, RoleAdmin}: {StatusCancelled},
	{StatusCancelled, RoleAdmin}: {StatusConfirmed},
}

// CanTransition reports whether the actor role may move a booking from one
// status to another.
func CanTransition(from, to Status, role Role) bool {
	for _, allowed := range allowedTransitions[transitionKey{from, role}] {
		if allowed == to {
			return true
		}
	}
	return false
}

// checkTransition returns ErrInvalidTransition with detail when the edge is
// not permitted.
func checkTransition(from, to Status, role Role) error {
	if !CanTransition(from, to, role) {
		return fmt.Errorf("%w: %s may not move a booking from %s to %s", ErrInvalidTransition, role, from, to)
	}
	return nil
}
