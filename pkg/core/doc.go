// Package core defines the shared language of the LeapConnect system.
//
// This package contains:
//   - Canonical records exchanged with the integration engine (Record)
//   - The filter expression tree (Comparison, Logical) and ConstraintMap
//   - Entity field rules (FieldRule)
//   - Connection configuration and auth decisions (ConnectionConfig, AuthDecision)
//   - HTTP request/response descriptors handed to the transport (Request, Response)
//   - The typed error taxonomy shared by every stage
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
