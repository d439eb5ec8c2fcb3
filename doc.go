// Package onboarding provides identity and account provisioning
// primitives (credential authentication, single-use token flows, JWT
// session issuance) plus a compensating registration saga for
// multi-profile onboarding.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus field persisted via Bun. Statuses
//     cover pending, active, suspended, and archived so password-less
//     applications and approved accounts share the same invariants.
//   - AccountStateMachine centralizes the transition graph, hooks, and
//     persistence. Invoke Transition with ActorRef metadata whenever an
//     operator moves an account.
//
// Registration:
//   - ProvisioningSaga runs an ordered list of forward/compensate steps
//     covering asset staging, account and profile rows, role linkage,
//     and completion scoring. A failure at any step unwinds completed
//     steps in reverse, so neither orphan accounts nor unreferenced
//     stored objects survive a partial registration.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the
//     authenticator, the saga, and the state machine to describe login,
//     registration, token, and lifecycle events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue
//     without blocking authentication.
package onboarding
