// Package cancel implements the account cancellation workflow: choosing a
// cancellation policy, mailing and verifying confirmation links, cascading
// the policy over owned content, and fanning cancellations out in bulk.
//
// Policies:
//   - Policy is a closed set of four methods. Each one declares what happens
//     to the account (block or delete) and to owned content (nothing,
//     unpublish, reassign to the anonymous account, or delete). The
//     PolicyRegistry exposes them with their user facing descriptions.
//
// Confirmation links:
//   - TokenService derives a one time token from the account id, the link
//     timestamp and the last login. A login after the link was issued
//     invalidates it, so a confirmed link cannot be replayed.
//
// Scheduling:
//   - Scheduler.RequestCancellation decides between an immediate run and a
//     mailed confirmation, based on the invoker's capabilities. ConfirmLink
//     verifies a link and executes the currently configured policy.
//   - CascadeEngine pages through owned content in fixed size batches and
//     applies the content effect. Runs can be resumed after a failure.
//   - AccountStateMachine applies the account effect, with hooks and an
//     ActivitySink describing every status change.
//
// The repository subpackage ships Bun backed storage for accounts, content
// and activity.
package cancel
