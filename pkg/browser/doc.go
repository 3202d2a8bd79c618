// Package browser acquires headless Chrome instances for render jobs.
//
// A [Client] first tries to attach to the shared browser whose DevTools
// address is published in an [endpoint.Store]. If there is no record, the
// record is empty or unreadable, or the address no longer answers, it
// launches a private browser instead. Attach failures are never surfaced as
// errors; they only change which kind of [Handle] the job receives.
//
// A [Handle] carries the termination responsibility for its browser:
//
//   - [Shared] handles disconnect on Release and leave the process running
//     for other jobs.
//   - [Owned] handles terminate the process on Release.
//
// Each job opens its own tab through [Handle.NewPage] and closes it when
// done, so concurrent jobs on a shared browser never see each other's pages.
//
// The package also provides [ProcessLauncher], which the broker uses to run a
// long-lived Chrome whose DevTools address it can publish.
package browser
