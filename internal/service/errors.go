// Package service implements the long-lived service process's core: the
// handle allocator, session state machine, event queue, frame producer,
// driver host wiring, and control-channel message dispatcher (spec.md
// §2's dependency layer 4).
package service

import "errors"

// ErrUnknownSession is logged by the dispatcher when a control message
// names a session handle the service does not currently track; the client
// gets an empty response.
var ErrUnknownSession = errors.New("service: unknown session handle")

// ErrSessionAlreadyActive is logged by the dispatcher when CreateSession
// arrives while another session is already active; the service supports
// exactly one active session per spec.md §3.
var ErrSessionAlreadyActive = errors.New("service: a session is already active")

// ErrNoActiveSession is logged by the dispatcher for operations that
// require an active session (DestroySession, RequestExitSession) when none
// exists.
var ErrNoActiveSession = errors.New("service: no active session")
