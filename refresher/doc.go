// Package refresher keeps stored credentials fresh. A background loop
// sweeps the credential store on a fixed interval and renews every token
// expiring within the lookahead window, so callers rarely pay a refresh
// round trip on the request path.
//
// The schedule's next fire time is persisted, so a restarted process
// resumes the cadence where the previous one left off.
package refresher
