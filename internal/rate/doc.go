// Package rate provides a redis-backed request counter for the HTTP layer's per-IP throttle, so
// replicas behind one load balancer share a single budget.
//
// # Window semantics
//
// Counter implements httprate's sliding-window LimitCounter. Each window is one key
// "<prefix><limit key>:<window unix>" holding an INCRBY counter that expires after two window
// lengths, long enough to serve as the previous window of the next one.
//
// # What this package must NOT do
//
//   - Decide login lockouts. Those are per ip+username records in internal/limiters.
//   - Be imported outside the folioauth module.
package rate
