// Package facade bridges asynchronous callers onto the synchronous Tidal
// client with a TTL response cache in between.
//
// # Bridging
//
// [Bridge] wraps a bounded goroutine pool (panjf2000/ants). [Run] submits a
// blocking call and waits on a buffered result channel, so a cancelled caller
// returns immediately without leaking the worker. Errors cross the bridge
// unchanged.
//
// # Caching
//
// Read operations are keyed by operation name plus normalized arguments and
// stored as JSON through the [Cache] interface. [MemoryCache] evicts lazily on
// read; [RedisCache] delegates expiry to Redis. Identical concurrent misses
// may each reach the provider: the contract is the correctness of returned
// data, not upstream call deduplication.
//
// # Error taxonomy
//
//   - [shared.ErrNotAuthenticated] : the session could not be made valid; the
//     provider is never touched.
//   - [shared.ErrAPIRequest] : the provider call failed with a valid session;
//     the original cause is attached for diagnostics.
//   - context errors pass through untouched so callers can recognize their
//     own timeouts.
//
// Mutations (playlist edits, favorites) bypass the cache and invalidate the
// key prefixes they affect.
package facade
