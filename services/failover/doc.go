// Package failover implements ordered endpoint fallback for LLM inference.
//
// This package provides:
//   - Endpoint chains: ordered fallback lists fixed at configuration time
//   - A sequential resolver that tries endpoints in order until one succeeds
//   - Error classification into a closed set of failure kinds
//   - A resolution trace recording every attempt for diagnosis
//
// Attempts are strictly sequential. The resolver never reorders,
// deduplicates, or parallelizes endpoints, and never retries the same
// endpoint within one resolution; per-call retry and backoff belong to the
// endpoint invoker.
package failover
