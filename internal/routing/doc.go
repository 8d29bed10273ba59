// Package routing implements the balancer's decision logic: static
// path-prefix routes take precedence, then health-aware round-robin over the
// remaining pool. The round-robin cursor grows without bound and is
// interpreted modulo the candidate set's size at each selection; it is not
// reset when pool membership changes.
package routing
