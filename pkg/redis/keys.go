package redis

import "strings"

const defaultNamespace = "gm"

// Keyspace builds the colon-separated keys every Redis-backed feature uses.
// The zero value uses the "gm" namespace.
type Keyspace struct {
	Namespace string
}

func (k Keyspace) key(kind string, parts ...string) string {
	out := []string{k.namespace(), kind}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ":")
}

func (k Keyspace) namespace() string {
	if k.Namespace == "" {
		return defaultNamespace
	}
	return k.Namespace
}

func (k Keyspace) IdempotencyKey(scope, id string) string { return k.key("idempotency", scope, id) }

func (k Keyspace) RateLimitKey(scope string) string { return k.key("rate_limit", scope) }

// CounterKey names a like or view counter.
func (k Keyspace) CounterKey(name string) string { return k.key("counter", name) }

// LocalStateKey names one device-local entry (cart, pending order, token
// balance) owned by ownerID.
func (k Keyspace) LocalStateKey(ownerID, name string) string { return k.key("local", ownerID, name) }

func (k Keyspace) AccessSessionKey(accessID string) string {
	return k.key("session", "access", accessID)
}
