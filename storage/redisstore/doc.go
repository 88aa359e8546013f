// Package redisstore keeps short-lived interview state in Redis through
// internal/cache.Manager: a read-through cache of interview contexts, the
// registry's session snapshot mirror and the HTTP chat session store.
package redisstore
