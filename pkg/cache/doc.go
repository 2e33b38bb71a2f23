// Package cache implements the caching-delegation protocol used by the
// async HTTP client.
//
// The package never stores anything itself. Callers hand in up to three
// optional callbacks per call and the delegate decides when to invoke them
// and with which key:
//
// - CheckFunc looks up a cached response (nil result means miss)
// - SetFunc stores a response after a successful transport call
// - VoidFunc drops the endpoint-scoped entry after a DELETE
//
// A nil callback means "skip that step". It is never an error.
//
// # Cache Keys
//
// Keys are the concatenation of a resource identifier, the base address and
// the uri:
//
//	key := cache.Key("order-42", "https://api.example.com", "/orders")
//	// "order-42https://api.example.com/orders"
//
// The identifier comes from the x-resource-identifier header. When no header
// set is supplied the identifier is empty and no validation happens. When a
// header set is supplied together with a callback, the header must be present
// and non-empty, otherwise the call fails with a *MissingHeaderError before
// any network I/O.
//
// GET calls never pass their headers to the delegate, so GET keys are always
// identifier-free. POST and PUT calls pass their headers and must therefore
// carry the identifier whenever they use a cache callback. VoidCache always
// uses an identifier-free key, which makes a DELETE invalidate the cached GET
// of the same endpoint.
//
// # Basic Usage
//
//	lookup := func(ctx context.Context, key string) (*Widget, error) {
//		w, ok := widgets[key]
//		if !ok {
//			return nil, nil
//		}
//		return w, nil
//	}
//
//	cached, err := cache.CheckCache(ctx, baseAddress, uri, nil, lookup)
//
// # Metrics
//
//   - httpclient_cache_lookups_total{result} - hits and misses reported by CheckFunc
//   - httpclient_cache_writes_total - SetFunc invocations
//   - httpclient_cache_voids_total - VoidFunc invocations
package cache
