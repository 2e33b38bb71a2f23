// Package batch fans a list of URIs out over a bounded worker pool.
//
// Typical use is warming a cache: each URI goes through the cached client,
// so a successful batch leaves every response stored.
//
// Example usage:
//
//	fetch := func(ctx context.Context, uri string) (*Widget, error) {
//		return client.Get(ctx, c, baseAddress, uri, nil, hooks.Check, hooks.Set)
//	}
//	results, err := batch.FetchAll(ctx, batch.DefaultConfig(), uris, fetch)
//
// The fetcher:
//   - Spawns a worker pool (default 10 workers)
//   - Gives each URI its own timeout
//   - Keeps not-found results as nil entries
//   - Returns partial results with the first error once all workers finish
package batch
