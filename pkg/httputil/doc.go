// Package httputil provides caching and retry for remote fetches.
//
// # Overview
//
// City files can live anywhere go-getter can reach (https://, s3::,
// git::...). This package supplies the two pieces every remote read needs:
//
//   - [Cache]: File-based caching of fetched payloads with a TTL
//   - [Retry]: Automatic retry with exponential backoff
//
// # Caching
//
// [Cache] stores entries as JSON files under ~/.cache/citygen/remote/ by
// default. Keys are hashed, so URLs can be used directly:
//
//	c, err := httputil.NewCache("", time.Hour)
//	var data []byte
//	if ok, _ := c.Get(src, &data); !ok {
//	    data = fetch(src)
//	    c.Set(src, data)
//	}
//
// # Retry
//
// [Retry] only retries errors wrapped in [RetryableError]; anything else
// is returned immediately:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    if err := download(); err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    return nil
//	})
//
// The cache can be cleared via `citygen cache clear` or by deleting the
// cache directory.
package httputil
