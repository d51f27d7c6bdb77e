// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import "strings"

// ListPage applies prefix/delimiter/pagination semantics over a sorted
// key slice and returns the keys and rolled-up common prefixes for one
// page. Both backends list through this so pagination behaves
// identically regardless of storage.
//
// Resumption is driven by opts.StartAfter, the last item emitted on the
// previous page. When that item was a common prefix, every key under it
// is skipped so no key is ever returned twice across pages.
func ListPage(keys []string, opts ListOptions) (pageKeys []string, prefixes []string, truncated bool, nextStartAfter string) {
	if opts.MaxKeys <= 0 {
		return nil, nil, false, ""
	}

	emitted := 0
	var lastEmitted string
	seenPrefix := make(map[string]bool)

	for _, key := range keys {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		if opts.StartAfter != "" {
			if key <= opts.StartAfter {
				continue
			}
			if opts.Delimiter != "" &&
				strings.HasSuffix(opts.StartAfter, opts.Delimiter) &&
				strings.HasPrefix(key, opts.StartAfter) {
				continue
			}
		}

		item := key
		isPrefix := false
		if opts.Delimiter != "" {
			rest := key[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				item = opts.Prefix + rest[:idx+len(opts.Delimiter)]
				isPrefix = true
			}
		}

		if isPrefix && seenPrefix[item] {
			continue
		}

		if emitted == opts.MaxKeys {
			return pageKeys, prefixes, true, lastEmitted
		}

		if isPrefix {
			seenPrefix[item] = true
			prefixes = append(prefixes, item)
		} else {
			pageKeys = append(pageKeys, key)
		}
		lastEmitted = item
		emitted++
	}

	return pageKeys, prefixes, false, ""
}
