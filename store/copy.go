// ABOUTME: Copies persisted slots from one backend to another
// ABOUTME: Used when switching storage backends
package store

import "fmt"

// CopyResult reports what Copy did per key.
type CopyResult struct {
	Copied  []Key
	Skipped []Key
	Missing []Key
}

// Copy writes every slot found in src to dst. Slots that already exist in dst
// are skipped unless overwrite is set. With dryRun nothing is written.
func Copy(src, dst *Store, overwrite, dryRun bool) (CopyResult, error) {
	var res CopyResult
	for _, key := range Keys {
		data, ok, err := src.Raw(key)
		if err != nil {
			return res, err
		}
		if !ok {
			res.Missing = append(res.Missing, key)
			continue
		}
		_, exists, err := dst.Raw(key)
		if err != nil {
			return res, err
		}
		if exists && !overwrite {
			res.Skipped = append(res.Skipped, key)
			continue
		}
		if !dryRun {
			if err := dst.PutRaw(key, data); err != nil {
				return res, fmt.Errorf("failed to copy %s: %w", key, err)
			}
		}
		res.Copied = append(res.Copied, key)
	}
	return res, nil
}
