package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
)

var shardPattern = regexp.MustCompile(`^shard-[0-9]{6,}\.tar$`)

// DiscoverShards lists the shard-NNNNNN.tar files found recursively under
// each root. Roots are scanned in order and each root's shards are sorted by
// path. A shard reachable from two roots is listed once, and a root holding
// no shards is an error.
func DiscoverShards(roots ...string) ([]string, error) {
	if len(roots) == 0 {
		return nil, errors.New("discover shards: no roots")
	}
	seen := make(map[string]struct{})
	var shards []string
	for _, root := range roots {
		if root == "" {
			return nil, errors.New("discover shards: empty root")
		}
		var found []string
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			switch {
			case err != nil:
				return err
			case d.IsDir() || !shardPattern.MatchString(d.Name()):
				return nil
			}
			found = append(found, filepath.Clean(path))
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("discover shards under %s: %w", root, walkErr)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("discover shards: none under %s", root)
		}
		sort.Strings(found)
		for _, shard := range found {
			if _, dup := seen[shard]; dup {
				continue
			}
			seen[shard] = struct{}{}
			shards = append(shards, shard)
		}
	}
	return shards, nil
}
