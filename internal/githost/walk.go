// File path: internal/githost/walk.go
package githost

import "context"

// WalkFiles traverses the repository tree breadth-first and returns the paths
// of files accepted by keep, in traversal order. The work queue is FIFO:
// directories are popped from the head and their entries appended at the tail
// in the order the hosting API returns them, so the result order is stable and
// reproducible. A positive limit stops the walk after that many matches.
func WalkFiles(ctx context.Context, client Client, ref RepositoryRef, keep func(path string) bool, limit int) ([]string, error) {
	queue, err := client.ListTree(ctx, ref, "")
	if err != nil {
		return nil, err
	}
	var out []string
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := queue[0]
		queue = queue[1:]
		if entry.Type == EntryTypeDir {
			children, err := client.ListTree(ctx, ref, entry.Path)
			if err != nil {
				return nil, err
			}
			queue = append(queue, children...)
			continue
		}
		if keep == nil || keep(entry.Path) {
			out = append(out, entry.Path)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
