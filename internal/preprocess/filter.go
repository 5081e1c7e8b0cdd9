package preprocess

import (
	"fmt"
	"strings"

	"github.com/ruipath/pathoprep/internal/pathmap"
	"github.com/ruipath/pathoprep/internal/table"
)

// process cleans the merged table. Order matters: the SDPC rule assumes
// empty slide paths are already gone, and the path transform assumes only
// usable rows remain.
func (p *Preprocess) process(t *table.Table, ignoreSDPC bool) (*table.Table, error) {
	t = t.Filter(func(r table.Row) bool {
		return r.Get(colSlidePath) != ""
	})

	if ignoreSDPC {
		t = t.Filter(func(r table.Row) bool {
			return !isSDPC(r.Get(colSlidePath))
		})
	} else {
		// An SDPC slide is unusable without its thumbnail.
		t = t.Filter(func(r table.Row) bool {
			return !(isSDPC(r.Get(colSlidePath)) && r.Get(colThumbnailPath) == "")
		})
	}

	hasThumbnails := t.HasColumn(colThumbnailPath)
	for _, r := range t.Rows {
		r[colSlidePath] = pathmap.Transform(r.Get(colSlidePath), p.opts.PathTransform, p.logger)
		if !hasThumbnails {
			continue
		}
		if thumb := r.Get(colThumbnailPath); thumb != "" {
			r[colThumbnailPath] = pathmap.Transform(thumb, p.opts.PathTransform, p.logger)
		} else {
			r[colThumbnailPath] = ""
		}
	}

	return p.applyExtraFilters(t)
}

// applyExtraFilters runs the pluggable domain predicates. There are none
// by default; the layer exists for deployments to hook into.
func (p *Preprocess) applyExtraFilters(t *table.Table) (*table.Table, error) {
	for i, pred := range p.extra {
		filtered := table.New(t.Columns...)
		for _, r := range t.Rows {
			keep, err := pred(r)
			if err != nil {
				return nil, fmt.Errorf("extra filter %d failed: %w", i, err)
			}
			if keep {
				filtered.Append(r)
			}
		}
		t = filtered
	}
	return t, nil
}

func isSDPC(path string) bool {
	return strings.HasSuffix(path, sdpcExtension)
}
