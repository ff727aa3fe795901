package importer

import (
	"context"
	"sort"

	"reawwise/internal/mapping"
	"reawwise/internal/waapi"
	"reawwise/internal/wwise"
)

// applyTemplates pastes each mapping node's template onto the imported
// objects at that node's depth below the destination. One paste is issued
// per distinct source within a depth; a failed paste does not stop the
// others.
func applyTemplates(ctx context.Context, c waapi.Caller, summary *Summary, req Request, imported []waapi.Object) {
	base := len(wwise.PathParts(wwise.StripTypeTags(req.Destination)))
	buckets := templateBuckets(req.Nodes)
	if len(buckets) == 0 {
		return
	}

	depths := make([]int, 0, len(buckets))
	for d := range buckets {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	for _, depth := range depths {
		sources := buckets[depth]
		for _, source := range sortedKeys(sources) {
			var targets []string
			for _, obj := range imported {
				if len(wwise.PathParts(obj.Path))-base-1 != depth || obj.Type == wwise.AudioFileSource {
					continue
				}
				entry, ok := summary.Entry(obj.Path)
				if !ok {
					continue
				}
				if req.TemplatePolicy == mapping.TemplateNewOnly && entry.Status != wwise.StatusNew {
					continue
				}
				targets = append(targets, obj.Path)
			}
			if len(targets) == 0 {
				continue
			}
			err := waapi.PasteProperties(ctx, c, source, targets)
			if err != nil {
				summary.recordError(waapi.ProcPasteProperties, err)
			}
			for _, target := range targets {
				summary.Templates = append(summary.Templates, TemplateResult{Source: source, Target: target, OK: err == nil})
				if err == nil {
					if entry, ok := summary.Entry(target); ok {
						entry.TemplatePath = source
					}
					summary.TemplatesApplied++
				}
			}
		}
	}
}

// templateBuckets groups usable template sources by node depth.
func templateBuckets(nodes []mapping.Node) map[int]map[string]struct{} {
	buckets := make(map[int]map[string]struct{})
	for depth, node := range nodes {
		if !node.HasTemplate() {
			continue
		}
		if buckets[depth] == nil {
			buckets[depth] = make(map[string]struct{})
		}
		buckets[depth][wwise.StripTypeTags(node.TemplatePath)] = struct{}{}
	}
	return buckets
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
