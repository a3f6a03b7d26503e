package domain

// IOCGroup is a set of documents expected to describe one coherent
// material flow: one contract plus its delivery notes and receipts.
// Membership is fixed at discovery time; no files are added later.
type IOCGroup struct {
	// ID is a stable identifier derived from the group directory.
	ID string

	// Project is the top-level directory under the audit root.
	Project string

	// Directory is the group's root directory.
	Directory string

	// Documents lists the member documents sorted by path.
	Documents []Document

	// OCRCacheKey is a content-stable identity for the group, set by the
	// extraction pipeline when OCR output persistence is enabled and
	// used to name the group's output directory.
	OCRCacheKey string
}

// ByKind partitions the group's documents by their assigned kind.
// Unclassified documents are omitted.
func (g *IOCGroup) ByKind() map[DocumentKind][]Document {
	out := make(map[DocumentKind][]Document)
	for _, d := range g.Documents {
		if d.Kind == KindUnclassified {
			continue
		}
		out[d.Kind] = append(out[d.Kind], d)
	}
	return out
}

// Paths returns the member document paths in group order.
func (g *IOCGroup) Paths() []string {
	paths := make([]string, len(g.Documents))
	for i, d := range g.Documents {
		paths[i] = d.Path
	}
	return paths
}
