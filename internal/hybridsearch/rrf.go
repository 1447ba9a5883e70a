package hybridsearch

import "sort"

const defaultRRFK = 60

// RankedDoc is one entry in a ranked retrieval list (rank 0 = best).
type RankedDoc struct {
	ID    string
	Score float64 // the list's own per-document score, retained for diagnostics
}

// ListWeight names one input list to Fuse with its RRF weight.
type ListWeight struct {
	Name   string
	Docs   []RankedDoc
	Weight float64
}

// Fused is one document's reciprocal-rank-fusion result.
type Fused struct {
	ID            string
	Score         float64
	VectorScore   float64
	FulltextScore float64
}

// Fuse combines ranked lists via reciprocal rank fusion (spec §4.8 phase
// 4): score = sum over lists of weight / (k + rank), rank is 0-based
// position in that list. Each fused entry retains the maximum observed
// per-list score under VectorScore/FulltextScore (matched by list Name
// "dense"/"lexical") for diagnostics. Output is sorted by descending
// fused score, ties broken by ID for determinism.
func Fuse(lists []ListWeight, k int) []Fused {
	if k <= 0 {
		k = defaultRRFK
	}
	byID := map[string]*Fused{}
	order := []string{}

	for _, list := range lists {
		for rank, doc := range list.Docs {
			f, ok := byID[doc.ID]
			if !ok {
				f = &Fused{ID: doc.ID}
				byID[doc.ID] = f
				order = append(order, doc.ID)
			}
			f.Score += list.Weight / float64(k+rank)
			switch list.Name {
			case "dense":
				if doc.Score > f.VectorScore {
					f.VectorScore = doc.Score
				}
			case "lexical":
				if doc.Score > f.FulltextScore {
					f.FulltextScore = doc.Score
				}
			}
		}
	}

	out := make([]Fused, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
