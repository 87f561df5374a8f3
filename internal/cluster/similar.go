package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/photoface/internal/database"
)

// maxNeighbors is the HNSW M parameter.
const maxNeighbors = 16

// Match is a face similar to a query face.
type Match struct {
	FaceID     int64
	Similarity float64
}

// FindSimilar returns every other face whose cosine similarity to the given
// face is at least threshold, ordered by descending similarity. A positive
// limit caps the result count. The approximate index narrows the candidates;
// exact similarity is recomputed for the filter and the final ranking. The
// candidate search is widened well past the limit so qualifying faces are
// not cut off by the index.
func FindSimilar(ctx context.Context, store *database.Store, faceID int64, threshold float64, limit int) ([]Match, error) {
	query, err := store.GetFace(ctx, faceID)
	if err != nil {
		return nil, err
	}
	if len(query.Embedding) == 0 {
		return nil, fmt.Errorf("face %d has no usable embedding", faceID)
	}

	all, err := store.AllFaceEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	g := hnsw.NewGraph[int64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.CosineDistance

	indexed := 0
	for _, f := range all {
		if f.ID == faceID || len(f.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(f.ID, f.Embedding))
		indexed++
	}
	if indexed == 0 {
		return nil, nil
	}

	width := 4 * limit
	if width < 64 {
		width = 64
	}
	if width > indexed {
		width = indexed
	}
	neighbors := g.Search(query.Embedding, width)

	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		sim := database.CosineSimilarity(query.Embedding, n.Value)
		if sim < threshold {
			continue
		}
		matches = append(matches, Match{FaceID: n.Key, Similarity: sim})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].FaceID < matches[j].FaceID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
