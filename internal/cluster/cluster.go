// Package cluster groups unassigned face embeddings into provisional
// person identities using density based clustering over cosine distance.
package cluster

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/kozaktomas/photoface/internal/database"
)

// Clusterer runs one clustering pass over the currently unassigned faces.
type Clusterer struct {
	store     *database.Store
	threshold float64 // cosine similarity threshold, distance eps is 1 - threshold
	minPts    int     // minimum faces to form a cluster
}

// Result summarizes one clustering run.
type Result struct {
	FacesConsidered int
	ClustersCreated int
	FacesAssigned   int
	NoiseFaces      int
}

// New creates a clusterer. threshold is the minimum cosine similarity for
// two faces to be considered neighbors; minPts is the smallest group that
// forms a cluster.
func New(store *database.Store, threshold float64, minPts int) *Clusterer {
	if minPts < 2 {
		minPts = 2
	}
	return &Clusterer{store: store, threshold: threshold, minPts: minPts}
}

// Run clusters all unassigned faces and creates one provisional person per
// cluster. Faces labeled noise stay unassigned. Running with fewer than two
// usable embeddings is a successful zero-effect operation.
func (c *Clusterer) Run(ctx context.Context) (*Result, error) {
	faces, err := c.store.UnassignedFaces(ctx)
	if err != nil {
		return nil, err
	}

	// Faces whose stored embedding cannot be decoded are skipped, not fatal.
	usable := faces[:0]
	for _, f := range faces {
		if len(f.Embedding) > 0 {
			usable = append(usable, f)
		}
	}
	faces = usable

	result := &Result{FacesConsidered: len(faces)}
	if len(faces) < 2 {
		return result, nil
	}

	embeddings := make([][]float32, len(faces))
	for i, f := range faces {
		embeddings[i] = normalize(sanitize(f.Embedding))
	}

	dist := distanceMatrix(embeddings)
	labels := dbscan(dist, 1.0-c.threshold, c.minPts)

	// Collect cluster members in face order so naming is deterministic.
	clusters := make(map[int][]int64)
	var order []int
	for i, label := range labels {
		if label == Noise {
			result.NoiseFaces++
			continue
		}
		if _, seen := clusters[label]; !seen {
			order = append(order, label)
		}
		clusters[label] = append(clusters[label], faces[i].ID)
	}

	totalFaces, err := c.store.CountFaces(ctx)
	if err != nil {
		return nil, err
	}
	width := clusterNameWidth(totalFaces)

	for _, label := range order {
		members := clusters[label]

		n, err := c.store.NextClusterID(ctx)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("Person_%0*d", width, n)

		personID, err := c.store.CreatePerson(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("create person %s: %w", name, err)
		}

		for _, faceID := range members {
			if err := c.store.MoveFaceToPerson(ctx, faceID, personID); err != nil {
				return nil, fmt.Errorf("assign face %d to %s: %w", faceID, name, err)
			}
			// Cluster membership is provisional until a human confirms it,
			// even for faces confirmed while still unassigned.
			if err := c.store.SetFacePersonStatus(ctx, faceID, false); err != nil {
				return nil, fmt.Errorf("reset confirmation of face %d: %w", faceID, err)
			}
		}

		log.Printf("created %s with %d faces", name, len(members))
		result.ClustersCreated++
		result.FacesAssigned += len(members)
	}

	return result, nil
}

// sanitize replaces NaN and infinite components with zero.
func sanitize(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[i] = x
	}
	return out
}

// normalize scales v to unit length. Zero vectors are returned unchanged
// so they end up maximally distant from everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// distanceMatrix builds the pairwise cosine distance matrix for unit
// vectors. Distances are clamped to [0, 2].
func distanceMatrix(embeddings [][]float32) [][]float64 {
	n := len(embeddings)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := database.CosineDistance(embeddings[i], embeddings[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// clusterNameWidth derives the zero padding width for cluster names from
// the total face count, so names sort naturally at the library's scale.
func clusterNameWidth(totalFaces int) int {
	switch {
	case totalFaces < 10:
		return 1
	case totalFaces < 100:
		return 2
	case totalFaces < 1000:
		return 3
	case totalFaces < 10000:
		return 4
	default:
		return 5
	}
}
