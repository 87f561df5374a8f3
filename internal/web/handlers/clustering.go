package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/photoface/internal/cluster"
	"github.com/kozaktomas/photoface/internal/config"
	"github.com/kozaktomas/photoface/internal/database"
)

// ClusterHandler handles the clustering endpoint.
type ClusterHandler struct {
	config *config.Config
	store  *database.Store
}

// NewClusterHandler creates a new cluster handler.
func NewClusterHandler(cfg *config.Config, store *database.Store) *ClusterHandler {
	return &ClusterHandler{config: cfg, store: store}
}

// ClusterRequest allows overriding the configured clustering knobs for
// one run.
type ClusterRequest struct {
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	MinClusterSize      *int     `json:"min_cluster_size,omitempty"`
}

// Run clusters the unassigned faces synchronously. Clustering over a few
// thousand faces finishes in seconds, so no job machinery is needed.
func (h *ClusterHandler) Run(w http.ResponseWriter, r *http.Request) {
	threshold := h.config.Cluster.SimilarityThreshold
	minSize := h.config.Cluster.MinClusterSize

	if r.ContentLength > 0 {
		var req ClusterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		if req.SimilarityThreshold != nil {
			if *req.SimilarityThreshold <= 0 || *req.SimilarityThreshold >= 1 {
				respondError(w, http.StatusBadRequest, "similarity_threshold must be between 0 and 1")
				return
			}
			threshold = *req.SimilarityThreshold
		}
		if req.MinClusterSize != nil {
			if *req.MinClusterSize < 2 {
				respondError(w, http.StatusBadRequest, "min_cluster_size must be at least 2")
				return
			}
			minSize = *req.MinClusterSize
		}
	}

	c := cluster.New(h.store, threshold, minSize)
	result, err := c.Run(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"faces_considered": result.FacesConsidered,
		"clusters_created": result.ClustersCreated,
		"faces_assigned":   result.FacesAssigned,
		"noise_faces":      result.NoiseFaces,
	})
}
