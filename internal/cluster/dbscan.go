package cluster

// Noise is the label assigned to points that belong to no cluster.
const Noise = -1

const unvisited = -2

// dbscan labels points using a precomputed symmetric distance matrix.
// Returned labels are 0..k-1 for clusters and Noise for outliers. Points
// are visited in index order, so the labeling is deterministic for a
// given input.
func dbscan(dist [][]float64, eps float64, minPts int) []int {
	n := len(dist)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}

		neighbors := regionQuery(dist, i, eps)
		if len(neighbors) < minPts {
			labels[i] = Noise
			continue
		}

		labels[i] = cluster
		expandCluster(dist, labels, neighbors, cluster, eps, minPts)
		cluster++
	}

	return labels
}

// expandCluster grows a cluster from a core point's neighborhood using a
// work queue. Noise points reachable from a core point are claimed by
// the cluster as border points.
func expandCluster(dist [][]float64, labels []int, seeds []int, cluster int, eps float64, minPts int) {
	for qi := 0; qi < len(seeds); qi++ {
		p := seeds[qi]

		if labels[p] == Noise {
			labels[p] = cluster
			continue
		}
		if labels[p] != unvisited {
			continue
		}

		labels[p] = cluster
		neighbors := regionQuery(dist, p, eps)
		if len(neighbors) >= minPts {
			seeds = append(seeds, neighbors...)
		}
	}
}

// regionQuery returns all points within eps of point i, including i itself.
func regionQuery(dist [][]float64, i int, eps float64) []int {
	var neighbors []int
	for j := range dist[i] {
		if dist[i][j] <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
