// Package force lays out a graph in two dimensions with a force-directed
// simulation in the style of d3-force.
//
// A Simulator owns one Body per node. Each Step decays alpha toward zero and
// then applies four forces before integrating velocities into positions:
//
//   - charge: every pair of bodies repels with inverse-square strength
//   - center: the centroid is translated to the middle of the canvas
//   - link: each edge pulls its endpoints toward a rest distance
//   - collide: overlapping bodies are pushed apart
//
// # Complexity
//
// The charge force is the expensive one. Below Params.BarnesHutThreshold
// bodies it is computed exactly over all pairs, which is O(n²) per step but
// has no approximation error and no allocation. At or above the threshold a
// quadtree is built every step and distant groups of bodies are treated as a
// single mass when width²/θ² < distance² (Barnes-Hut), which is O(n log n).
// The collide force switches at the same threshold from an all-pairs scan to
// quadtree range queries.
//
// # Termination
//
// The simulation is converged once alpha drops below Params.AlphaMin or
// Params.MaxSteps steps have run since the last Reset. Step on a converged
// simulator does nothing, so a settled layout stays exactly where it is until
// the next Reset reheats it. A Reset that only adds unlinked bodies parks
// them outside the layout and does not reheat.
//
// # Determinism
//
// Initial positions follow a phyllotaxis spiral keyed by node index and all
// tie-breaking jitter comes from a seeded linear congruential generator, so
// the same input sequence always produces the same layout.
package force
