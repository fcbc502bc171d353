package graph

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/observability"
)

// indexSnapshot is an in-memory directed graph built from the entity and
// edge tables. It is immutable once built.
type indexSnapshot struct {
	nodes map[string]*Node
	out   map[string][]*Edge
	in    map[string][]*Edge
	edges int
}

func newIndexSnapshot() *indexSnapshot {
	return &indexSnapshot{
		nodes: make(map[string]*Node),
		out:   make(map[string][]*Edge),
		in:    make(map[string][]*Edge),
	}
}

func (s *indexSnapshot) addNode(n *Node) {
	s.nodes[n.ID] = n
}

// addEdge adds a directed arc. Endpoints without an entity record become
// bare nodes typed by the edge.
func (s *indexSnapshot) addEdge(e *Edge) {
	if _, ok := s.nodes[e.FromID]; !ok {
		s.nodes[e.FromID] = &Node{ID: e.FromID, Type: e.FromType}
	}
	if _, ok := s.nodes[e.ToID]; !ok {
		s.nodes[e.ToID] = &Node{ID: e.ToID, Type: e.ToType}
	}
	s.out[e.FromID] = append(s.out[e.FromID], e)
	s.in[e.ToID] = append(s.in[e.ToID], e)
	s.edges++
}

// neighbor is one undirected step away from a node
type neighbor struct {
	id   string
	edge *Edge
}

// neighbors lists outgoing arcs then incoming arcs, each in insertion order
func (s *indexSnapshot) neighbors(id string) []neighbor {
	out, in := s.out[id], s.in[id]
	result := make([]neighbor, 0, len(out)+len(in))
	for _, e := range out {
		result = append(result, neighbor{id: e.ToID, edge: e})
	}
	for _, e := range in {
		result = append(result, neighbor{id: e.FromID, edge: e})
	}
	return result
}

// egoNetwork does a breadth-first expansion over both edge directions up to
// depth hops and returns the induced subgraph. Unknown ids yield an empty
// result.
func (s *indexSnapshot) egoNetwork(id string, depth int) *Subgraph {
	result := &Subgraph{Nodes: []*Node{}, Edges: []*Edge{}, Depth: depth}
	start, ok := s.nodes[id]
	if !ok {
		return result
	}

	visited := map[string]bool{id: true}
	order := []*Node{start}
	frontier := []string{id}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, cur := range frontier {
			for _, nb := range s.neighbors(cur) {
				if visited[nb.id] {
					continue
				}
				visited[nb.id] = true
				order = append(order, s.nodes[nb.id])
				next = append(next, nb.id)
			}
		}
		frontier = next
	}

	for _, n := range order {
		result.Nodes = append(result.Nodes, cloneNode(n))
		for _, e := range s.out[n.ID] {
			if visited[e.ToID] {
				result.Edges = append(result.Edges, cloneEdge(e))
			}
		}
	}
	return result
}

// shortestPath runs BFS over the graph treated as undirected. It returns nil
// when either id is unknown or no path exists.
func (s *indexSnapshot) shortestPath(fromID, toID string) *Path {
	from, ok := s.nodes[fromID]
	if !ok {
		return nil
	}
	if _, ok := s.nodes[toID]; !ok {
		return nil
	}
	if fromID == toID {
		return &Path{Nodes: []*Node{cloneNode(from)}, Edges: []*Edge{}}
	}

	type step struct {
		prev string
		edge *Edge
	}
	parent := map[string]step{fromID: {}}
	queue := []string{fromID}
	found := false
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range s.neighbors(cur) {
			if _, seen := parent[nb.id]; seen {
				continue
			}
			parent[nb.id] = step{prev: cur, edge: nb.edge}
			if nb.id == toID {
				found = true
				break
			}
			queue = append(queue, nb.id)
		}
	}
	if !found {
		return nil
	}

	var nodes []*Node
	var edges []*Edge
	for cur := toID; ; {
		nodes = append(nodes, cloneNode(s.nodes[cur]))
		st := parent[cur]
		if cur == fromID {
			break
		}
		edges = append(edges, cloneEdge(st.edge))
		cur = st.prev
	}
	reverse(nodes)
	reverse(edges)
	return &Path{Nodes: nodes, Edges: edges}
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func cloneNode(n *Node) *Node {
	c := *n
	c.Properties = maps.Clone(n.Properties)
	return &c
}

func cloneEdge(e *Edge) *Edge {
	c := *e
	c.Properties = maps.Clone(e.Properties)
	return &c
}

// snapshotLoader reads the full entity and edge tables into a snapshot
type snapshotLoader func(ctx context.Context) (*indexSnapshot, error)

// GraphIndex is the derived traversal structure of the relational backend.
// It is either stale (snap == nil) or built and consistent with the store as
// of the last rebuild. Any write invalidates the whole index and the next
// read rebuilds it. One mutex covers rebuild and use.
type GraphIndex struct {
	mu      sync.Mutex
	snap    *indexSnapshot
	load    snapshotLoader
	metrics *observability.Collector
}

func newGraphIndex(load snapshotLoader, metrics *observability.Collector) *GraphIndex {
	return &GraphIndex{load: load, metrics: metrics}
}

// Invalidate marks the index stale
func (g *GraphIndex) Invalidate() {
	g.mu.Lock()
	g.snap = nil
	g.mu.Unlock()
	g.metrics.ObserveIndexInvalidation()
}

// Built reports whether the index currently holds a snapshot
func (g *GraphIndex) Built() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap != nil
}

// with runs fn against a built snapshot, rebuilding first if stale
func (g *GraphIndex) with(ctx context.Context, fn func(*indexSnapshot)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.snap == nil {
		began := time.Now()
		snap, err := g.load(ctx)
		if err != nil {
			return err
		}
		g.snap = snap
		elapsed := time.Since(began)
		g.metrics.ObserveIndexRebuild(len(snap.nodes), snap.edges, elapsed)
		logger.Debug("graph index rebuilt", "nodes", len(snap.nodes), "edges", snap.edges, "took", elapsed)
	} else {
		g.metrics.ObserveIndexHit()
	}

	fn(g.snap)
	return nil
}
