package engines

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Cycle enumeration is exponential in the worst case; above this node count
// the carousel pass is skipped rather than risking a blow-up.
const MaxCycleSearchNodes = 400

const (
	minCarouselCycleLen = 3
	maxCarouselCycleLen = 6
)

// EntityGraph is the directed transaction network of one snapshot. Node ids
// are entity ids.
type EntityGraph struct {
	directed *simple.DirectedGraph
	snapshot *models.LedgerSnapshot
}

// BuildNetwork constructs the directed entity graph from the snapshot's
// supply-chain edges. Edges referencing unknown entities and self-loops are
// dropped.
func BuildNetwork(snapshot *models.LedgerSnapshot) *EntityGraph {

	g := simple.NewDirectedGraph()
	for id := range snapshot.Entities {
		g.AddNode(simple.Node(id))
	}
	for _, edge := range snapshot.Edges {
		if edge.FromEntityId == edge.ToEntityId {
			continue
		}
		from := g.Node(int64(edge.FromEntityId))
		to := g.Node(int64(edge.ToEntityId))
		if from == nil || to == nil {
			continue
		}
		g.SetEdge(simple.Edge{F: from, T: to})
	}
	return &EntityGraph{directed: g, snapshot: snapshot}
}

func (eg *EntityGraph) NodeCount() int {
	return eg.directed.Nodes().Len()
}

// DetectCarouselCycles enumerates simple directed cycles and keeps those of
// length 3 to 6, the characteristic range for carousel trading. Each cycle
// is returned as an open entity-id sequence.
func (eg *EntityGraph) DetectCarouselCycles() [][]int {

	if eg.NodeCount() > MaxCycleSearchNodes {
		return nil
	}

	var cycles [][]int
	for _, cycle := range topo.DirectedCyclesIn(eg.directed) {
		// topo closes each cycle by repeating the first node
		length := len(cycle) - 1
		if length < minCarouselCycleLen || length > maxCarouselCycleLen {
			continue
		}
		ids := make([]int, length)
		for i := 0; i < length; i++ {
			ids[i] = int(cycle[i].ID())
		}
		cycles = append(cycles, ids)
	}
	return cycles
}

// DetectCarouselFraud flags every invoice flowing along an edge of a
// retained cycle.
func DetectCarouselFraud(snapshot *models.LedgerSnapshot, cycles [][]int, index *FlagIndex) []*models.FraudFlag {

	var flags []*models.FraudFlag
	for _, cycle := range cycles {
		for i := range cycle {
			supplierId := cycle[i]
			buyerId := cycle[(i+1)%len(cycle)]
			for _, inv := range snapshot.Invoices {
				if inv.SupplierId != supplierId || inv.BuyerId != buyerId {
					continue
				}
				flags = index.emit(flags, &models.FraudFlag{
					InvoiceId:  inv.ID,
					FraudType:  models.FraudTypeCarouselTrade,
					Engine:     EngineGraphAnalytics,
					Confidence: 0.85,
					Severity:   models.FlagSeverityCritical,
					Description: fmt.Sprintf("invoice sits on cycle of %d entities starting at entity %d",
						len(cycle), cycle[0]),
				})
			}
		}
	}
	return flags
}

// Communities partitions the undirected projection of the graph by
// modularity maximization. The Louvain pass can panic on pathological
// graphs; connected components are the defined-safe fallback.
func (eg *EntityGraph) Communities() (communities [][]int) {

	undirected := simple.NewUndirectedGraph()
	nodes := eg.directed.Nodes()
	for nodes.Next() {
		undirected.AddNode(nodes.Node())
	}
	edges := eg.directed.Edges()
	for edges.Next() {
		e := edges.Edge()
		if e.From().ID() == e.To().ID() {
			continue
		}
		undirected.SetEdge(simple.Edge{F: e.From(), T: e.To()})
	}

	defer func() {
		if r := recover(); r != nil {
			communities = groupsToIds(topo.ConnectedComponents(undirected))
		}
	}()

	// fixed source keeps the partition deterministic across runs
	reduced := community.Modularize(undirected, 1, rand.NewPCG(1, 1))
	return groupsToIds(reduced.Communities())
}

func groupsToIds(groups [][]graph.Node) [][]int {
	result := make([][]int, 0, len(groups))
	for _, group := range groups {
		ids := make([]int, 0, len(group))
		for _, node := range group {
			ids = append(ids, int(node.ID()))
		}
		sort.Ints(ids)
		result = append(result, ids)
	}
	return result
}

// ComputeEntityRiskScores scores every node from normalized PageRank
// (weight 50) and normalized betweenness (weight 30), plus a flat 20 for
// membership in any retained carousel cycle. The result replaces the stored
// entity risk scores outright.
func (eg *EntityGraph) ComputeEntityRiskScores(cycles [][]int) map[int]float64 {

	inCycle := map[int]bool{}
	for _, cycle := range cycles {
		for _, id := range cycle {
			inCycle[id] = true
		}
	}

	pageRank := network.PageRank(eg.directed, 0.85, 1e-6)
	betweenness := network.Betweenness(eg.directed)

	maxPr := 0.0
	for _, pr := range pageRank {
		if pr > maxPr {
			maxPr = pr
		}
	}
	if maxPr == 0 {
		maxPr = 1
	}
	maxBc := 0.0
	for _, bc := range betweenness {
		if bc > maxBc {
			maxBc = bc
		}
	}
	if maxBc == 0 {
		maxBc = 1
	}

	scores := map[int]float64{}
	nodes := eg.directed.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		score := pageRank[id]/maxPr*50 + betweenness[id]/maxBc*30
		if inCycle[int(id)] {
			score += 20
		}
		if score > 100 {
			score = 100
		}
		scores[int(id)] = math.Round(score*10) / 10
	}
	return scores
}

type NetworkNode struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Tier      string  `json:"tier"`
	RiskScore float64 `json:"risk_score"`
	Size      float64 `json:"size"`
}

type NetworkEdge struct {
	Source       int     `json:"source"`
	Target       int     `json:"target"`
	Relationship string  `json:"relationship"`
	Volume       string  `json:"volume"`
	RiskScore    float64 `json:"risk_score"`
}

type NetworkData struct {
	Nodes          []NetworkNode `json:"nodes"`
	Edges          []NetworkEdge `json:"edges"`
	Communities    [][]int       `json:"communities"`
	CarouselCycles [][]int       `json:"carousel_cycles"`
}

// nodeSize scales declared annual revenue into a display size in [10,50].
func nodeSize(entity *models.Entity) float64 {
	size, _ := entity.AnnualRevenue.Float64()
	size = size / 1e6
	if size < 10 {
		return 10
	}
	if size > 50 {
		return 50
	}
	return size
}

// ComputeNetwork assembles the full analytics payload: nodes, edges,
// communities and retained carousel cycles.
func ComputeNetwork(snapshot *models.LedgerSnapshot) *NetworkData {

	eg := BuildNetwork(snapshot)
	cycles := eg.DetectCarouselCycles()

	data := NetworkData{
		Communities:    eg.Communities(),
		CarouselCycles: cycles,
	}

	ids := make([]int, 0, len(snapshot.Entities))
	for id := range snapshot.Entities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		entity := snapshot.Entities[id]
		data.Nodes = append(data.Nodes, NetworkNode{
			ID:        entity.ID,
			Name:      entity.Name,
			Type:      string(entity.EntityType),
			Tier:      string(entity.Tier),
			RiskScore: entity.RiskScore,
			Size:      nodeSize(entity),
		})
	}
	for _, edge := range snapshot.Edges {
		data.Edges = append(data.Edges, NetworkEdge{
			Source:       edge.FromEntityId,
			Target:       edge.ToEntityId,
			Relationship: edge.Relationship,
			Volume:       edge.TotalVolume.StringFixed(2),
			RiskScore:    edge.RiskScore,
		})
	}
	return &data
}
