package engines

import (
	"math"
	"sort"
	"testing"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
)

func ringSnapshot() *models.LedgerSnapshot {
	snapshot := testSnapshot(
		testInvoice(1, 1, 2, 45_000, "2026-06-10"),
		testInvoice(2, 2, 3, 44_000, "2026-06-12"),
		testInvoice(3, 3, 1, 43_000, "2026-06-14"),
	)
	for id := 1; id <= 3; id++ {
		snapshot.Entities[id] = testEntity(id, "ring", models.EntityTypeSupplier, 5_000_000)
	}
	snapshot.Edges = []*models.SupplyChainEdge{
		{ID: 1, FromEntityId: 1, ToEntityId: 2},
		{ID: 2, FromEntityId: 2, ToEntityId: 3},
		{ID: 3, FromEntityId: 3, ToEntityId: 1},
	}
	return snapshot
}

func TestCarouselCycleDetection(t *testing.T) {
	snapshot := ringSnapshot()
	cycles := BuildNetwork(snapshot).DetectCarouselCycles()
	if len(cycles) != 1 {
		t.Fatalf("expected one retained cycle, got %d", len(cycles))
	}
	if len(cycles[0]) != 3 {
		t.Fatalf("expected a 3-entity cycle, got %d entities", len(cycles[0]))
	}
	ids := append([]int(nil), cycles[0]...)
	sort.Ints(ids)
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("unexpected cycle members %v", ids)
	}
}

func TestCarouselFraudFlagsEveryEdgeInvoice(t *testing.T) {
	snapshot := ringSnapshot()
	graph := BuildNetwork(snapshot)
	cycles := graph.DetectCarouselCycles()

	flags := DetectCarouselFraud(snapshot, cycles, emptyIndex())
	if len(flags) != 3 {
		t.Fatalf("a 3-node ring with one invoice per edge must raise exactly 3 flags, got %d", len(flags))
	}
	flagged := map[int]bool{}
	for _, flag := range flags {
		if flag.Confidence != 0.85 || flag.Severity != models.FlagSeverityCritical {
			t.Fatalf("want 0.85/critical, got %v/%s", flag.Confidence, flag.Severity)
		}
		if flag.FraudType != models.FraudTypeCarouselTrade || flag.Engine != EngineGraphAnalytics {
			t.Fatalf("unexpected identity %s/%s", flag.FraudType, flag.Engine)
		}
		flagged[flag.InvoiceId] = true
	}
	if !flagged[1] || !flagged[2] || !flagged[3] {
		t.Fatalf("each edge invoice must be flagged once, got %v", flagged)
	}
}

func TestTwoNodeCycleNotRetained(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.Entities[1] = testEntity(1, "a", models.EntityTypeSupplier, 1_000_000)
	snapshot.Entities[2] = testEntity(2, "b", models.EntityTypeBuyer, 1_000_000)
	snapshot.Edges = []*models.SupplyChainEdge{
		{ID: 1, FromEntityId: 1, ToEntityId: 2},
		{ID: 2, FromEntityId: 2, ToEntityId: 1},
	}

	cycles := BuildNetwork(snapshot).DetectCarouselCycles()
	if len(cycles) != 0 {
		t.Fatalf("2-node cycles are below the carousel range, got %v", cycles)
	}
}

func TestEntityRiskScoresCycleBonus(t *testing.T) {
	snapshot := ringSnapshot()
	// a hanger-on outside the ring
	snapshot.Entities[4] = testEntity(4, "outside", models.EntityTypeBuyer, 1_000_000)
	snapshot.Edges = append(snapshot.Edges, &models.SupplyChainEdge{ID: 4, FromEntityId: 1, ToEntityId: 4})

	graph := BuildNetwork(snapshot)
	cycles := graph.DetectCarouselCycles()
	scores := graph.ComputeEntityRiskScores(cycles)

	if len(scores) != 4 {
		t.Fatalf("every node must be scored, got %d scores", len(scores))
	}
	for id := 1; id <= 3; id++ {
		if scores[id] < 20 {
			t.Fatalf("ring member %d must carry the +20 cycle penalty, got %v", id, scores[id])
		}
	}
	if scores[4] >= 20 && scores[4] >= scores[1] {
		t.Fatalf("outside node must not dominate ring members, got %v vs %v", scores[4], scores[1])
	}
	for id, score := range scores {
		if score < 0 || score > 100 {
			t.Fatalf("score for %d out of range: %v", id, score)
		}
		if math.Round(score*10)/10 != score {
			t.Fatalf("score for %d not rounded to one decimal: %v", id, score)
		}
	}
}

func TestMaxPageRankNodeGetsFullWeight(t *testing.T) {
	// star: everyone points at node 1, so node 1 holds the max PageRank
	snapshot := testSnapshot()
	for id := 1; id <= 4; id++ {
		snapshot.Entities[id] = testEntity(id, "star", models.EntityTypeSupplier, 1_000_000)
	}
	snapshot.Edges = []*models.SupplyChainEdge{
		{ID: 1, FromEntityId: 2, ToEntityId: 1},
		{ID: 2, FromEntityId: 3, ToEntityId: 1},
		{ID: 3, FromEntityId: 4, ToEntityId: 1},
	}

	graph := BuildNetwork(snapshot)
	scores := graph.ComputeEntityRiskScores(nil)
	// no cycles, no betweenness on a star's hub: score is the PageRank term
	if scores[1] != 50 {
		t.Fatalf("max-PageRank node must score 50 from the PageRank term, got %v", scores[1])
	}
}

func TestCommunitiesCoverAllNodes(t *testing.T) {
	snapshot := ringSnapshot()
	snapshot.Entities[4] = testEntity(4, "island", models.EntityTypeBuyer, 1_000_000)

	communities := BuildNetwork(snapshot).Communities()
	seen := map[int]bool{}
	for _, community := range communities {
		for _, id := range community {
			seen[id] = true
		}
	}
	for id := 1; id <= 4; id++ {
		if !seen[id] {
			t.Fatalf("entity %d missing from community partition %v", id, communities)
		}
	}
}

func TestNetworkPayloadShape(t *testing.T) {
	snapshot := ringSnapshot()
	data := ComputeNetwork(snapshot)

	if len(data.Nodes) != 3 || len(data.Edges) != 3 {
		t.Fatalf("want 3 nodes and 3 edges, got %d/%d", len(data.Nodes), len(data.Edges))
	}
	for _, node := range data.Nodes {
		if node.Size < 10 || node.Size > 50 {
			t.Fatalf("node size must stay in [10,50], got %v", node.Size)
		}
	}
	if len(data.CarouselCycles) != 1 {
		t.Fatalf("payload must carry the retained cycle, got %v", data.CarouselCycles)
	}
}
