package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
)

// Seeds a small demo supply chain: a trading network with a carousel ring,
// duplicate-financed invoices, a cascade group, a velocity burst and a
// diluted collection, so every detection engine has something to find.
func main() {
	wipe := flag.Bool("wipe", false, "Delete existing ledger rows before seeding.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	if *wipe {
		for _, model := range []interface{}{
			&models.FraudFlag{}, &models.Alert{}, &models.CashCollection{},
			&models.Invoice{}, &models.SupplyChainEdge{}, &models.Entity{},
		} {
			if err := db.WithContext(ctx).Where("1 = 1").Delete(model).Error; err != nil {
				fmt.Fprintf(os.Stderr, "wipe failed: %v\n", err)
				os.Exit(1)
			}
		}
	}

	entityIds := map[string]int{}
	for _, input := range demoEntities() {
		entity, err := models.CreateEntity(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed entity %s: %v\n", input.Name, err)
			os.Exit(1)
		}
		entityIds[input.Name] = entity.ID
	}

	for _, row := range demoEdges() {
		input := &models.NewSupplyChainEdge{
			FromEntityId:     entityIds[row.from],
			ToEntityId:       entityIds[row.to],
			TotalVolume:      row.volume,
			TransactionCount: row.count,
		}
		if _, err := models.CreateSupplyChainEdge(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "seed edge %s->%s: %v\n", row.from, row.to, err)
			os.Exit(1)
		}
	}

	invoiceIds := map[string]int{}
	for _, row := range demoInvoices() {
		input := row.input
		input.SupplierId = entityIds[row.supplier]
		input.BuyerId = entityIds[row.buyer]
		if row.lender != "" {
			lenderId := entityIds[row.lender]
			input.LenderId = &lenderId
		}
		invoice, err := models.BuildInvoice(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed invoice %s: %v\n", input.InvoiceNumber, err)
			os.Exit(1)
		}
		if err := db.WithContext(ctx).Create(invoice).Error; err != nil {
			fmt.Fprintf(os.Stderr, "seed invoice %s: %v\n", input.InvoiceNumber, err)
			os.Exit(1)
		}
		invoiceIds[input.InvoiceNumber] = invoice.ID
	}

	for _, row := range demoCollections() {
		input := &models.NewCashCollection{
			InvoiceId:       invoiceIds[row.invoiceNumber],
			ExpectedAmount:  row.expected,
			CollectedAmount: row.collected,
			CollectionDate:  row.date,
		}
		if _, err := models.CreateCashCollection(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "seed collection for %s: %v\n", row.invoiceNumber, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded %d entities, %d invoices\n", len(entityIds), len(invoiceIds))
}

func demoEntities() []*models.NewEntity {
	return []*models.NewEntity{
		{Name: "Meridian Retail Group", EntityType: "buyer", Tier: "tier_1", AnnualRevenue: "250000000", Country: "SG"},
		{Name: "Apex Components", EntityType: "supplier", Tier: "tier_1", AnnualRevenue: "40000000", Country: "MY"},
		{Name: "Delta Fabrication", EntityType: "supplier", Tier: "tier_2", AnnualRevenue: "12000000", Country: "VN"},
		{Name: "Orient Raw Materials", EntityType: "supplier", Tier: "tier_3", AnnualRevenue: "3000000", Country: "TH"},
		{Name: "Crestline Capital", EntityType: "lender", Tier: "none", AnnualRevenue: "500000000", Country: "SG"},
		{Name: "Harbor Finance", EntityType: "lender", Tier: "none", AnnualRevenue: "300000000", Country: "HK"},
		// the carousel ring
		{Name: "Quantum Trading Co", EntityType: "supplier", Tier: "tier_2", AnnualRevenue: "8000000", Country: "SG"},
		{Name: "Vertex Exports", EntityType: "supplier", Tier: "tier_2", AnnualRevenue: "7000000", Country: "MY"},
		{Name: "Polaris Goods", EntityType: "supplier", Tier: "tier_2", AnnualRevenue: "6000000", Country: "ID"},
	}
}

type edgeSeed struct {
	from, to string
	volume   string
	count    int
}

func demoEdges() []edgeSeed {
	return []edgeSeed{
		{"Apex Components", "Meridian Retail Group", "18000000", 120},
		{"Delta Fabrication", "Apex Components", "6500000", 80},
		{"Orient Raw Materials", "Delta Fabrication", "2100000", 60},
		{"Quantum Trading Co", "Vertex Exports", "900000", 12},
		{"Vertex Exports", "Polaris Goods", "880000", 11},
		{"Polaris Goods", "Quantum Trading Co", "870000", 10},
	}
}

type invoiceSeed struct {
	supplier, buyer, lender string
	input                   *models.NewInvoice
}

func strPtr(s string) *string { return &s }

func demoInvoices() []invoiceSeed {
	return []invoiceSeed{
		// clean baseline trade
		{"Apex Components", "Meridian Retail Group", "Crestline Capital", &models.NewInvoice{
			InvoiceNumber: "INV-1001", Tier: "tier_1", Amount: "120000",
			InvoiceDate: "2026-05-02", DueDate: "2026-07-01",
			PoNumber: strPtr("PO-5501"), GrnNumber: strPtr("GRN-7701"), DeliveryConfirmed: true,
		}},
		// duplicate financing: same content, two lenders
		{"Delta Fabrication", "Apex Components", "Crestline Capital", &models.NewInvoice{
			InvoiceNumber: "INV-2001", Tier: "tier_2", Amount: "85000",
			InvoiceDate: "2026-05-10", DueDate: "2026-07-09",
			PoNumber: strPtr("PO-5502"), DeliveryConfirmed: true,
		}},
		{"Delta Fabrication", "Apex Components", "Harbor Finance", &models.NewInvoice{
			InvoiceNumber: "INV-2001", Tier: "tier_2", Amount: "85000",
			InvoiceDate: "2026-05-10", DueDate: "2026-07-09",
			PoNumber: strPtr("PO-5502"), DeliveryConfirmed: true,
		}},
		// cascade group inflating across tiers
		{"Orient Raw Materials", "Delta Fabrication", "Crestline Capital", &models.NewInvoice{
			InvoiceNumber: "INV-3001", Tier: "tier_3", Amount: "10000",
			InvoiceDate: "2026-05-15", DueDate: "2026-07-14",
			DeliveryConfirmed: true, CascadeGroup: strPtr("CG-ALPHA"),
		}},
		{"Delta Fabrication", "Apex Components", "Crestline Capital", &models.NewInvoice{
			InvoiceNumber: "INV-3002", Tier: "tier_2", Amount: "15000",
			InvoiceDate: "2026-05-18", DueDate: "2026-07-17",
			DeliveryConfirmed: true, CascadeGroup: strPtr("CG-ALPHA"),
		}},
		{"Apex Components", "Meridian Retail Group", "Harbor Finance", &models.NewInvoice{
			InvoiceNumber: "INV-3003", Tier: "tier_1", Amount: "30000",
			InvoiceDate: "2026-05-21", DueDate: "2026-07-20",
			DeliveryConfirmed: true, CascadeGroup: strPtr("CG-ALPHA"),
		}},
		// same-day velocity burst
		{"Delta Fabrication", "Apex Components", "Harbor Finance", &models.NewInvoice{
			InvoiceNumber: "INV-4001", Tier: "tier_2", Amount: "30000",
			InvoiceDate: "2026-06-01", DueDate: "2026-07-31",
			DeliveryConfirmed: true,
		}},
		{"Delta Fabrication", "Apex Components", "Harbor Finance", &models.NewInvoice{
			InvoiceNumber: "INV-4002", Tier: "tier_2", Amount: "72000",
			InvoiceDate: "2026-06-01", DueDate: "2026-07-31",
			DeliveryConfirmed: true,
		}},
		// phantom: no PO, no GRN, delivery unconfirmed, amount is large
		// against supplier revenue
		{"Orient Raw Materials", "Delta Fabrication", "Harbor Finance", &models.NewInvoice{
			InvoiceNumber: "INV-5001", Tier: "tier_3", Amount: "900000",
			InvoiceDate: "2026-06-05", DueDate: "2026-08-04",
		}},
		// carousel ring invoices
		{"Quantum Trading Co", "Vertex Exports", "Crestline Capital", &models.NewInvoice{
			InvoiceNumber: "INV-6001", Tier: "tier_2", Amount: "45000",
			InvoiceDate: "2026-06-10", DueDate: "2026-08-09",
			PoNumber: strPtr("PO-6601"), DeliveryConfirmed: true,
		}},
		{"Vertex Exports", "Polaris Goods", "Crestline Capital", &models.NewInvoice{
			InvoiceNumber: "INV-6002", Tier: "tier_2", Amount: "44000",
			InvoiceDate: "2026-06-12", DueDate: "2026-08-11",
			PoNumber: strPtr("PO-6602"), DeliveryConfirmed: true,
		}},
		{"Polaris Goods", "Quantum Trading Co", "Crestline Capital", &models.NewInvoice{
			InvoiceNumber: "INV-6003", Tier: "tier_2", Amount: "43000",
			InvoiceDate: "2026-06-14", DueDate: "2026-08-13",
			PoNumber: strPtr("PO-6603"), DeliveryConfirmed: true,
		}},
	}
}

type collectionSeed struct {
	invoiceNumber string
	expected      string
	collected     string
	date          string
}

func demoCollections() []collectionSeed {
	return []collectionSeed{
		{"INV-1001", "120000", "118000", "2026-07-05"},
		// heavy dilution on the duplicate-financed trade
		{"INV-2001", "85000", "39000", "2026-07-12"},
	}
}
