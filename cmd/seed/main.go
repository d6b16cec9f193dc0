package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/auth"
	"github.com/assemblymk1/localgov/internal/db"
	"github.com/assemblymk1/localgov/internal/repo"
	"github.com/assemblymk1/localgov/internal/util"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	ctx := context.Background()

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DB_DSN"))
	}
	if dsn == "" {
		log.Fatal().Msg("set DATABASE_URL or DB_DSN")
	}

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to connect to the database")
	}
	defer pool.Close()

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "migrate":
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("schema applied")
	case "demo":
		if err := runDemo(ctx, pool, args); err != nil {
			log.Fatal().Err(err).Msg("demo seed failed")
		}
	case "promote":
		if err := runPromote(ctx, pool, args); err != nil {
			log.Fatal().Err(err).Msg("promote failed")
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "seed CLI")
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  seed migrate")
	fmt.Fprintln(os.Stderr, "  seed demo [--email demo@localgov.test] [--password demo1234] [--name \"Demo Resident\"]")
	fmt.Fprintln(os.Stderr, "  seed promote --email admin@council.gov")
}

func runPromote(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	email := fs.String("email", "", "resident email to grant the admin flag")
	revoke := fs.Bool("revoke", false, "remove the admin flag instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("email is required")
	}

	if err := repo.New(pool).SetResidentAdmin(ctx, util.NormalizeEmail(*email), !*revoke); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("no resident with email %s", *email)
		}
		return err
	}
	log.Info().Str("email", *email).Bool("admin", !*revoke).Msg("resident updated")
	return nil
}

func runDemo(ctx context.Context, pool *pgxpool.Pool, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		email    = fs.String("email", "demo@localgov.test", "demo resident email")
		password = fs.String("password", "demo1234", "demo resident password")
		name     = fs.String("name", "Demo Resident", "demo resident name")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := util.RequireString(*password, "password"); err != nil {
		return err
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var resident repo.Resident
	err = db.WithTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		q := repo.New(pool).WithTx(tx)
		resident, err = seedDemo(ctx, q, repo.CreateResidentParams{
			Name:         strings.TrimSpace(*name),
			Email:        util.NormalizeEmail(*email),
			PasswordHash: hash,
			CreatedAt:    util.Now(),
		})
		return err
	})
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(map[string]any{"resident_id": resident.ID, "email": resident.Email}, "", "  ")
	fmt.Println(string(output))
	return nil
}

type demoCouncil struct {
	name       string
	slug       string
	population int
}

type demoProperty struct {
	council   int
	address   string
	kind      string
	zone      string
	landSqm   float64
	landCents int64
	account   string
	balance   int64
	overlay   string
	binSize   int
	binDay    string
}

var (
	demoCouncils = []demoCouncil{
		{name: "Riverbend City Council", slug: "riverbend", population: 84210},
		{name: "Hillcrest Shire Council", slug: "hillcrest", population: 23760},
	}
	demoProperties = []demoProperty{
		{council: 0, address: "12 Wattle Street, Riverbend", kind: "Residential", zone: "General Residential",
			landSqm: 612.5, landCents: 41_000_000, account: "RB-000123", balance: 48_250, overlay: "Flood", binSize: 240, binDay: "Tuesday"},
		{council: 1, address: "3 Ridge Road, Hillcrest", kind: "Rural Residential", zone: "Rural Living",
			landSqm: 4050, landCents: 29_500_000, account: "HC-004512", balance: 0, overlay: "Bushfire", binSize: 120, binDay: "Thursday"},
	}
)

func seedDemo(ctx context.Context, q *repo.Queries, params repo.CreateResidentParams) (repo.Resident, error) {
	now := util.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	councilIDs := make([]int64, len(demoCouncils))
	for i, c := range demoCouncils {
		id, err := seedCouncil(ctx, q, c, today)
		if err != nil {
			return repo.Resident{}, fmt.Errorf("council %s: %w", c.name, err)
		}
		councilIDs[i] = id
	}

	resident, err := q.UpsertResident(ctx, params)
	if err != nil {
		return repo.Resident{}, fmt.Errorf("resident: %w", err)
	}

	var firstPropertyID int64
	for i, p := range demoProperties {
		propertyID, err := seedProperty(ctx, q, resident.ID, councilIDs[p.council], p, today)
		if err != nil {
			return repo.Resident{}, fmt.Errorf("property %s: %w", p.address, err)
		}
		if i == 0 {
			firstPropertyID = propertyID
		}
	}

	submitted := today.AddDate(0, -1, 0)
	if err := q.ReplaceDevelopmentApplications(ctx, resident.ID, []repo.DevelopmentApplication{
		{
			PropertyID:         firstPropertyID,
			CouncilID:          councilIDs[0],
			ApplicationType:    "Residential Extension",
			Status:             "Under Assessment",
			SubmissionDate:     &submitted,
			EstimatedCostCents: int64Ptr(8_500_000),
			Description:        strPtr("Rear deck and pergola"),
		},
	}); err != nil {
		return repo.Resident{}, fmt.Errorf("development applications: %w", err)
	}

	log.Info().Int64("resident_id", resident.ID).Int("properties", len(demoProperties)).Msg("demo data seeded")
	return resident, nil
}

func seedCouncil(ctx context.Context, q *repo.Queries, c demoCouncil, today time.Time) (int64, error) {
	base := "https://" + c.slug + ".localgov.test"
	councilID, err := q.UpsertCouncil(ctx, repo.Council{
		Name:       c.name,
		LogoURL:    strPtr("https://static.localgov.test/" + c.slug + ".png"),
		Population: intPtr(c.population),
	})
	if err != nil {
		return 0, err
	}
	if err := q.UpsertCouncilContact(ctx, repo.CouncilContact{
		CouncilID:          councilID,
		QueryValuationURL:  strPtr(base + "/rates/valuation-query"),
		ApplyConcessionURL: strPtr(base + "/rates/concessions"),
		ChangeAddressURL:   strPtr(base + "/rates/change-address"),
	}); err != nil {
		return 0, fmt.Errorf("contact: %w", err)
	}

	nextCollection := today.AddDate(0, 0, 3)
	if err := q.ReplaceWasteCollections(ctx, councilID, []repo.WasteCollection{
		{CollectionType: "General Waste", CollectionDay: strPtr("Tuesday"), CollectionFrequency: strPtr("Weekly"), NextCollectionDate: &nextCollection},
		{CollectionType: "Recycling", CollectionDay: strPtr("Tuesday"), CollectionFrequency: strPtr("Fortnightly"), NextCollectionDate: &nextCollection},
	}); err != nil {
		return 0, fmt.Errorf("waste collections: %w", err)
	}

	if err := q.ReplaceAnimals(ctx, councilID, []repo.Animal{
		{Name: "Biscuit", Species: "Dog", Breed: strPtr("Kelpie cross"), Sex: strPtr("Male"), Age: strPtr("3 years"), Temperament: strPtr("Friendly"), Status: repo.AnimalAvailable},
		{Name: "Mochi", Species: "Cat", Sex: strPtr("Female"), Age: strPtr("1 year"), Status: repo.AnimalAvailable},
		{Name: "Rex", Species: "Dog", Status: repo.AnimalAdopted},
	}); err != nil {
		return 0, fmt.Errorf("animals: %w", err)
	}
	return councilID, nil
}

func seedProperty(ctx context.Context, q *repo.Queries, residentID, councilID int64, p demoProperty, today time.Time) (int64, error) {
	propertyID, err := q.EnsureProperty(ctx, repo.Property{
		ResidentID:         residentID,
		CouncilID:          councilID,
		Address:            p.address,
		PropertyType:       strPtr(p.kind),
		Zone:               strPtr(p.zone),
		LandSizeSqm:        float64Ptr(p.landSqm),
		LandValueCents:     int64Ptr(p.landCents),
		PropertyValueCents: int64Ptr(p.landCents * 2),
	})
	if err != nil {
		return 0, err
	}

	instalment := p.balance / 4
	nextDue := today.AddDate(0, 1, 0)
	plan := make([]repo.Instalment, 0, 4)
	for seq := 1; seq <= 4; seq++ {
		plan = append(plan, repo.Instalment{
			Seq:         seq,
			DueDate:     today.AddDate(0, 3*(seq-1)-2, 0).Format(time.DateOnly),
			AmountCents: instalment,
		})
	}

	accountID, err := q.UpsertRatesAccount(ctx, repo.RatesAccount{
		PropertyID:        propertyID,
		AccountNumber:     p.account,
		BalanceCents:      p.balance,
		NextDueDate:       &nextDue,
		InstalmentPlan:    plan,
		DirectDebitActive: p.balance > 0,
		EbillActive:       p.balance == 0,
	})
	if err != nil {
		return 0, fmt.Errorf("rates account: %w", err)
	}

	var invoices []repo.RatesInvoice
	for i := 3; i >= 1; i-- {
		issued := today.AddDate(0, -3*i, 0)
		due := issued.AddDate(0, 1, 0)
		status := repo.InvoicePaid
		if i == 1 && p.balance > 0 {
			status = repo.InvoiceIssued
		}
		invoices = append(invoices, repo.RatesInvoice{
			IssueDate:     issued,
			DueDate:       &due,
			AmountCents:   48_250,
			Status:        status,
			PaymentMethod: strPtr("direct_debit"),
			PDFURL:        strPtr(fmt.Sprintf("https://static.localgov.test/invoices/%s-%d.pdf", p.account, i)),
		})
	}
	if err := q.ReplaceRatesInvoices(ctx, accountID, invoices); err != nil {
		return 0, fmt.Errorf("invoices: %w", err)
	}

	for i, year := 0, today.Year()-3; year < today.Year(); i, year = i+1, year+1 {
		if err := q.UpsertValuation(ctx, repo.Valuation{
			PropertyID:        propertyID,
			Year:              year,
			LandValueCents:    int64Ptr(p.landCents - int64(2-i)*1_500_000),
			CapitalValueCents: int64Ptr(p.landCents*2 - int64(2-i)*3_000_000),
		}); err != nil {
			return 0, fmt.Errorf("valuation %d: %w", year, err)
		}
	}

	if err := q.ReplaceConcessions(ctx, propertyID, []repo.Concession{
		{Type: "Pensioner", Status: "eligible", LinkApply: strPtr("https://static.localgov.test/concessions")},
	}); err != nil {
		return 0, fmt.Errorf("concessions: %w", err)
	}
	if err := q.ReplaceOverlays(ctx, propertyID, []repo.PropertyOverlay{
		{Kind: p.overlay, Source: strPtr("Local Environmental Plan 2021")},
	}); err != nil {
		return 0, fmt.Errorf("overlays: %w", err)
	}
	if err := q.UpsertWasteEntitlement(ctx, repo.WasteEntitlement{
		PropertyID:    propertyID,
		BinSizeL:      intPtr(p.binSize),
		ExtraBins:     0,
		CollectionDay: strPtr(p.binDay),
	}); err != nil {
		return 0, fmt.Errorf("waste entitlement: %w", err)
	}

	var readings []repo.WaterConsumption
	for i := 1; i <= 4; i++ {
		readings = append(readings, repo.WaterConsumption{
			ReadingDate: today.AddDate(0, -3*i, 0),
			UsageLitres: int64(42_000 + i*1_200),
			AmountCents: int64(9_800 + i*150),
		})
	}
	if err := q.ReplaceWaterConsumptions(ctx, propertyID, readings); err != nil {
		return 0, fmt.Errorf("water: %w", err)
	}
	return propertyID, nil
}

func strPtr(v string) *string       { return &v }
func intPtr(v int) *int             { return &v }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
