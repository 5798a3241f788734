package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kashyap0729/good-will-hunting/internal/bootstrap"
	"github.com/kashyap0729/good-will-hunting/internal/config"
	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/service"
)

// seedReport is printed once seeding finishes
type seedReport struct {
	Store        string   `json:"store"`
	CatalogItems int      `json:"catalog_items"`
	Locations    []string `json:"locations"`
	Skipped      []string `json:"skipped_locations,omitempty"`
	MissingItems int      `json:"missing_items"`
	Donors       []string `json:"donors"`
}

func main() {
	rulesPath := flag.String("rules", "", "Path to a rules YAML file (default: RULES_PATH)")
	donors := flag.String("donors", "Ana,Ben,Chloe", "Comma-separated display names of demo donors")
	timeout := flag.Duration("timeout", time.Minute, "Overall seeding timeout")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *rulesPath == "" {
		*rulesPath = cfg.RulesPath
	}

	rulesFile, err := config.LoadRules(*rulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rules: %v\n", err)
		os.Exit(1)
	}
	ruleSet, err := rulesFile.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid rules: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	locations := service.NewLocationService(service.LocationServiceConfig{Store: store, Rules: ruleSet})
	donorService := service.NewDonorService(service.DonorServiceConfig{Store: store, Rules: ruleSet})

	report, err := seed(ctx, locations, donorService, rulesFile, splitNames(*donors))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding: %v\n", err)
		os.Exit(1)
	}
	report.Store = store.Driver

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}

	fmt.Println("Seed Complete")
	fmt.Println("=============")
	fmt.Printf("Store:         %s\n", report.Store)
	fmt.Printf("Catalog items: %d\n", report.CatalogItems)
	fmt.Printf("Locations:     %d (skipped %d existing)\n", len(report.Locations), len(report.Skipped))
	fmt.Printf("Missing items: %d\n", report.MissingItems)
	fmt.Println()
	fmt.Println("Donors:")
	for _, id := range report.Donors {
		fmt.Printf("  %s\n", id)
	}
	if len(report.Locations) > 0 {
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Printf("  curl -X POST http://localhost:%s/v1/donations -d '{\"user_id\":\"<donor>\",\"location_id\":\"%s\",\"item_type\":\"Winter Coats\",\"quantity\":2}'\n",
			cfg.Server.Port, report.Locations[0])
	}
}

// locationSeeder is satisfied by service.LocationService
type locationSeeder interface {
	ImportCatalog(ctx context.Context, entries []model.ItemCatalogEntry) error
	List(ctx context.Context) ([]*model.StorageLocation, error)
	Provision(ctx context.Context, req *model.ProvisionLocationRequest) (*model.StorageLocation, error)
	OpenMissingItem(ctx context.Context, locationID string, req *model.CreateMissingItemRequest) (*model.MissingItemRequest, error)
}

type donorSeeder interface {
	Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error)
}

// seed imports the catalog, provisions locations not already present by
// name and registers one donor per name
func seed(ctx context.Context, locations locationSeeder, donors donorSeeder, rulesFile *config.RulesFile, names []string) (*seedReport, error) {
	report := &seedReport{}

	entries := rulesFile.CatalogEntries()
	if err := locations.ImportCatalog(ctx, entries); err != nil {
		return nil, fmt.Errorf("import catalog: %w", err)
	}
	report.CatalogItems = len(entries)

	existing, err := locations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, loc := range existing {
		known[loc.Name] = true
	}

	for _, sl := range rulesFile.Locations {
		if known[sl.Name] {
			report.Skipped = append(report.Skipped, sl.Name)
			continue
		}
		loc, err := locations.Provision(ctx, sl.Request())
		if err != nil {
			return nil, fmt.Errorf("provision %q: %w", sl.Name, err)
		}
		for _, mi := range sl.MissingItems {
			if _, err := locations.OpenMissingItem(ctx, loc.ID, mi.Request()); err != nil {
				return nil, fmt.Errorf("open missing %q at %q: %w", mi.ItemType, sl.Name, err)
			}
			report.MissingItems++
		}
		report.Locations = append(report.Locations, loc.ID)
	}

	for _, name := range names {
		user, err := donors.Register(ctx, &model.RegisterUserRequest{DisplayName: name})
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", name, err)
		}
		report.Donors = append(report.Donors, user.ID)
	}
	return report, nil
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}
