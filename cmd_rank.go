package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"property-valuation/config"
	"property-valuation/models"
	"property-valuation/services"
	"property-valuation/storage"
)

type rankOptions struct {
	location   string
	identifier string

	minPrice, maxPrice       int
	minBedrooms, maxBedrooms int

	valuation models.ValuationParameters

	top     int
	csvPath string
}

func newRankCommand() *cobra.Command {
	opts := &rankOptions{}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank purchase candidates for one search and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			return runRank(cmd.Context(), cfg, cmd.Flags(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.location, "location", "", "location name; resolved through typeahead when --location-id is empty")
	f.StringVar(&opts.identifier, "location-id", "", "portal location identifier, e.g. REGION^87490")
	f.IntVar(&opts.minPrice, "min-price", 0, "minimum asking price")
	f.IntVar(&opts.maxPrice, "max-price", 0, "maximum asking price")
	f.IntVar(&opts.minBedrooms, "min-bedrooms", 0, "minimum bedrooms")
	f.IntVar(&opts.maxBedrooms, "max-bedrooms", 0, "maximum bedrooms")
	f.IntVar(&opts.valuation.MinDeposit, "min-deposit", 0, "minimum deposit (recorded, not used in scoring)")
	f.IntVar(&opts.valuation.MaxDeposit, "deposit", 40000, "deposit paid up front")
	f.IntVar(&opts.valuation.MortgageLength, "mortgage-length", 25, "mortgage term in years")
	f.Float64Var(&opts.valuation.MortgageInterestRate, "interest-rate", 3.0, "annual mortgage interest rate in percent")
	f.IntVar(&opts.valuation.InvestmentIncrease, "investment-increase", 0, "extra up-front cost")
	f.IntVar(&opts.valuation.InvestmentDeduction, "investment-deduction", 0, "up-front cost reduction")
	f.IntVar(&opts.valuation.RentIncrease, "rent-increase", 0, "monthly rent uplift")
	f.IntVar(&opts.valuation.RentDeduction, "rent-deduction", 0, "monthly rent reduction")
	f.IntVar(&opts.top, "top", 0, "rows to print (default: TOP_RESULTS)")
	f.StringVar(&opts.csvPath, "csv", "", "also export the ranking to this CSV file")
	return cmd
}

func runRank(ctx context.Context, cfg *config.Config, flags *pflag.FlagSet, opts *rankOptions) error {
	a := newApp(ctx, cfg)
	defer a.Close()

	location, err := resolveLocation(ctx, a.locations, opts)
	if err != nil {
		return err
	}

	search, err := opts.search(flags, location, cfg.SearchRadius)
	if err != nil {
		return err
	}

	valuations, err := a.valuations.RankProperties(ctx, search, opts.valuation)
	if err != nil {
		return fmt.Errorf("rank %s: %w", location.DisplayName, err)
	}

	top := opts.top
	if top <= 0 {
		top = cfg.TopResults
	}
	if len(valuations) > top {
		valuations = valuations[:top]
	}

	insights := services.NewInsightService(a.logger)
	insights.Print(os.Stdout, insights.Generate(valuations))

	if opts.csvPath != "" {
		if err := exportCSV(opts.csvPath, valuations); err != nil {
			return err
		}
		a.logger.Info("Ranking saved to %s", opts.csvPath)
	}
	return nil
}

func resolveLocation(ctx context.Context, finder *services.LocationEngine, opts *rankOptions) (models.Location, error) {
	if opts.identifier != "" {
		name := opts.location
		if name == "" {
			name = opts.identifier
		}
		return models.Location{DisplayName: name, Identifier: opts.identifier}, nil
	}
	if strings.TrimSpace(opts.location) == "" {
		return models.Location{}, errors.New("one of --location or --location-id is required")
	}

	locations, err := finder.FindLocations(ctx, opts.location)
	if err != nil {
		return models.Location{}, fmt.Errorf("resolve location %q: %w", opts.location, err)
	}
	if len(locations) == 0 {
		return models.Location{}, fmt.Errorf("no location matches %q", opts.location)
	}
	return locations[0], nil
}

// search builds the purchase search. Bounds left unset on the command line stay open.
func (o *rankOptions) search(flags *pflag.FlagSet, location models.Location, radius float64) (models.SearchParameters, error) {
	bound := func(name string, v int) *int {
		if !flags.Changed(name) {
			return nil
		}
		return &v
	}

	price, err := models.NewIntRange(bound("min-price", o.minPrice), bound("max-price", o.maxPrice))
	if err != nil {
		return models.SearchParameters{}, fmt.Errorf("price: %w", err)
	}
	bedrooms, err := models.NewIntRange(bound("min-bedrooms", o.minBedrooms), bound("max-bedrooms", o.maxBedrooms))
	if err != nil {
		return models.SearchParameters{}, fmt.Errorf("bedrooms: %w", err)
	}

	return models.NewSearchParameters(
		location, radius, price, bedrooms, nil,
		models.AllPropertyTypes,
		nil,
		[]models.DontShow{models.DontShowSharedOwnership},
		models.AllFurnishTypes,
		models.CategoryBuy,
	)
}

func exportCSV(path string, valuations []models.Valuation) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	return writeAndClose(w, valuations)
}

func writeAndClose(w storage.ValuationWriter, valuations []models.Valuation) error {
	if err := w.WriteValuations(valuations); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
