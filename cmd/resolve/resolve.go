package resolve

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/offacts"
	"github.com/nutriscan/arnutri-go/internal/resolver"
)

// Command creates a one-shot resolution command: look up a barcode or a
// food name and print the nutrition record to stdout.
func Command(settings *conf.Settings) *cobra.Command {
	var asText bool

	cmd := &cobra.Command{
		Use:   "resolve [barcode or food name]",
		Short: "Resolve a single product and print its nutrition record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(settings, args[0], asText)
		},
	}

	cmd.Flags().BoolVar(&asText, "text", false, "Treat the argument as a food name instead of a barcode")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func runResolve(settings *conf.Settings, identifier string, asText bool) error {
	client, err := offacts.NewClient(offacts.Config{
		BaseURL:     settings.Lookup.BaseURL,
		Timeout:     settings.Lookup.Timeout,
		RateLimitMS: settings.Lookup.RateLimitMS,
		UserAgent:   settings.Lookup.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize product lookup client: %w", err)
	}

	res := resolver.New(resolver.NewProductCache(), client, nil)

	kind := resolver.KindBarcode
	if asText {
		kind = resolver.KindText
	}

	ctx, cancel := context.WithTimeout(context.Background(), settings.Lookup.Timeout)
	defer cancel()

	result := res.Resolve(ctx, identifier, kind)

	fmt.Printf("Outcome: %s\n", result.Outcome)
	if result.Outcome == resolver.OutcomeNotFound {
		fmt.Printf("Product not found for barcode: %s\n", identifier)
		return nil
	}

	fmt.Printf("%s\n", result.Record.Title)
	for _, field := range result.Record.Fields {
		fmt.Printf("  %-12s %s\n", field.Label+":", field.Value)
	}

	return nil
}
