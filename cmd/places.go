package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/platform-resolver/pkg/google"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Look up businesses in Google Places",
}

// placeSummary is the subset of a place needed to build a resolve request.
type placeSummary struct {
	PlaceID string  `json:"placeId"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Website string  `json:"website,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
	Reviews int     `json:"reviews,omitempty"`
}

func requireGoogle() (google.Client, error) {
	gc := newGoogleClient()
	if gc == nil {
		return nil, eris.New("places: RESOLVER_GOOGLE_KEY is not set")
	}
	return gc, nil
}

var placesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Text search for places matching a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := requireGoogle()
		if err != nil {
			return err
		}
		return runPlacesSearch(cmd.Context(), gc, strings.Join(args, " "), cmd.OutOrStdout())
	},
}

var placesDetailsCmd = &cobra.Command{
	Use:   "details <placeId>",
	Short: "Fetch one place's address, website and phone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := requireGoogle()
		if err != nil {
			return err
		}
		return runPlacesDetails(cmd.Context(), gc, args[0], cmd.OutOrStdout())
	},
}

func init() {
	placesCmd.AddCommand(placesSearchCmd, placesDetailsCmd)
	rootCmd.AddCommand(placesCmd)
}

func runPlacesSearch(ctx context.Context, gc google.Client, query string, w io.Writer) error {
	resp, err := gc.TextSearch(ctx, query)
	if err != nil {
		return eris.Wrap(err, "places: text search")
	}
	out := make([]placeSummary, 0, len(resp.Places))
	for _, p := range resp.Places {
		out = append(out, placeSummary{
			PlaceID: p.ID,
			Name:    p.DisplayName.Text,
			Address: p.FormattedAddress,
			Website: p.WebsiteURI,
			Rating:  p.Rating,
			Reviews: p.UserRatingCount,
		})
	}
	return writeIndented(w, out)
}

func runPlacesDetails(ctx context.Context, gc google.Client, placeID string, w io.Writer) error {
	d, err := gc.PlaceDetails(ctx, placeID)
	if err != nil {
		return eris.Wrap(err, "places: details")
	}
	return writeIndented(w, placeSummary{
		PlaceID: d.ID,
		Name:    d.DisplayName.Text,
		Address: d.FormattedAddress,
		Website: d.WebsiteURI,
		Phone:   d.NationalPhoneNumber,
	})
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
