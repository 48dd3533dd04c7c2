package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bloomwatch/backend/internal/appeears"
	"github.com/bloomwatch/backend/internal/config"
	"github.com/bloomwatch/backend/internal/domain"
	"github.com/bloomwatch/backend/internal/phenology"
)

var (
	classifyCrop    string
	classifyHorizon float64
)

// classifyCmd runs the phenology classifier over a local CSV
var classifyCmd = &cobra.Command{
	Use:   "classify [file.csv]",
	Short: "Classify a date,ndvi CSV into a phenology stage",
	Long: `classify reads a CSV with a date column and an NDVI column (the AppEEARS
point results layout works as is) from a file or stdin and prints the stage
analysis as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := config.LoadThresholds(envFile)
		if err != nil {
			return err
		}

		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}
			defer f.Close()
			in = f
		}

		result, err := classifyCSV(in, phenology.NewClassifier(th), classifyCrop, classifyHorizon)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyCrop, "crop", "", "crop name (walnut/nogal, apple/manzana, cotton/algodon, corn/maiz, alfalfa)")
	classifyCmd.Flags().Float64Var(&classifyHorizon, "horizon", phenology.DefaultHorizonDays, "forecast horizon in days")
}

type classifyOutput struct {
	Analysis domain.AnalysisResult `json:"analysis"`
	Vigor    *domain.Vigor         `json:"vigor,omitempty"`
}

func classifyCSV(r io.Reader, c *phenology.Classifier, crop string, horizon float64) (classifyOutput, error) {
	if horizon < 0 {
		return classifyOutput{}, fmt.Errorf("classify: horizon must not be negative")
	}
	points, err := appeears.ParseSeriesCSV(r)
	if err != nil {
		return classifyOutput{}, fmt.Errorf("classify: %w", err)
	}

	out := classifyOutput{Analysis: c.Classify(points, crop, horizon)}
	if v, ok := phenology.LatestVigor(points); ok {
		out.Vigor = &v
	}
	return out, nil
}
