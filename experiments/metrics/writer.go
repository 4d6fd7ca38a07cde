package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Writer writes sweep rows to CSV files under the output directory.
type Writer struct {
	baseDir string
}

func NewWriter(baseDir string) (*Writer, error) {
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{baseDir: baseDir}, nil
}

func (w *Writer) BaseDir() string {
	return w.baseDir
}

// WriteRows writes the whole sweep to name.csv.
func (w *Writer) WriteRows(name string, rows []Row) error {
	path := filepath.Join(w.baseDir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{
		"simulations", "runs",
		"undiscounted_return", "undiscounted_error",
		"discounted_return", "discounted_error",
		"time", "time_per_action",
		"explored_nodes", "explored_nodes_error",
		"explored_depth", "explored_depth_error",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write results header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Simulations),
			strconv.Itoa(row.Runs),
			formatFloat(row.UndiscountedReturn),
			formatFloat(row.UndiscountedError),
			formatFloat(row.DiscountedReturn),
			formatFloat(row.DiscountedError),
			formatFloat(row.Time),
			formatFloat(row.TimePerAction),
			formatFloat(row.ExploredNodes),
			formatFloat(row.ExploredNodesError),
			formatFloat(row.ExploredDepth),
			formatFloat(row.ExploredDepthError),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write results row: %w", err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
