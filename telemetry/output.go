package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/forager/config"
)

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir           string
	recordsFile   *os.File
	summaryFile   *os.File
	aggregateFile *os.File

	// Track if headers have been written
	recordsHeaderWritten   bool
	summaryHeaderWritten   bool
	aggregateHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the
// output directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	recordsPath := filepath.Join(dir, "records.csv")
	f, err := os.Create(recordsPath)
	if err != nil {
		return nil, fmt.Errorf("creating records.csv: %w", err)
	}
	om.recordsFile = f

	summaryPath := filepath.Join(dir, "summaries.csv")
	f, err = os.Create(summaryPath)
	if err != nil {
		om.recordsFile.Close()
		return nil, fmt.Errorf("creating summaries.csv: %w", err)
	}
	om.summaryFile = f

	aggregatePath := filepath.Join(dir, "aggregates.csv")
	f, err = os.Create(aggregatePath)
	if err != nil {
		om.recordsFile.Close()
		om.summaryFile.Close()
		return nil, fmt.Errorf("creating aggregates.csv: %w", err)
	}
	om.aggregateFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteRecords appends step records to records.csv.
func (om *OutputManager) WriteRecords(records []StepRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}

	if !om.recordsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.recordsFile); err != nil {
			return fmt.Errorf("writing records: %w", err)
		}
		om.recordsHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, om.recordsFile); err != nil {
			return fmt.Errorf("writing records: %w", err)
		}
	}

	return nil
}

// WriteRecord appends a single step record to records.csv.
func (om *OutputManager) WriteRecord(r StepRecord) error {
	return om.WriteRecords([]StepRecord{r})
}

// WriteSummary appends a run summary to summaries.csv.
func (om *OutputManager) WriteSummary(s Summary) error {
	if om == nil {
		return nil
	}

	records := []Summary{s}

	if !om.summaryHeaderWritten {
		if err := gocsv.Marshal(records, om.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		om.summaryHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	return nil
}

// WriteAggregate appends aggregate stats to aggregates.csv.
func (om *OutputManager) WriteAggregate(a AggregateStats) error {
	if om == nil {
		return nil
	}

	records := []AggregateStats{a}

	if !om.aggregateHeaderWritten {
		if err := gocsv.Marshal(records, om.aggregateFile); err != nil {
			return fmt.Errorf("writing aggregate: %w", err)
		}
		om.aggregateHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.aggregateFile); err != nil {
			return fmt.Errorf("writing aggregate: %w", err)
		}
	}

	return nil
}

// WriteJSON saves an arbitrary value as indented JSON under the output
// directory.
func (om *OutputManager) WriteJSON(name string, v any) error {
	if om == nil {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, name), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.recordsFile != nil {
		if err := om.recordsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.summaryFile != nil {
		if err := om.summaryFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.aggregateFile != nil {
		if err := om.aggregateFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
