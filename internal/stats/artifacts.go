package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"banditlab/internal/model"
)

const runIndexFile = "run_index.json"

type RunConfig struct {
	RunID         string    `json:"run_id"`
	Command       string    `json:"command"`
	Models        []string  `json:"models"`
	Options       int       `json:"options"`
	Probabilities []float64 `json:"probabilities"`
	Horizon       int       `json:"horizon"`
	Seed          int64     `json:"seed"`
	Subjects      int       `json:"subjects,omitempty"`
	Sets          int       `json:"sets,omitempty"`
	GridSize      int       `json:"grid_size,omitempty"`
	Workers       int       `json:"workers"`
	Tuner         string    `json:"tuner"`
	Params        []float64 `json:"params,omitempty"`
}

// RunArtifacts bundles every output of one command invocation. Only the
// non-empty parts are written.
type RunArtifacts struct {
	Config      RunConfig                `json:"config"`
	Trials      []model.TrialSequence    `json:"-"`
	Fits        []model.FitResult        `json:"fits,omitempty"`
	Comparisons []model.ComparisonRecord `json:"comparisons,omitempty"`
	Selection   *SelectionSummary        `json:"selection,omitempty"`
	Grid        *model.GridExploration   `json:"grid,omitempty"`
	Confusion   *model.ConfusionMatrix   `json:"confusion,omitempty"`
	Scores      []ClassScore             `json:"classification,omitempty"`
	Recovery    *model.RecoveryData      `json:"recovery,omitempty"`
	Correlation []Correlation            `json:"correlation,omitempty"`
}

type RunIndexEntry struct {
	RunID        string   `json:"run_id"`
	Command      string   `json:"command"`
	Models       []string `json:"models"`
	Horizon      int      `json:"horizon"`
	Seed         int64    `json:"seed"`
	Workers      int      `json:"workers"`
	CreatedAtUTC string   `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	for i, seq := range artifacts.Trials {
		if err := WriteTrials(filepath.Join(runDir, fmt.Sprintf("trials_%03d.csv", i)), seq); err != nil {
			return "", err
		}
	}
	optional := []struct {
		file  string
		value any
		set   bool
	}{
		{"fits.json", artifacts.Fits, len(artifacts.Fits) > 0},
		{"comparisons.json", artifacts.Comparisons, len(artifacts.Comparisons) > 0},
		{"selection.json", artifacts.Selection, artifacts.Selection != nil},
		{"grid.json", artifacts.Grid, artifacts.Grid != nil},
		{"confusion_matrix.json", artifacts.Confusion, artifacts.Confusion != nil},
		{"classification.json", artifacts.Scores, len(artifacts.Scores) > 0},
		{"recovery.json", artifacts.Recovery, artifacts.Recovery != nil},
		{"correlation.json", artifacts.Correlation, len(artifacts.Correlation) > 0},
	}
	for _, item := range optional {
		if !item.set {
			continue
		}
		if err := writeJSON(filepath.Join(runDir, item.file), item.value); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// ExportRunArtifacts copies every file of a stored run into outDir/runID.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	srcDir := filepath.Join(baseDir, runID)
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("run artifacts not found: %s", runID)
		}
		return "", err
	}

	dstDir := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(srcDir, entry.Name()), filepath.Join(dstDir, entry.Name())); err != nil {
			return "", err
		}
	}
	return dstDir, nil
}

// WriteTrials stores one sequence as trial,choice,success rows.
func WriteTrials(path string, seq model.TrialSequence) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"trial", "choice", "success"}); err != nil {
		return err
	}
	for t, c := range seq.Choices {
		success := "0"
		if seq.Successes[t] {
			success = "1"
		}
		if err := writer.Write([]string{strconv.Itoa(t), strconv.Itoa(c), success}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadTrials(path string) (model.TrialSequence, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.TrialSequence{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return model.TrialSequence{}, nil
		}
		return model.TrialSequence{}, err
	}
	if len(header) < 3 {
		return model.TrialSequence{}, fmt.Errorf("trials header must have at least 3 columns")
	}

	var seq model.TrialSequence
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.TrialSequence{}, err
		}
		if len(record) < 3 {
			return model.TrialSequence{}, fmt.Errorf("trials row must have at least 3 columns")
		}
		choice, err := strconv.Atoi(record[1])
		if err != nil {
			return model.TrialSequence{}, err
		}
		seq.Choices = append(seq.Choices, choice)
		seq.Successes = append(seq.Successes, strings.TrimSpace(record[2]) == "1")
	}
	return seq, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
