package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// Results is the terminal outcome of a run: every input document with
// its recorded assessment.
type Results struct {
	Items []*Item
}

func (r *Results) Len() int {
	return len(r.Items)
}

// Matched returns items whose assessment met the target criteria.
func (r *Results) Matched() []*Item {
	var matched []*Item
	for _, item := range r.Items {
		if item.Result.Matched() {
			matched = append(matched, item)
		}
	}
	return matched
}

// Failed returns items whose scoring failed and carry an error result.
func (r *Results) Failed() []*Item {
	var failed []*Item
	for _, item := range r.Items {
		if item.Result.Failed() {
			failed = append(failed, item)
		}
	}
	return failed
}

// ReportByVerdict groups short per-document summaries under matched,
// rejected and failed keys.
func (r *Results) ReportByVerdict() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range r.Items {
		verdict := "rejected"
		entry := map[string]string{
			"name":   item.Doc.Name,
			"status": item.Status,
		}

		switch {
		case item.Result.Failed():
			verdict = "failed"
			entry["error"] = item.Result.Error
		case item.Result.Matched():
			verdict = "matched"
			entry["score"] = fmt.Sprintf("%.2f", item.Result.Score)
			entry["reason"] = item.Result.Reason
		case item.Result != nil:
			entry["score"] = fmt.Sprintf("%.2f", item.Result.Score)
			entry["reason"] = item.Result.Reason
		}

		report[verdict] = append(report[verdict], entry)
	}
	return report
}

// DumpToTmpFile writes the full results as indented json to a temp file
// and returns its name.
func (r *Results) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "screening_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// WriteShortlist writes matched candidates to path, one per line with
// score and reason.
func (r *Results) WriteShortlist(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, item := range r.Matched() {
		if _, err := fmt.Fprintf(file, "%s\t%.2f\t%s\n", item.Doc.Name, item.Result.Score, item.Result.Reason); err != nil {
			return err
		}
	}
	return nil
}
