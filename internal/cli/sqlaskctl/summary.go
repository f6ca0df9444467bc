package sqlaskctl

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

type resultBody struct {
	Status       string   `json:"status"`
	Verb         string   `json:"verb"`
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowCount     int      `json:"row_count"`
	RowsAffected *int64   `json:"rows_affected"`
	Message      string   `json:"message"`
	Error        string   `json:"error"`
	ErrorCode    string   `json:"error_code"`
}

type answerBody struct {
	Question string   `json:"question"`
	Tables   []string `json:"tables"`
	Query    *struct {
		SQL  string `json:"sql"`
		Verb string `json:"verb"`
	} `json:"query"`
	Result       *resultBody `json:"result"`
	HaltedAt     string      `json:"halted_at"`
	Status       string      `json:"status"`
	ErrorCode    string      `json:"error_code"`
	Message      string      `json:"message"`
	ArchiveKey   string      `json:"archive_key"`
	ArchiveError string      `json:"archive_error"`
}

func printAnswer(w io.Writer, body []byte) error {
	var answer answerBody
	if err := json.Unmarshal(body, &answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}

	tables := "(none)"
	if len(answer.Tables) > 0 {
		tables = strings.Join(answer.Tables, ", ")
	}
	_, _ = fmt.Fprintf(w, "Tables: %s\n", tables)
	if answer.Query != nil {
		_, _ = fmt.Fprintf(w, "SQL:    %s\n", answer.Query.SQL)
	}

	if answer.Status != "ok" {
		return fmt.Errorf("%s: %s", answer.ErrorCode, answer.Message)
	}
	if answer.Result != nil {
		_, _ = fmt.Fprintln(w)
		writeResult(w, *answer.Result)
	}
	if answer.ArchiveKey != "" {
		_, _ = fmt.Fprintf(w, "Archived: %s\n", answer.ArchiveKey)
	}
	if answer.ArchiveError != "" {
		_, _ = fmt.Fprintf(w, "Archive failed: %s\n", answer.ArchiveError)
	}
	return nil
}

func printResult(w io.Writer, body []byte) error {
	var result resultBody
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if result.Status != "success" {
		return fmt.Errorf("%s: %s", result.ErrorCode, result.Error)
	}
	writeResult(w, result)
	return nil
}

func writeResult(w io.Writer, result resultBody) {
	if result.Columns == nil {
		_, _ = fmt.Fprintln(w, result.Message)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = formatCell(value)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "(%d row(s))\n", result.RowCount)
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%g", typed)
	default:
		return fmt.Sprint(typed)
	}
}
