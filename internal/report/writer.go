package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/gyaneshwarpardhi/upsell/internal/opportunity"
)

// Format selects how a report is written.
type Format string

const (
	FormatText  Format = "text"  // tasks.txt blocks
	FormatTable Format = "table" // human-readable table
	FormatJSON  Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatTable, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, table or json)", s)
}

// Write dispatches to the writer for format.
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatTable:
		return WriteTable(w, r)
	default:
		return WriteTasks(w, r.Opportunities)
	}
}

// WriteJSON writes the full report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Field labels of the tasks file.
const (
	labelUser   = "User ID:"
	labelType   = "Opportunity type:"
	labelReason = "Reasoning:"
	labelAction = "Recommended action:"
)

// WriteTasks writes one block per opportunity, separated by blank lines.
func WriteTasks(w io.Writer, opps []opportunity.Opportunity) error {
	for i, op := range opps {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s %s\n%s %s\n%s %s\n%s %s\n",
			labelUser, op.UserID,
			labelType, op.OpportunityType,
			labelReason, op.Reasoning,
			labelAction, op.RecommendedAction,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseTasks reads blocks written by WriteTasks. A new block starts at each
// "User ID:" line; unknown lines are ignored.
func ParseTasks(r io.Reader) ([]opportunity.Opportunity, error) {
	var (
		out     []opportunity.Opportunity
		current *opportunity.Opportunity
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, labelUser):
			if current != nil {
				out = append(out, *current)
			}
			current = &opportunity.Opportunity{UserID: strings.TrimSpace(strings.TrimPrefix(line, labelUser))}
		case current == nil:
			continue
		case strings.HasPrefix(line, labelType):
			current.OpportunityType = strings.TrimSpace(strings.TrimPrefix(line, labelType))
		case strings.HasPrefix(line, labelReason):
			current.Reasoning = strings.TrimSpace(strings.TrimPrefix(line, labelReason))
		case strings.HasPrefix(line, labelAction):
			current.RecommendedAction = strings.TrimSpace(strings.TrimPrefix(line, labelAction))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	if current != nil {
		out = append(out, *current)
	}
	return out, nil
}

// WriteTable renders opportunities as a table followed by a run summary.
func WriteTable(w io.Writer, r *Report) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "User", "Opportunity", "Reasoning", "Action"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for i, op := range r.Opportunities {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			op.UserID,
			op.OpportunityType,
			op.Reasoning,
			op.RecommendedAction,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d opportunities across %d users from %d events (%d skipped) in %s\n",
		len(r.Opportunities), r.Users, r.TotalEvents, r.SkippedEvents, r.AnalysisTime)
	return err
}
