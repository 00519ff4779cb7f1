//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package visualize recommends a chart for a query result.
package visualize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/inference"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
)

// Supported chart types.
const (
	LineChart   = "Line Chart"
	BarChart    = "Bar Chart"
	PieChart    = "Pie Chart"
	ScatterPlot = "Scatter Plot"
	Histogram   = "Histogram"
	Table       = "Table"
)

var chartTypes = []string{LineChart, BarChart, PieChart, ScatterPlot, Histogram, Table}

// Rows sent to the model. The shape of the data matters, not its volume.
const sampleRows = 50

// Chart is a chart recommendation.
type Chart struct {
	IsVisualizationPossible bool     `json:"is_visualization_possible"`
	ChartType               string   `json:"chart_type,omitempty"`
	Explanation             string   `json:"explanation,omitempty"`
	XAxis                   string   `json:"x_axis,omitempty"`
	YAxis                   []string `json:"y_axis,omitempty"`
	Tooltip                 []string `json:"tooltip,omitempty"`
}

// Invoker is the part of the inference gateway the recommender uses.
type Invoker interface {
	Invoke(ctx context.Context, inst inference.Instruction, messages []llm.Message, out inference.Validator) error
}

// Recommender asks the model how a result could be charted.
type Recommender struct {
	inference Invoker
	logger    *slog.Logger
}

// NewRecommender creates a new chart recommender.
func NewRecommender(inv Invoker, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{inference: inv, logger: logger}
}

// Recommend returns a chart for the result of query. Axis columns in the
// recommendation are checked against the result's columns; tooltip
// columns that do not exist are dropped.
func (r *Recommender) Recommend(
	ctx context.Context,
	query string,
	result *database.ResultSet,
) (*Chart, error) {
	if result == nil || len(result.Rows) == 0 {
		return &Chart{
			IsVisualizationPossible: false,
			Explanation:             "The query returned no rows.",
		}, nil
	}

	rows := result.Rows
	if len(rows) > sampleRows {
		rows = rows[:sampleRows]
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	var reply recommendation
	err = r.inference.Invoke(ctx, recommendInstruction,
		[]llm.Message{llm.UserMessage("SQL Query: " + query + " \n Data: " + string(data))},
		&reply)
	if err != nil {
		return nil, err
	}

	chart, err := reply.chart(result.Columns)
	if err != nil {
		return nil, &inference.Error{
			Kind:        inference.KindMalformed,
			Instruction: recommendInstruction.Name,
			Message:     "recommendation does not match the result",
			Err:         err,
		}
	}

	r.logger.Debug("chart recommended",
		"possible", chart.IsVisualizationPossible,
		"chart_type", chart.ChartType,
	)
	return chart, nil
}

// axis decodes a column name or a list of column names.
type axis []string

func (a *axis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one != "" {
			*a = axis{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a column name or a list of column names, got %s", data)
	}
	*a = many
	return nil
}

type recommendation struct {
	IsVisualizationPossible *bool   `json:"is_visualization_possible"`
	ChartType               *string `json:"chart_type"`
	Explanation             string  `json:"explanation"`
	XAxis                   *string `json:"x_axis"`
	YAxis                   axis    `json:"y_axis"`
	OtherOptions            *struct {
		Tooltip []string `json:"tooltip"`
	} `json:"other_options"`
}

func (r *recommendation) Validate() error {
	if r.IsVisualizationPossible == nil {
		return errors.New("is_visualization_possible is missing")
	}
	if !*r.IsVisualizationPossible {
		return nil
	}
	if r.ChartType == nil || canonicalChartType(*r.ChartType) == "" {
		return fmt.Errorf("unsupported chart type %q", deref(r.ChartType))
	}
	return nil
}

// chart converts the reply, checking column references against columns.
func (r *recommendation) chart(columns []string) (*Chart, error) {
	c := &Chart{
		IsVisualizationPossible: *r.IsVisualizationPossible,
		Explanation:             strings.TrimSpace(r.Explanation),
	}
	if !c.IsVisualizationPossible {
		return c, nil
	}

	c.ChartType = canonicalChartType(*r.ChartType)
	if c.ChartType == Table {
		return c, nil
	}

	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		known[col] = true
	}

	if x := deref(r.XAxis); x != "" {
		if !known[x] {
			return nil, fmt.Errorf("x_axis %q is not a result column", x)
		}
		c.XAxis = x
	}
	for _, y := range r.YAxis {
		if !known[y] {
			return nil, fmt.Errorf("y_axis %q is not a result column", y)
		}
		c.YAxis = append(c.YAxis, y)
	}
	if c.XAxis == "" && len(c.YAxis) == 0 {
		return nil, fmt.Errorf("%s needs at least one axis", c.ChartType)
	}

	if r.OtherOptions != nil {
		for _, t := range r.OtherOptions.Tooltip {
			if known[t] {
				c.Tooltip = append(c.Tooltip, t)
			}
		}
	}
	return c, nil
}

// canonicalChartType maps a chart type name to its canonical spelling, or
// returns "" when it is not supported.
func canonicalChartType(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, t := range chartTypes {
		if n == strings.ToLower(t) {
			return t
		}
	}
	switch n {
	case "line":
		return LineChart
	case "bar":
		return BarChart
	case "pie":
		return PieChart
	case "scatter", "scatter chart":
		return ScatterPlot
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
