//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// flag decodes a boolean that models sometimes answer as "yes"/"no" or
// "True"/"False".
type flag struct {
	value bool
	set   bool
}

func (f *flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		f.value, f.set = b, true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a boolean, got %s", data)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		f.value, f.set = true, true
	case "false", "no", "n", "0":
		f.value, f.set = false, true
	default:
		return fmt.Errorf("expected a boolean, got %q", s)
	}
	return nil
}

// verdict is the reply to the validation and diagnosis instructions.
type verdict struct {
	IsError          flag   `json:"is_error"`
	ErrorExplanation string `json:"error_explanation"`
}

func (v *verdict) Validate() error {
	if !v.IsError.set {
		return errors.New("is_error is missing")
	}
	return nil
}

// explanation returns the model's explanation, ignoring placeholders.
func (v *verdict) explanation() string {
	e := strings.TrimSpace(v.ErrorExplanation)
	if strings.EqualFold(e, "N/A") || strings.EqualFold(e, "none") {
		return ""
	}
	return e
}

// generated is the reply to the query generation instruction.
type generated struct {
	Query            *string `json:"query"`
	IsError          flag    `json:"is_error"`
	ErrorExplanation string  `json:"error_explanation"`
}

func (g *generated) Validate() error {
	if g.IsError.value {
		return nil
	}
	if g.Query == nil || strings.TrimSpace(*g.Query) == "" {
		return errors.New("query is empty but is_error is false")
	}
	return nil
}

// explained is the reply to the data explanation instruction.
type explained struct {
	Explanation string `json:"explanation"`
}

func (e *explained) Validate() error {
	if strings.TrimSpace(e.Explanation) == "" {
		return errors.New("explanation is empty")
	}
	return nil
}
