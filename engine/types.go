package engine

// ============================================================================
// TABLE TYPES — Render-ready output for the shell
// ============================================================================

// TableData defines how to render a result table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "number", "text", "timestamp"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals for a table.
type Summary struct {
	Label    string `json:"label"`
	Rows     int    `json:"rows"`
	Rejected int    `json:"rejected"`
}

// TextData is a one-line answer with supporting fields.
type TextData struct {
	Value    string   `json:"value"`
	Period   string   `json:"period"`
	Count    int      `json:"count"`
	Rejected int      `json:"rejected"`
	Authors  []string `json:"authors,omitempty"`
}
