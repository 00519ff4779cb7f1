//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package schema

import "github.com/pgEdge/pgedge-nl2sql-server/internal/inference"

// FormatInstruction describes a DDL listing as a structured schema.
var FormatInstruction = inference.Instruction{
	Name: "format_schema",
	System: `
    You are a database schema analyzer and formatter. Your task is to analyze a given SQL DDL string containing definitions 
    for multiple tables and format it into a structured schema using the provided Pydantic model format. The input may 
    include additional lines that are not part of table definitions—these should be ignored.
    
    ### Input:
    A string containing DDL statements for tables in SQL. Each table includes its name, columns, and optionally relationships or constraints.
    
    ### Output:
    A valid Pydantic model representation of the schema, adhering to the following structure:
    
    1. **` + "`ColumnInfo`" + `**:
       - ` + "`name`" + `: Name of the column.
       - ` + "`type`" + `: Data type of the column (e.g., VARCHAR, INT).
       - ` + "`explanation`" + `: Provide an explanation if available (from comments or constraints). If not available, please your own.
    
    2. **` + "`TableInfo`" + `**:
       - ` + "`table_name`" + `: Name of the table.
       - ` + "`columns`" + `: List of ` + "`ColumnInfo`" + ` for the table.
       - ` + "`relation_ship`" + `: Comma-separated related tables inferred from foreign keys. If none, set as ` + "`\"None\"`" + `.
       - ` + "`description`" + `:provides a description/summary of the table
    
    3. **` + "`DatabaseSchema`" + `**:
       - ` + "`tables`" + `: List of all ` + "`TableInfo`" + `.
    
    ### Additional Notes:
    - Include only table definitions; ignore non-table lines.
    - Preserve column order from the DDL.
    - Extract relationships from foreign key constraints, if any.
    - Ensure descriptions are precise, even if inferred.
`,
	Shape: `{
  "tables": [
    {
      "table_name": string,
      "description": string,
      "columns": [{"name": string, "type": string, "explanation": string}],
      "relation_ship": string
    }
  ]
}`,
}
