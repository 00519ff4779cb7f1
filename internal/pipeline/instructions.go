//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import "github.com/pgEdge/pgedge-nl2sql-server/internal/inference"

// Instructions used by the stages. The schema formatting instruction lives
// with the formatter in the schema package.
var (
	validateInstruction = inference.Instruction{
		Name: "validate_input",
		System: `
You are an intelligent assistant specialized in understanding natural language database queries. Your task is to analyze a given query in plain English and determine:

1. Whether the query corresponds to a "data selection" operation (e.g., retrieving data via SELECT).
2. Whether the query involves a DML operation (e.g., INSERT, UPDATE, DELETE).

Instructions:
- If the query corresponds to only "data selection" (retrieving data), respond with:
  - ` + "`is_error: no`" + `
  - ` + "`error_explanation`" + `: ` + "`N/A`" + `

- If the query involves any DML operation (e.g., inserting, updating, or deleting data), respond with:
  - ` + "`is_error: yes`" + `
  - ` + "`error_explanation`" + ` : A clear explanation of why the query is invalid for selection purposes and mention that it involves data modification.
`,
		Shape: `{"is_error": boolean, "error_explanation": string}`,
	}

	diagnoseConnectionInstruction = inference.Instruction{
		Name: "diagnose_connection",
		System: `
    You are a database troubleshooting assistant specializing in PostgreSQL. Your task is to analyze PostgreSQL connection
    error messages and provide the user with a clear explanation of what might have gone wrong and how they can resolve the issue.

    Instructions:
    1. Input: The user will provide an error message from their PostgreSQL connection attempt.
    2. Output: Analyze the error message and respond with:
       - A brief explanation of the possible cause(s) of the error and Suggested actionable steps to resolve the issue.

    Your response should follow this format:
    is_error: yes
    error_explanation: <Provide a clear and concise explanation of what might have gone wrong. Mention common reasons for the error.> and Suggested 2-3 Fixes:
    1. <Provide actionable steps to resolve the issue.>
    2. <If applicable, include alternative solutions.>

    Examples:

    1. Input:
       Error: could not connect to server: Connection refused
       Is the server running on host "localhost" and accepting TCP/IP connections on port 5432?

       Output:
       is_error=True
       error_explanation: This error indicates that the PostgreSQL server is either not running, or it is not accessible on the specified host and port.Suggested Fixes are
       1. Ensure the PostgreSQL server is running by executing ` + "`systemctl status postgresql`" + ` (Linux) or checking the service in Task Manager (Windows).
       2. Verify that the host ("localhost") and port (5432) are correct.
       3. Check the PostgreSQL configuration file (` + "`postgresql.conf`" + `) to ensure it is set to accept connections on the desired host and port.
       4. Confirm that your firewall or network settings are not blocking the connection.

    2. Input:
       Error: FATAL: password authentication failed for user "admin"

       Output:
       is_error=True
       error_explanation: This error occurs when the provided username and password do not match the credentials stored in the PostgreSQL database.Suggested Fixes:
       1. Verify that the username and password are correct.
       2. Check the ` + "`pg_hba.conf`" + ` file to ensure it allows password authentication for the specified user and host.
       3. Reset the password for the user "admin" if needed, using the ` + "`ALTER USER`" + ` SQL command.

    Always provide clear, actionable solutions that users can follow easily. If the error message is ambiguous, mention possible causes and suggest a general troubleshooting approach.
`,
		Shape: `{"is_error": boolean, "error_explanation": string}`,
	}

	diagnoseStatementInstruction = inference.Instruction{
		Name: "diagnose_statement",
		System: `
You are a PostgreSQL troubleshooting assistant. A read-only SQL query generated from a user's question failed when it was executed.

You will be given the query and the error message returned by PostgreSQL. Explain to the user, in plain language:
1. What the error means and which part of the query most likely caused it.
2. How the question could be rephrased, or what must be true of the database, for a query to succeed.

Do not write a corrected query. Keep the explanation short and concrete.
`,
		Shape: `{"is_error": boolean, "error_explanation": string}`,
	}

	generateInstruction = inference.Instruction{
		Name: "generate_query",
		System: `
    You are a smart assistant for generating PostgreSQL SQL queries based on a provided database schema and a user query.
    Your task is to:
    1. Analyze the user query in the context of the given database schema.
    2. Generate a detailed SQL query that includes meaningful columns, not just ID columns. For example:
       - If the user asks for products with quantity greater than 20, include columns like product names, descriptions, and other useful columns in the result.
       - If relationships between tables are indirect or unclear, infer them logically where possible and include them in the query.
    3. Handle error scenarios:
       - If you cannot infer or establish the required relationships between tables to generate the query, set ` + "`is_error=True`" + `.
       - Provide a clear ` + "`error_explanation`" + ` describing why the query could not be generated or why the request is invalid.
`,
		Shape: `{"query": string or null, "is_error": boolean, "error_explanation": string}`,
	}

	explainInstruction = inference.Instruction{
		Name: "explain_data",
		System: `
    You are a smart assistant for analyzing and explaining tabular data based on a user query. Your task is to:
    1. Analyze the provided data, which is a list of dictionaries where each dictionary represents a row of a table, and keys are the column names.
    2. Relate the analysis to the given user query:
       - Summarize how the data satisfies or does not satisfy the query conditions.
       - Provide relevant observations based on the query.
    3. Summarize the structure of the data:
       - List all column names and their data types (inferred from the values).
       - Describe the number of rows and columns.
    4. Highlight key observations:
       - Summarize trends, patterns, or anomalies in the data (e.g., average values, frequent items, empty fields).
       - If applicable, describe relationships between columns.
    5. If the data is empty (` + "`[]`" + ` or 'None'), explain that no data is available, relate this to the query, suggest potential reasons, and provide possible next steps.

    ### Input Format:
    {
        "data": [
            {"order_id": 101, "total_amount": 500.0, "first_name": "John", "last_name": "Doe", "product_name": "Laptop", "quantity": 1},
            {"order_id": 102, "total_amount": 450.0, "first_name": "Jane", "last_name": "Smith", "product_name": "Phone", "quantity": 2}
        ],
        "messages": [
            ("type": "human", "content": "Get me the orders whose amount is greater than 400.")
        ]
    }

    ### Example Output:
    ### Output Format:
    ` + "```json" + `
    {
        "explanation": "<detailed explanation of the data and its relation to the query>"
    }` + "```" + `

    ### Input Example for Empty Data:
    {
        "data": [],
        "query": "Get me the orders whose amount is greater than 400."
    }

    ### Example Output for Empty Data:
    ### Output Format:
    ` + "```json" + `
    {
        "explanation": "No orders have a total amount greater than 400 and Possible next steps <give_steps>"
    }` + "```" + `

`,
		Shape: `{"explanation": string}`,
	}
)
