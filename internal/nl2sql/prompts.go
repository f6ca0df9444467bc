package nl2sql

import (
	"fmt"
	"strings"

	"github.com/sqlask/sqlask/internal/schema"
)

func tableSelectionPrompt(question string, knownTables []string) string {
	return fmt.Sprintf(`Given the following question, identify which database tables might be needed to answer it.
Only return the table names as a comma-separated list, with no other text.

Available tables: %s

Question: %s`, strings.Join(knownTables, ", "), strings.TrimSpace(question))
}

func queryGenerationPrompt(question string, description schema.Description) string {
	return fmt.Sprintf(`You are an expert in converting English questions to SQL queries.

The database has the following tables:

%s
Rules:
- Return ONLY the SQL query, with no explanation or additional text.
- Do not use markdown formatting or code fences such as `+"```sql"+`.
- Write exactly one SQL statement.
- Use only the tables and columns listed above.

Question: %s`, description.Render(), strings.TrimSpace(question))
}
