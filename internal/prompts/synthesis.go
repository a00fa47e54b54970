package prompts

var planningPrompt = &Prompt{
	ID:      PlanningID,
	Version: PromptV1,
	System:  "You analyse bank statement layouts so that a parser can be written for them. Reply with JSON only.",
	Content: `Analyze this bank statement content and the expected CSV structure for {{target}}.

Statement content (first {{text_chars}} chars):
{{text_prefix}}

Expected CSV columns: {{columns}}
Expected CSV sample (first {{sample_count}} rows):
{{sample_rows}}

Identify:
1. The transaction line pattern in the statement
2. The date format used
3. The amount format (thousand separators, currency symbols, signs)
4. The mapping from statement fields to CSV columns
5. Any special parsing challenges

Reply with a single JSON object with these keys:
{"transaction_pattern": string, "date_format": string, "amount_format": string,
 "column_mapping": {column: description}, "challenges": [string]}`,
	Description: "Structural analysis of the sample statement",
	Tags:        []string{"planning", "json"},
}

var generationPrompt = &Prompt{
	ID:      GenerationID,
	Version: PromptV1,
	System:  "You write complete, runnable {{language}} parsers for bank statements. Reply with code only.",
	Content: `Generate a complete {{language}} parser for {{target}} bank statements.

Requirements:
- Function signature: {{signature}}
- Use pdfplumber for PDF extraction (with PyPDF2 fallback)
- Return a DataFrame matching the expected CSV structure exactly
- Handle errors gracefully with try-except blocks
- Include all imports at the top

CRITICAL PARSING LOGIC (FOLLOW EXACTLY):

Each transaction line in the statement has this structure:
DATE DESCRIPTION [DEBIT_AMOUNT] [CREDIT_AMOUNT] BALANCE

Where:
- DATE: always DD-MM-YYYY at the start of the line (regex: r'^(\d{2}-\d{2}-\d{4})')
- DESCRIPTION: the text between the date and the first amount
- DEBIT_AMOUNT / CREDIT_AMOUNT: optional decimal numbers (regex: r'\d+\.\d+')
- BALANCE: always the LAST number on the line

Either Debit OR Credit holds a value, never both; the other stays empty.

Parsing strategy:
1. Match the date at the start of each line
2. Extract every decimal number on the line
3. The last number is the balance
4. Two numbers: [amount, balance]; decide debit or credit from the balance movement
5. Three numbers: [debit, credit, balance]
6. The description is everything between the date and the first number

Expected output columns, in this EXACT order:
{{columns}}

Expected output to match (first {{sample_count}} rows):
{{sample_rows}}

Statement content sample:
{{text_prefix}}`,
	Description: "Parser code generation",
	Tags:        []string{"generation", "code"},
}

var reflectionPrompt = &Prompt{
	ID:      ReflectionID,
	Version: PromptV1,
	Content: `The generated parser failed with the following feedback:
{{feedback}}

Current attempt: {{attempt}}
Generated code that failed:
{{code_prefix}}...

Analyze what went wrong and give specific guidance for fixing it:
1. What exactly caused the failure?
2. What changes are needed in the code?
3. Which parsing patterns need adjustment?
4. Are all required imports included?
5. Is the function signature exactly {{signature}}?

Be specific and actionable.`,
	Description: "Failure diagnosis for the next generation attempt",
	Tags:        []string{"reflection"},
}

// GenerationTrailer closes the generation prompt after the optional analysis
// and feedback fragments.
const GenerationTrailer = `Generate ONLY the complete code with all imports, no explanations.
Use regex patterns and check that amounts land in the correct columns.`
