package gemini

import (
	"fmt"
	"strings"
)

// Strategy hints shape how invasive the requested fix should be.
var strategyInstructions = map[string]string{
	"standard":     "Fix the errors while maintaining the original code structure and logic.",
	"aggressive":   "Fix the errors and improve the code significantly, even if it requires major changes.",
	"conservative": "Make minimal changes to fix only the critical errors.",
	"rewrite":      "Completely rewrite the code to fix all issues and improve quality.",
}

// BuildFixPrompt builds the prompt asking the model to repair a single file.
// The response must be the complete corrected file, nothing else.
func BuildFixPrompt(path, content string, errors []string, strategy string) string {
	instruction, ok := strategyInstructions[strategy]
	if !ok {
		instruction = strategyInstructions["standard"]
	}

	var b strings.Builder
	b.WriteString("You are an expert debugger. Fix the following code issues:\n\n")
	fmt.Fprintf(&b, "**File:** %s\n", path)
	fmt.Fprintf(&b, "**Strategy:** %s\n\n", instruction)
	b.WriteString("**Errors to fix:**\n")
	for _, e := range errors {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	b.WriteString("\n**Original Code:**\n```\n")
	b.WriteString(content)
	b.WriteString("\n```\n\n")
	b.WriteString(`**Instructions:**
1. Fix ALL identified errors
2. Ensure the code runs without issues
3. Maintain or improve functionality
4. Add proper error handling if missing
5. Keep the code clean and readable

**Response Format:**
Provide ONLY the fixed code without any explanations or markdown formatting.
Return the complete, corrected file content.
`)
	return b.String()
}

// BuildRewritePrompt builds the prompt asking the model to regenerate a file
// from scratch while preserving its intent.
func BuildRewritePrompt(path, content string, errors []string) string {
	var b strings.Builder
	b.WriteString("The following file has multiple issues and needs to be completely rewritten:\n\n")
	fmt.Fprintf(&b, "Original file: %s\n", path)
	fmt.Fprintf(&b, "Issues found: %s\n\n", strings.Join(errors, ", "))
	b.WriteString("Please rewrite this file completely to fix all issues while maintaining the same functionality:\n\n")
	b.WriteString("```\n")
	b.WriteString(content)
	b.WriteString("\n```\n\n")
	b.WriteString(`Requirements:
1. Fix all syntax and runtime errors
2. Improve code structure and readability
3. Add proper error handling
4. Follow best practices
5. Maintain original functionality
`)
	return b.String()
}
