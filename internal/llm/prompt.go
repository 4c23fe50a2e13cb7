package llm

import (
	"fmt"
	"strings"
)

// PromptInput carries everything needed to build one chunk's messages.
type PromptInput struct {
	Header         string
	Totals         string
	LineItemBlocks []string
	ChunkText      string
	ChunkIndex     int // 0-based
	ChunkCount     int
	FewShot        bool
}

// BuildMessages assembles the role-tagged prompt: system instructions, an
// optional few-shot example, the segmented document context, then the chunk.
func BuildMessages(in PromptInput) []Message {
	msgs := []Message{{Role: "system", Content: buildSystemPrompt(in)}}
	if in.FewShot {
		msgs = append(msgs,
			Message{Role: "user", Content: fewShotUser},
			Message{Role: "assistant", Content: fewShotAssistant},
		)
	}
	msgs = append(msgs, Message{Role: "user", Content: buildUserPrompt(in)})
	return msgs
}

func buildSystemPrompt(in PromptInput) string {
	parts := []string{
		"You are a purchase-order parser. Return ONLY JSON that matches the JSON Schema provided.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Currency must be a 3-letter ISO 4217 code when identifiable.",
		"Every table row is one entry in 'line_items' with product_code, description, quantity, unit_price and total as decimal strings.",
		"Never invent rows. Extract only what appears in the text.",
		"Record anything ambiguous or unreadable as a short note in 'issues'.",
		"Report your overall extraction confidence (0..1) in 'confidence'.",
		"Never output null. If a field is not present, omit it.",
		"If the text is not a purchase order at all, reply with the exact sentence: this document is not a valid purchase order.",
	}
	if in.ChunkCount > 1 {
		parts = append(parts, fmt.Sprintf(
			"The document is split into %d parts; you receive part %d. Header fields may be absent from later parts: extract the line items you see and omit fields you cannot.",
			in.ChunkCount, in.ChunkIndex+1,
		))
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(in PromptInput) string {
	var b strings.Builder
	if in.Header != "" {
		b.WriteString("Document header:\n")
		b.WriteString(in.Header)
		b.WriteString("\n\n")
	}
	if in.Totals != "" {
		b.WriteString("Document totals:\n")
		b.WriteString(in.Totals)
		b.WriteString("\n\n")
	}
	for i, block := range in.LineItemBlocks {
		fmt.Fprintf(&b, "Line-item table %d:\n%s\n\n", i+1, block)
	}
	fmt.Fprintf(&b, "Purchase-order text (part %d of %d):\n", in.ChunkIndex+1, max(in.ChunkCount, 1))
	b.WriteString(in.ChunkText)
	return b.String()
}

const fewShotUser = `Purchase-order text (part 1 of 1):
PO# 1001
Supplier: Acme Corp
Date: 2024-03-05
Qty  Description      Unit Price  Total
2    Widget A         10.00       20.00
Total: $20.00`

const fewShotAssistant = `{"po_number":"1001","supplier":"Acme Corp","order_date":"2024-03-05","currency_code":"USD","total":"20.00","line_items":[{"description":"Widget A","quantity":"2","unit_price":"10.00","total":"20.00"}],"issues":[],"confidence":0.95}`
