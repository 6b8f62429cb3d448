// Package fields extracts structured invoice data from normalized page
// rasters. The pipeline core treats it as an external collaborator: the
// Extractor capability takes one raster and returns structured fields or
// fails, so the backing service can be swapped or mocked without touching
// pipeline logic.
package fields

import (
	"context"
	"image"
	"strings"
)

// LineItem is one billed row of an invoice.
type LineItem struct {
	Description string
	Quantity    string
	Rate        string
}

// Invoice holds the fields extracted from one page. Absent fields carry
// "N/A" per the response contract.
type Invoice struct {
	Date   string
	GST    string
	BillNo string
	Items  []LineItem
	Total  string
}

// Extractor is the field-extraction capability: one raster in, structured
// fields out.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, img image.Image) (Invoice, error)
}

// Prompt is the fixed extraction instruction sent alongside the page image.
const Prompt = `Extract the following information from this bill image in a structured format:
- Date of invoice
- GST number
- Bill number
- Items: list each with Description, QTY, Rate per item
- Total amount

If a field is not present, use N/A.

Output exactly in the following format without additional text:
Date: [date]
GST: [gst]
Bill No: [bill no]
Items:
- Description: [desc], QTY: [qty], Rate: [rate]
- ...
Total: [total]`

// ParseResponse parses the line-oriented model reply into an Invoice. The
// parser is tolerant: unknown lines are ignored and missing sections leave
// zero values, so a sloppy model reply degrades instead of failing.
func ParseResponse(text string) Invoice {
	var inv Invoice
	inItems := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Date:"):
			inv.Date = strings.TrimSpace(strings.TrimPrefix(line, "Date:"))
			inItems = false
		case strings.HasPrefix(line, "GST:"):
			inv.GST = strings.TrimSpace(strings.TrimPrefix(line, "GST:"))
			inItems = false
		case strings.HasPrefix(line, "Bill No:"):
			inv.BillNo = strings.TrimSpace(strings.TrimPrefix(line, "Bill No:"))
			inItems = false
		case strings.HasPrefix(line, "Total:"):
			inv.Total = strings.TrimSpace(strings.TrimPrefix(line, "Total:"))
			inItems = false
		case strings.HasPrefix(line, "Items:"):
			inItems = true
		case inItems && strings.HasPrefix(line, "-"):
			if item, ok := parseItem(strings.TrimSpace(strings.TrimPrefix(line, "-"))); ok {
				inv.Items = append(inv.Items, item)
			}
		}
	}
	return inv
}

// parseItem parses "Description: [desc], QTY: [qty], Rate: [rate]".
func parseItem(line string) (LineItem, bool) {
	if !strings.HasPrefix(line, "Description:") {
		return LineItem{}, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "Description:"))

	item := LineItem{Description: rest}
	if i := strings.Index(rest, ", QTY:"); i >= 0 {
		item.Description = strings.TrimSpace(rest[:i])
		rest = strings.TrimSpace(rest[i+len(", QTY:"):])
		item.Quantity = rest
		if j := strings.Index(rest, ", Rate:"); j >= 0 {
			item.Quantity = strings.TrimSpace(rest[:j])
			item.Rate = strings.TrimSpace(rest[j+len(", Rate:"):])
		}
	}
	return item, true
}
