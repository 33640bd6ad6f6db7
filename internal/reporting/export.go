package reporting

import "strconv"

// ExportTable is a report flattened into header and value rows. How callers
// encode it (CSV, XLSX, anything else) is their business.
type ExportTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// SalesExport flattens the bucketed sales series.
func SalesExport(report SalesReport) ExportTable {
	table := ExportTable{Headers: []string{"bucket", "revenue", "orders", "quantity"}}
	for _, b := range report.Series {
		table.Rows = append(table.Rows, []string{
			b.Bucket,
			b.Amount.String(),
			strconv.FormatInt(b.Count, 10),
			strconv.FormatInt(b.Quantity, 10),
		})
	}
	return table
}

// PurchasesExport flattens the bucketed purchase series.
func PurchasesExport(report PurchasesReport) ExportTable {
	table := ExportTable{Headers: []string{"bucket", "spend", "orders", "quantity"}}
	for _, b := range report.Series {
		table.Rows = append(table.Rows, []string{
			b.Bucket,
			b.Amount.String(),
			strconv.FormatInt(b.Count, 10),
			strconv.FormatInt(b.Quantity, 10),
		})
	}
	return table
}

// StockExport flattens the per-product stock view.
func StockExport(report StockReport) ExportTable {
	table := ExportTable{Headers: []string{"sku", "name", "category", "stock", "cost_price", "stock_value", "low_stock"}}
	for _, item := range report.Items {
		table.Rows = append(table.Rows, []string{
			item.SKU,
			item.Name,
			item.Category,
			strconv.FormatInt(item.StockQuantity, 10),
			item.CostPrice.String(),
			item.StockValue.String(),
			strconv.FormatBool(item.IsLowStock),
		})
	}
	return table
}

// ExpensesExport flattens the expense category breakdown.
func ExpensesExport(report ExpensesReport) ExportTable {
	table := ExportTable{Headers: []string{"category", "amount", "count", "percent"}}
	for _, share := range report.Categories {
		table.Rows = append(table.Rows, []string{
			share.Category,
			share.Amount.String(),
			strconv.FormatInt(share.Count, 10),
			strconv.FormatFloat(share.Percent, 'f', 2, 64),
		})
	}
	return table
}
