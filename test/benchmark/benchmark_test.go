package benchmark

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/schema"
	"github.com/workbook-validation-api/internal/validation"
	"github.com/workbook-validation-api/internal/workbook"
)

const rowCount = 10000

const benchSchema = `{
  "sheets": [
    {
      "tabname": "Customers",
      "columns": [
        {"name": "Customer ID", "key": "id", "type": "string", "required": true},
        {"name": "Email", "type": "email", "required": true},
        {"name": "Tier", "type": "enum", "allowedValues": ["gold", "silver", "bronze"]}
      ],
      "rules": {"unique": ["id", "Email"]}
    },
    {
      "tabname": "Orders",
      "columns": [
        {"name": "Order ID", "key": "orderId", "type": "number", "required": true},
        {"name": "Customer", "type": "string", "required": true},
        {"name": "Amount", "type": "number"},
        {"name": "Paid", "type": "boolean"},
        {"name": "Ordered", "type": "date"},
        {"name": "Shipped", "type": "date"}
      ],
      "rules": {
        "unique": ["orderId"],
        "dateOrder": [{"start": "Ordered", "end": "Shipped"}],
        "references": [{"column": "Customer", "targetSheet": "Customers", "targetColumn": "id"}]
      }
    }
  ]
}`

var tiers = []string{"gold", "silver", "bronze"}

func buildWorkbook(n int) *workbook.Workbook {
	customers := make([]models.Row, n)
	orders := make([]models.Row, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("C%06d", i)
		customers[i] = models.Row{
			"Customer ID": models.Text(id),
			"Email":       models.Text(fmt.Sprintf("user%06d@example.com", i)),
			"Tier":        models.Text(tiers[i%len(tiers)]),
		}
		orders[i] = models.Row{
			"Order ID": models.Number(float64(i)),
			"Customer": models.Text(id),
			"Amount":   models.Text(fmt.Sprintf("%d,%02d", i, i%100)),
			"Paid":     models.Text("yes"),
			"Ordered":  models.Number(45000 + float64(i%300)),
			"Shipped":  models.Text("2024-12-31"),
		}
	}
	return workbook.New(
		workbook.NewSheet("Customers", []string{"Customer ID", "Email", "Tier"}, customers),
		workbook.NewSheet("Orders", []string{"Order ID", "Customer", "Amount", "Paid", "Ordered", "Shipped"}, orders),
	)
}

// BenchmarkValidate benchmarks a full two-sheet validation
func BenchmarkValidate(b *testing.B) {
	sch, err := schema.Parse([]byte(benchSchema))
	if err != nil {
		b.Fatal(err)
	}
	wb := buildWorkbook(rowCount)
	engine := validation.NewEngine(validation.DefaultRegistry(), zerolog.Nop())

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		result := engine.Validate(wb, sch, validation.Options{ReturnData: true})
		if !result.Success {
			b.Fatalf("unexpected errors: %v", result.Errors[0])
		}
	}

	b.ReportMetric(float64(2*rowCount*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkValidateCell benchmarks the per-cell checks
func BenchmarkValidateCell(b *testing.B) {
	col := &schema.Column{Name: "Email", Key: "Email", Type: schema.TypeEmail, Required: true}
	row := models.Row{"Email": models.Text("someone@example.com")}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		validation.ValidateCell("Customers", i, row, col, "Email")
	}

	b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "cells/sec")
}
