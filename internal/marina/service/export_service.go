package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/repository"
)

var poExportHeaders = []string{
	"PO Number", "Store", "Status", "Article", "Requested Qty",
	"Locked Rate", "Approved Bid Rate", "Allocated Qty", "Driver", "Created",
}

// ExportService renders purchase orders to xlsx for the admin dashboard.
type ExportService struct {
	repos *repository.Repositories
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

// ExportPOs writes one row per line item, grouped under its order.
func (s *ExportService) ExportPOs(ctx context.Context, status string) (*excelize.File, string, error) {
	listed, _, err := s.repos.PO.FindAll(ctx, 1, 10000, map[string]string{"status": status})
	if err != nil {
		return nil, "", fmt.Errorf("load orders: %w", err)
	}
	orders, err := s.loadWithBids(ctx, listed)
	if err != nil {
		return nil, "", fmt.Errorf("load order bids: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Purchase Orders"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range poExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	colWidths := []float64{14, 12, 14, 24, 12, 12, 16, 12, 14, 18}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	row := 2
	for i := range orders {
		po := &orders[i]
		for j := range po.LineItems {
			item := &po.LineItems[j]

			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), po.PONumber)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), po.StoreID)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(po.Status))
			if item.Article != nil {
				f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.Article.Name)
			} else {
				f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.ArticleID)
			}
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.RequestedQuantity)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), item.LockedRate)
			if approved := item.ApprovedBid(); approved != nil {
				f.SetCellValue(sheet, fmt.Sprintf("G%d", row), approved.BidRate)
			}
			if item.AllocatedQuantity != nil {
				f.SetCellValue(sheet, fmt.Sprintf("H%d", row), *item.AllocatedQuantity)
			}
			f.SetCellValue(sheet, fmt.Sprintf("I%d", row), po.AssignedDriver)
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), po.CreatedAt.Format("2006-01-02 15:04"))
			row++
		}
	}

	summaryRow := row
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("%d orders", len(orders)))
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("J%d", summaryRow), summaryStyle)

	filename := fmt.Sprintf("purchase_orders_%s.xlsx", time.Now().Format("20060102_150405"))
	return f, filename, nil
}

// FindAll does not preload bids, so exported orders are reloaded one by
// one. The list query stays light for the dashboard; export is rare.
func (s *ExportService) loadWithBids(ctx context.Context, orders []entity.PurchaseOrder) ([]entity.PurchaseOrder, error) {
	full := make([]entity.PurchaseOrder, 0, len(orders))
	for i := range orders {
		po, err := s.repos.PO.FindByID(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		full = append(full, *po)
	}
	return full, nil
}
