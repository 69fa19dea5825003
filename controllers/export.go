package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"bookstore-backend/models"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout      = "2006-01-02 15:04:05"
)

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetValue(v)
	}
}

// writeWorkbook streams the file as a download. Headers are already sent
// when a write fails, so the error is only logged.
func (h *Handler) writeWorkbook(ctx *gin.Context, file *xlsx.File, filename string) {
	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Header("Content-Type", xlsxContentType)
	ctx.Header("Content-Transfer-Encoding", "binary")
	ctx.Header("Expires", "0")
	ctx.Status(http.StatusOK)
	if err := file.Write(ctx.Writer); err != nil {
		h.Logger.Error("writing workbook failed", "file", filename, "error", err)
	}
}

func orderItemsSummary(items []models.OrderItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s x%d", it.Name, it.Quantity)
	}
	return strings.Join(parts, "; ")
}

func (h *Handler) ExportOrders(ctx *gin.Context) {
	orders, err := h.Store.ListOrders(ctx.Request.Context())
	if err != nil {
		h.fail(ctx, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		h.fail(ctx, err)
		return
	}
	addRow(sheet, "ID", "User", "Status", "Items", "ItemsPrice", "TaxPrice", "ShippingPrice", "TotalPrice",
		"PaymentID", "City", "Country", "PaidAt", "DeliveredAt", "CreatedAt")
	for _, o := range orders {
		delivered := ""
		if o.DeliveredAt != nil {
			delivered = o.DeliveredAt.Format(timeLayout)
		}
		addRow(sheet,
			o.ID.Hex(), o.User.Hex(), string(o.OrderStatus), orderItemsSummary(o.OrderItems),
			o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice,
			o.PaymentInfo.ID, o.ShippingInfo.City, o.ShippingInfo.Country,
			o.PaidAt.Format(timeLayout), delivered, o.CreatedAt.Format(timeLayout),
		)
	}
	h.writeWorkbook(ctx, file, "orders.xlsx")
}

func (h *Handler) ExportProducts(ctx *gin.Context) {
	products, err := h.Store.ListProducts(ctx.Request.Context(), store.ProductFilter{}, 0)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		h.fail(ctx, err)
		return
	}
	addRow(sheet, "ID", "Name", "Category", "Price", "Stock", "Ratings", "NumOfReviews", "Image", "CreatedAt")
	for _, p := range products {
		addRow(sheet,
			p.ID.Hex(), p.Name, p.Category, p.Price, p.Stock, p.Ratings, p.NumOfReviews,
			p.FirstImageURL(), p.CreatedAt.Format(timeLayout),
		)
	}
	h.writeWorkbook(ctx, file, "products.xlsx")
}
