// Package views renders the console pages. Everything returns a string so
// commands can print it and tests can assert on it.
package views

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Thorwig/sovy-merchant/internal/models"
	"github.com/Thorwig/sovy-merchant/internal/orders"
)

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// Dashboard shows the merchant stats with a small bar chart so the relative
// weight of the metrics is visible at a glance.
func Dashboard(stats models.MerchantStats) string {
	var b strings.Builder
	b.WriteString("Dashboard\n")

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total orders\t%d\t%s\n", stats.TotalOrders, bar(float64(stats.TotalOrders), maxMetric(stats)))
	fmt.Fprintf(w, "Revenue\t%s\t%s\n", money(stats.Revenue), bar(stats.Revenue, maxMetric(stats)))
	fmt.Fprintf(w, "Items saved\t%d\t%s\n", stats.ItemsSaved, bar(float64(stats.ItemsSaved), maxMetric(stats)))
	fmt.Fprintf(w, "Listings\t%d\t%s\n", stats.TotalFoodItems, bar(float64(stats.TotalFoodItems), maxMetric(stats)))
	fmt.Fprintf(w, "Total sales\t%d\t%s\n", stats.TotalSales, bar(float64(stats.TotalSales), maxMetric(stats)))
	w.Flush()
	return b.String()
}

func maxMetric(stats models.MerchantStats) float64 {
	max := float64(stats.TotalOrders)
	for _, v := range []float64{stats.Revenue, float64(stats.ItemsSaved), float64(stats.TotalFoodItems), float64(stats.TotalSales)} {
		if v > max {
			max = v
		}
	}
	return max
}

func bar(v, max float64) string {
	const width = 20
	if max <= 0 || v <= 0 {
		return ""
	}
	n := int(v / max * width)
	if n < 1 {
		n = 1
	}
	return strings.Repeat("#", n)
}

// Orders renders one page of the order list. removing reports whether an
// order is inside its pickup-removal window and may be nil.
func Orders(page *models.OrderPage, pg orders.Pagination, removing func(id string) bool) string {
	var b strings.Builder
	b.WriteString("Orders\n")
	if page == nil || len(page.Orders) == 0 {
		b.WriteString("  no orders\n")
		b.WriteString(PaginationLine(pg) + "\n")
		return b.String()
	}

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPAYMENT\tPICKUP\tITEMS\tTOTAL")
	for _, o := range page.Orders {
		status := string(o.Status)
		if removing != nil && removing(o.ID) {
			status += " (removing)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			o.ID, status, o.PaymentStatus,
			o.PickupTime.Format("Jan 2 15:04"), len(o.Items), money(o.Total))
	}
	w.Flush()
	b.WriteString(PaginationLine(pg) + "\n")
	return b.String()
}

// PaginationLine spells out the controls; disabled ones say so instead of
// disappearing.
func PaginationLine(pg orders.Pagination) string {
	prev := "prev: disabled"
	if pg.HasPrev() {
		prev = "prev: <"
	}
	next := "next: disabled"
	if pg.HasNext() {
		next = "next: >"
	}
	return fmt.Sprintf("page %d of %d | %s | %s", pg.Page, pg.TotalPages(), prev, next)
}

// Items renders the listing grid. now decides which items show as expired.
func Items(items []models.FoodItem, now time.Time) string {
	var b strings.Builder
	b.WriteString("Food items\n")
	if len(items) == 0 {
		b.WriteString("  no listings\n")
		return b.String()
	}

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tWAS\tQTY\tEXPIRES")
	for _, it := range items {
		expires := it.ExpiryDate.Format("2006-01-02")
		if !it.ExpiryDate.After(now) {
			expires += " (expired)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			it.ID, it.Name, money(it.Price), money(it.OriginalPrice), it.Quantity, expires)
	}
	w.Flush()
	return b.String()
}

func Profile(p models.MerchantProfile) string {
	var b strings.Builder
	b.WriteString("Profile\n")
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Business\t%s\n", p.BusinessName)
	if p.Description != "" {
		fmt.Fprintf(w, "About\t%s\n", p.Description)
	}
	fmt.Fprintf(w, "Address\t%s\n", p.Address)
	fmt.Fprintf(w, "Location\t%.5f, %.5f\n", p.Latitude, p.Longitude)
	fmt.Fprintf(w, "Phone\t%s\n", p.Phone)
	fmt.Fprintf(w, "Email\t%s\n", p.Email)
	w.Flush()
	return b.String()
}
