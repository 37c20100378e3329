package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/apiclient"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/shopper"
)

func printCart(w io.Writer, lines []activity.CartLine) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tQTY")
	for _, line := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\n", line.ID, line.Title, line.Price, line.Quantity)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Total: $%s (%d items)\n", activity.CartTotal(lines).StringFixed(2), countItems(lines))
}

func countItems(lines []activity.CartLine) int {
	n := 0
	for _, line := range lines {
		n += line.Quantity
	}
	return n
}

func printActivity(w io.Writer, rec activity.Record) {
	printCart(w, rec.Cart)
	if len(rec.ViewedProducts) > 0 {
		fmt.Fprintf(w, "Recently viewed: %s\n", strings.Join(rec.ViewedProducts, ", "))
	}
	if len(rec.SearchHistory) > 0 {
		fmt.Fprintf(w, "Recent searches: %s\n", strings.Join(rec.SearchHistory, ", "))
	}
}

func printProduct(w io.Writer, p *apiclient.Product) {
	fmt.Fprintf(w, "%s  $%.2f\n", p.Title, p.Price)
	if p.Brand != "" {
		fmt.Fprintf(w, "Brand: %s\n", p.Brand)
	}
	fmt.Fprintf(w, "Category: %s\n", p.Category)
	fmt.Fprintf(w, "ID: %s\n", p.ID)
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
}

func printProducts(w io.Writer, page *apiclient.ProductPage) {
	if page == nil || len(page.Products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE")
	for _, p := range page.Products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", p.ID, p.Title, p.Category, p.Price)
	}
	_ = tw.Flush()
	if page.NextCursor != "" {
		fmt.Fprintf(w, "More results: --cursor %s\n", page.NextCursor)
	}
}

func printChat(w io.Writer, res *shopper.ChatResult) {
	if res.Text != "" {
		fmt.Fprintln(w, res.Text)
	}
	for _, card := range res.Products {
		fmt.Fprintf(w, "  * %s  $%.2f", card.Title, card.Price)
		if card.Brand != "" {
			fmt.Fprintf(w, "  (%s)", card.Brand)
		}
		if card.InCatalog {
			fmt.Fprintf(w, "  [cart add %s]", card.ID)
		}
		fmt.Fprintln(w)
	}
}

func printHistory(w io.Writer, turns []assistant.Message) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No conversation yet.")
		return
	}
	for _, turn := range turns {
		who := "you"
		if turn.Role == assistant.RoleAssistant {
			who = "assistant"
		}
		fmt.Fprintf(w, "%s: %s\n", who, turn.Content)
	}
}

func describeError(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return fmt.Sprintf("%s (%s)", typed.Message(), typed.Code())
	}
	return err.Error()
}
