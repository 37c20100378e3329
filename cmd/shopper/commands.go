package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/apiclient"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

func newLoginCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and move the guest session into the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			res, err := a.shopper.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s.\n", res.User.Email)
			printActivity(a.out, res.Activity)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var in apiclient.RegisterInput
	var address, phone string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account and move the guest session into it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, in.Password)
			if err != nil {
				return err
			}
			in.Email = args[0]
			in.Password = pw
			if address != "" {
				in.Address = &address
			}
			if phone != "" {
				in.Phone = &phone
			}
			res, err := a.shopper.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s.\n", res.User.Name)
			printActivity(a.out, res.Activity)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&address, "address", "", "shipping address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and start a fresh guest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.shopper.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account or the guest session id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.shopper.Credentials()
			if err != nil {
				return err
			}
			if creds == nil {
				id, err := a.shopper.SessionID()
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Guest session %s\n", id)
				return nil
			}
			fmt.Fprintf(a.out, "%s <%s>\n", creds.User.Name, creds.User.Email)
			return nil
		},
	}
}

func newActivityCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show cart, recently viewed products and searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.shopper.Activity()
			if refresh {
				rec, err = a.shopper.Refresh(cmd.Context())
			}
			if err != nil {
				return err
			}
			printActivity(a.out, rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload the account activity from the server")
	return cmd
}

func newCartCmd(a *app) *cobra.Command {
	cart := &cobra.Command{
		Use:   "cart",
		Short: "Manage the cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.shopper.Activity()
			if err != nil {
				return err
			}
			printCart(a.out, rec.Cart)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.shopper.AddProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCart(a.out, rec.Cart)
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set the quantity of a cart line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a non-negative integer")
			}
			rec, err := a.shopper.UpdateQuantity(cmd.Context(), args[0], qty)
			if err != nil {
				return err
			}
			printCart(a.out, rec.Cart)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.shopper.RemoveFromCart(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCart(a.out, rec.Cart)
			return nil
		},
	}

	empty := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.shopper.ClearCart(cmd.Context())
			if err != nil {
				return err
			}
			printCart(a.out, rec.Cart)
			return nil
		},
	}

	cart.AddCommand(show, add, update, remove, empty)
	return cart
}

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view <product-id>",
		Short: "Show a product and record it as viewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.api.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := a.shopper.TrackView(cmd.Context(), p.ID); err != nil {
				return err
			}
			printProduct(a.out, p)
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var category string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog and record the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if _, err := a.shopper.TrackSearch(cmd.Context(), query); err != nil {
				return err
			}
			page, err := a.api.Products(cmd.Context(), apiclient.ProductQuery{Query: query, Category: category, Limit: limit})
			if err != nil {
				return err
			}
			printProducts(a.out, page)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "restrict to a category")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	products := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}

	var q apiclient.ProductQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.api.Products(cmd.Context(), q)
			if err != nil {
				return err
			}
			printProducts(a.out, page)
			return nil
		},
	}
	list.Flags().StringVar(&q.Category, "category", "", "restrict to a category")
	list.Flags().IntVar(&q.Limit, "limit", 20, "page size")
	list.Flags().StringVar(&q.Cursor, "cursor", "", "cursor from a previous page")

	show := &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show a product without recording a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.api.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProduct(a.out, p)
			return nil
		},
	}

	products.AddCommand(list, show)
	return products
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the shopping assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.shopper.Chat(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printChat(a.out, res)
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var wipe bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the cached conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wipe {
				if err := a.shopper.ClearChat(); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Conversation cleared.")
				return nil
			}
			turns, err := a.shopper.ChatHistory()
			if err != nil {
				return err
			}
			printHistory(a.out, turns)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wipe, "clear", false, "delete the cached conversation")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(cmd *cobra.Command, given string) (string, error) {
	if given != "" {
		return given, nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	return line, nil
}
