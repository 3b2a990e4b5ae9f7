package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	cartapp "github.com/most4f4/chowhub/internal/cart/app"
	catalogapp "github.com/most4f4/chowhub/internal/catalog/app"
	checkoutapp "github.com/most4f4/chowhub/internal/checkout/app"
	checkoutdomain "github.com/most4f4/chowhub/internal/checkout/domain"
	"github.com/most4f4/chowhub/internal/forms"
	"github.com/most4f4/chowhub/internal/notify"
	sessionapp "github.com/most4f4/chowhub/internal/session/app"
	sessiondomain "github.com/most4f4/chowhub/internal/session/domain"
	"github.com/most4f4/chowhub/pkg/apiclient"
)

type ui struct {
	client   *apiclient.Client
	sessions *sessionapp.Service
	guard    *sessionapp.Guard
	catalog  *catalogapp.Service
	cart     *cartapp.Service
	checkout *checkoutapp.Service
	taxRates checkoutapp.TaxRateSource
	feed     *notify.Feed
	log      *slog.Logger

	in *bufio.Scanner

	// slug is the restaurant identifier of the "route" the user is on,
	// the terminal stand-in for the dashboard URL.
	slug string

	ordersPlaced int
}

func newUI(
	client *apiclient.Client,
	sessions *sessionapp.Service,
	guard *sessionapp.Guard,
	catalog *catalogapp.Service,
	cart *cartapp.Service,
	checkout *checkoutapp.Service,
	taxRates checkoutapp.TaxRateSource,
	feed *notify.Feed,
	log *slog.Logger,
) *ui {
	return &ui{
		client:   client,
		sessions: sessions,
		guard:    guard,
		catalog:  catalog,
		cart:     cart,
		checkout: checkout,
		taxRates: taxRates,
		feed:     feed,
		log:      log,
		in:       bufio.NewScanner(os.Stdin),
	}
}

func (u *ui) run(ctx context.Context) {
	go u.printNotifications(ctx)

	if sess := u.sessions.Current(); sess.Authenticated() {
		u.slug = sess.User.RestaurantUsername
		fmt.Printf("welcome back, %s (%s)\n", sess.User.FirstName, u.slug)
	} else {
		fmt.Println("not logged in; use `login`")
	}
	fmt.Println("type `help` for commands")

	for {
		fmt.Printf("chowhub:%s> ", u.slug)
		line, ok := u.readLine(ctx)
		if !ok {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "help":
			u.printHelp()
		case "login":
			u.login(ctx)
		case "logout":
			if err := u.sessions.Logout(ctx); err != nil {
				fmt.Println("logout failed:", err)
			}
			u.slug = ""
		case "open":
			if len(args) != 1 {
				fmt.Println("usage: open <restaurant>")
				continue
			}
			u.slug = args[0]
			u.requireView(ctx, false)
		case "menu":
			if u.requireView(ctx, false) {
				u.showMenu(ctx)
			}
		case "refresh":
			if u.requireView(ctx, false) {
				u.refresh(ctx)
			}
		case "add":
			if u.requireView(ctx, false) {
				u.add(args)
			}
		case "remove":
			if u.requireView(ctx, false) {
				u.remove(args)
			}
		case "cart":
			if u.requireView(ctx, false) {
				u.showCart(ctx)
			}
		case "comment":
			if u.requireView(ctx, false) {
				u.setComment(strings.Join(args, " "))
			}
		case "submit":
			if u.requireView(ctx, false) {
				u.submit(ctx)
			}
		case "analytics":
			if u.requireView(ctx, true) {
				fmt.Printf("orders placed this session: %d\n", u.ordersPlaced)
			}
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command; type `help`")
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (u *ui) readLine(ctx context.Context) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	if !u.in.Scan() {
		return "", false
	}
	return u.in.Text(), true
}

func (u *ui) printHelp() {
	fmt.Print(`commands:
  login                     sign in to your restaurant
  logout                    sign out
  open <restaurant>         switch to a restaurant dashboard
  menu                      list menu items by category
  refresh                   reload the catalog
  add <item> <variant> <n>  add n of a variation to the cart
  remove <line>             remove a cart line by number
  cart                      show the cart with totals
  comment <text>            set the order comment
  submit                    place the order
  analytics                 session stats (managers only)
  quit
`)
}

// requireView runs the guard for the current slug, following at most one
// redirect, and reports whether the view may render.
func (u *ui) requireView(ctx context.Context, managerOnly bool) bool {
	for i := 0; i < 2; i++ {
		var d sessionapp.Decision
		if managerOnly {
			d = u.guard.CheckManager(ctx, u.slug)
		} else {
			d = u.guard.Check(ctx, u.slug)
		}

		switch d.Kind {
		case sessionapp.Allow:
			return true
		case sessionapp.RedirectLogin:
			fmt.Println("please log in first")
			return false
		case sessionapp.RedirectUnauthorized:
			fmt.Println("managers only")
			return false
		case sessionapp.RedirectDashboard:
			own := u.sessions.Current().User.RestaurantUsername
			fmt.Printf("that dashboard belongs to someone else; taking you to %s\n", d.Target)
			u.slug = own
		}
	}
	return false
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID                 string `json:"id"`
		FirstName          string `json:"firstName"`
		LastName           string `json:"lastName"`
		Username           string `json:"username"`
		Role               string `json:"role"`
		RestaurantID       string `json:"restaurantId"`
		RestaurantUsername string `json:"restaurantUsername"`
	} `json:"user"`
}

func (u *ui) login(ctx context.Context) {
	form := forms.LoginForm{}
	form.RestaurantUsername = u.prompt(ctx, "restaurant: ")
	form.Username = u.prompt(ctx, "username: ")
	form.Password = u.prompt(ctx, "password: ")
	form.Remember = strings.EqualFold(u.prompt(ctx, "remember me? [y/N]: "), "y")

	if errs := forms.Validate(form); errs != nil {
		for _, e := range errs {
			fmt.Printf("  %s %s\n", e.Field, e.Message)
		}
		return
	}

	var resp loginResponse
	err := u.client.Post(ctx, "/login", map[string]string{
		"restaurantUsername": form.RestaurantUsername,
		"username":           form.Username,
		"password":           form.Password,
	}, &resp)
	if err != nil {
		fmt.Println("login failed:", err)
		return
	}

	user := sessiondomain.User{
		ID:                 resp.User.ID,
		FirstName:          resp.User.FirstName,
		LastName:           resp.User.LastName,
		Username:           resp.User.Username,
		Role:               resp.User.Role,
		RestaurantID:       resp.User.RestaurantID,
		RestaurantUsername: resp.User.RestaurantUsername,
	}
	if err := u.sessions.Login(ctx, resp.Token, user, form.Remember); err != nil {
		fmt.Println("could not store session:", err)
		return
	}

	u.slug = user.RestaurantUsername
	fmt.Printf("logged in as %s @ %s\n", user.Username, u.slug)
	u.refresh(ctx)
}

func (u *ui) prompt(ctx context.Context, label string) string {
	fmt.Print(label)
	line, _ := u.readLine(ctx)
	return strings.TrimSpace(line)
}

func (u *ui) refresh(ctx context.Context) {
	if err := u.catalog.Refresh(ctx); err != nil {
		// Last-good snapshot stays; this is toast-level.
		fmt.Println("catalog refresh failed:", err)
	}
}

func (u *ui) showMenu(ctx context.Context) {
	snap := u.catalog.Snapshot()
	if len(snap.Items) == 0 {
		u.refresh(ctx)
		snap = u.catalog.Snapshot()
	}

	for _, cat := range snap.Categories {
		fmt.Printf("%s\n", cat.Name)
		for _, item := range snap.ByCategory[cat.ID] {
			status := ""
			if item.IsDisabled {
				status = "  [unavailable]"
			}
			fmt.Printf("  %s  %s%s\n", item.ID, item.Name, status)
			for _, v := range item.Variations {
				mark := " "
				if !v.IsAvailable {
					mark = "x"
				}
				fmt.Printf("    [%s] %s  %s  $%s\n", mark, v.ID, v.Name, v.Price.StringFixed(2))
			}
		}
	}
}

func (u *ui) add(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: add <item> <variant> <quantity>")
		return
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Println("quantity must be a number")
		return
	}

	item, err := u.catalog.Item(args[0])
	if err != nil {
		fmt.Println("no such item; try `menu`")
		return
	}
	if err := u.cart.Add(item, args[1], qty); err != nil {
		fmt.Println("cannot add:", err)
		return
	}
	fmt.Printf("added %d x %s\n", qty, item.Name)
}

func (u *ui) remove(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: remove <line>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		fmt.Println("line must be a positive number")
		return
	}
	u.cart.Remove(n - 1)
}

func (u *ui) showCart(ctx context.Context) {
	entries := u.cart.Entries()
	if len(entries) == 0 {
		fmt.Println("cart is empty")
		return
	}

	for i, e := range entries {
		name := "?"
		price := "?"
		if v, ok := e.Item.Variation(e.VariantID); ok {
			name = v.Name
			price = v.Price.StringFixed(2)
		}
		fmt.Printf("  %d. %s (%s)  x%d  @$%s\n", i+1, e.Item.Name, name, e.Quantity, price)
	}

	totals := u.cart.Totals(u.taxRate(ctx))
	if totals.UnpricedLines > 0 {
		fmt.Printf("  ! %d line(s) reference variations that no longer exist\n", totals.UnpricedLines)
	}
	fmt.Printf("  subtotal $%s  tax $%s  total $%s\n",
		totals.Subtotal.StringFixed(2), totals.Tax.StringFixed(2), totals.Total.StringFixed(2))
	if c := u.checkout.Comment(); c != "" {
		fmt.Printf("  comment: %s\n", c)
	}
}

func (u *ui) taxRate(ctx context.Context) decimal.Decimal {
	rate, err := u.taxRates.TaxRate(ctx)
	if err != nil {
		return checkoutdomain.DefaultTaxRate
	}
	return rate
}

func (u *ui) setComment(comment string) {
	if errs := forms.Validate(forms.OrderForm{Comment: comment}); errs != nil {
		for _, e := range errs {
			fmt.Printf("  %s %s\n", e.Field, e.Message)
		}
		return
	}
	u.checkout.SetComment(comment)
}

func (u *ui) submit(ctx context.Context) {
	err := u.checkout.Submit(ctx)
	switch {
	case err == nil:
		u.ordersPlaced++
		fmt.Println("order placed")
	case errors.Is(err, checkoutdomain.ErrSubmitInFlight):
		fmt.Println("an order is already being submitted")
	case errors.Is(err, checkoutdomain.ErrEmptyCart):
		fmt.Println("cart is empty")
	case errors.Is(err, checkoutdomain.ErrStaleVariant):
		fmt.Println("the menu changed while you were ordering; review the cart and try again")
	default:
		// Cart is preserved; the user decides whether to retry.
		fmt.Println("order failed:", err)
	}
}

func (u *ui) printNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-u.feed.Notifications():
			fmt.Printf("\n[%s] %s\n", n.Type, n.Message)
		}
	}
}
