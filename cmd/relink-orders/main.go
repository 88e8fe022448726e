package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/librastore/librashop-backend/internal/customers"
	"github.com/librastore/librashop-backend/internal/orders"
	"github.com/librastore/librashop-backend/pkg/config"
	"github.com/librastore/librashop-backend/pkg/db"
	"github.com/librastore/librashop-backend/pkg/logger"
)

// relink-orders attaches completed orders that finalized without a customer
// (guest checkouts or metadata mismatches) to the right account.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "relink-orders"})

	_ = godotenv.Load()

	list := flag.Bool("list", false, "list orphan orders and exit")
	limit := flag.Int("limit", 50, "max orphan orders to list")
	customerArg := flag.String("customer", "", "customer id to attach orders to")
	ordersArg := flag.String("orders", "", "comma-separated order ids to relink")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "relink-orders",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	ordersRepo := orders.NewRepository(dbClient.DB())
	customersRepo := customers.NewRepository(dbClient.DB())

	if *list {
		orphans, err := ordersRepo.ListOrphans(ctx, *limit)
		requireResource(ctx, logg, "orphan orders", err)
		if len(orphans) == 0 {
			fmt.Println("no orphan orders")
			return
		}
		for _, order := range orphans {
			txn := ""
			if order.TransactionID != nil {
				txn = *order.TransactionID
			}
			fmt.Printf("%s\t%s\t%s\t%s\n", order.ID, order.CreatedAt.Format("2006-01-02 15:04"), order.Total().StringFixed(2), txn)
		}
		return
	}

	if *customerArg == "" || *ordersArg == "" {
		fmt.Fprintln(os.Stderr, "usage: relink-orders -list | relink-orders -customer <uuid> -orders <uuid>[,<uuid>...]")
		os.Exit(1)
	}

	customerID, err := uuid.Parse(strings.TrimSpace(*customerArg))
	requireResource(ctx, logg, "customer id", err)

	_, err = customersRepo.FindByID(ctx, customerID)
	requireResource(ctx, logg, "customer", err)

	var orderIDs []uuid.UUID
	for _, raw := range strings.Split(*ordersArg, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		requireResource(ctx, logg, "order id", err)
		orderIDs = append(orderIDs, id)
	}
	if len(orderIDs) == 0 {
		fmt.Fprintln(os.Stderr, "no order ids provided")
		os.Exit(1)
	}

	relinked, err := ordersRepo.AssignCustomer(ctx, orderIDs, customerID)
	requireResource(ctx, logg, "relink", err)

	fmt.Printf("relinked %d of %d orders\n", relinked, len(orderIDs))
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
