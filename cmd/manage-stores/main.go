// Store registry maintenance: add, list, pause, resume and remove store
// connections in the sync database.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"compareat-sync/internal/config"
	"compareat-sync/internal/db"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		os.Exit(1)
	}
	handle, err := db.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Printf("database error: %v\n", err)
		os.Exit(1)
	}
	if err := handle.Migrate(); err != nil {
		fmt.Printf("migrate error: %v\n", err)
		os.Exit(1)
	}
	stores := db.NewStoreRepo(handle)

	switch os.Args[1] {
	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		domain := fs.String("domain", "", "shop domain, e.g. mystore.myshopify.com")
		token := fs.String("token", "", "admin API access token")
		_ = fs.Parse(os.Args[2:])
		store, err := stores.Create(*name, *domain, *token)
		exitOn(err)
		fmt.Printf("added store %s (%s)\n", store.Name, store.ID)

	case "list":
		list, err := stores.List()
		exitOn(err)
		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tNAME\tDOMAIN\tPAUSED\tLAST SYNC\tSTATUS")
		for _, store := range list {
			lastSync := "-"
			if store.LastSyncAt != nil {
				lastSync = store.LastSyncAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%v\t%s\t%s\n",
				store.ID, store.Name, store.ShopDomain, store.IsPaused, lastSync, store.LastSyncStatus)
		}
		_ = writer.Flush()

	case "pause":
		exitOn(requireID(stores.SetPaused, true))
		fmt.Println("store paused")

	case "resume":
		exitOn(requireID(stores.SetPaused, false))
		fmt.Println("store resumed")

	case "remove":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		exitOn(stores.Delete(os.Args[2]))
		fmt.Println("store removed with its logs and sales history")

	default:
		usage()
		os.Exit(2)
	}
}

func requireID(set func(string, bool) error, paused bool) error {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}
	return set(os.Args[2], paused)
}

func exitOn(err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`usage:
  manage-stores add -name NAME -domain DOMAIN -token TOKEN
  manage-stores list
  manage-stores pause STORE_ID
  manage-stores resume STORE_ID
  manage-stores remove STORE_ID`)
}
