// Command catalogctl drives the catalog against the remote service: the
// admin operations (create/delete products and categories) and an
// interactive browse mode mirroring the storefront's selection behavior.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/selection"
	"storefront/internal/store"

	"go.uber.org/zap"
)

const usage = `usage: catalogctl <command> [args]

commands:
  list                                                show the catalog
  add-product <title> [logo-file]                     create a product
  rm-product <product-id>                             delete a product
  add-category <product-id> <title> <description> <price> <image-file>
                                                      create a category
  rm-category <product-id> <category-id>              delete a category
  browse                                              interactive storefront session
`

type app struct {
	client  *client.Client
	store   *store.Store
	machine *selection.Machine
	logger  *zap.Logger
	stdin   *bufio.Reader
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a := &app{
		logger: log,
		stdin:  bufio.NewReader(os.Stdin),
	}
	a.client = client.New(cfg.Catalog.BaseURL, func() string { return cfg.Auth.BearerToken })
	a.store = store.New(a.client, a.confirm, log)
	a.machine = selection.New(a.store, func() {
		// Viewport reset is the terminal's version of scrolling the
		// content area back to its origin.
		fmt.Println("--------")
	})
	a.store.OnProductCreated(func(id string) {
		if err := a.machine.SelectProduct(id); err != nil {
			log.Debug("Could not activate created product", zap.String("product_id", id), zap.Error(err))
		}
	})

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "catalogctl: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	// Every command works against a freshly loaded catalog; there is no
	// local persistence between invocations.
	if err := a.store.Load(ctx); err != nil {
		return err
	}

	switch command {
	case "list":
		a.printCatalog()
		return nil

	case "add-product":
		if len(args) < 1 {
			return fmt.Errorf("add-product: missing title")
		}
		var logo *domain.Upload
		if len(args) > 1 {
			upload, err := readUpload(args[1])
			if err != nil {
				return err
			}
			logo = &upload
		}
		created, err := a.store.CreateProduct(ctx, args[0], logo)
		if err != nil {
			return err
		}
		fmt.Printf("created product %s (%s)\n", created.Title, created.ID)
		return nil

	case "rm-product":
		if len(args) != 1 {
			return fmt.Errorf("rm-product: expected product id")
		}
		return a.deleteProduct(ctx, args[0])

	case "add-category":
		if len(args) != 5 {
			return fmt.Errorf("add-category: expected product id, title, description, price, image file")
		}
		price, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("add-category: invalid price %q", args[3])
		}
		image, err := readUpload(args[4])
		if err != nil {
			return err
		}
		draft := domain.CategoryDraft{Title: args[1], Description: args[2], Price: price}
		parent, err := a.store.CreateCategory(ctx, args[0], draft, image)
		if err != nil {
			return err
		}
		fmt.Printf("product %s now has %d categories\n", parent.Title, len(parent.Categories))
		return nil

	case "rm-category":
		if len(args) != 2 {
			return fmt.Errorf("rm-category: expected product id and category id")
		}
		return a.store.DeleteCategory(ctx, args[0], args[1])

	case "browse":
		return a.browse(ctx)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// deleteProduct removes a product and clears the selection if it pointed
// at the deleted product. The store does not know about selection state;
// that handoff is this wiring layer's job.
func (a *app) deleteProduct(ctx context.Context, id string) error {
	if err := a.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if _, ok := a.store.Product(id); !ok {
		a.machine.ProductDeleted(id)
	}
	return nil
}

// browse runs an interactive session over the loaded catalog, driving
// the selection state machine the way the storefront view does.
func (a *app) browse(ctx context.Context) error {
	fmt.Println("interactive catalog session; type 'help' for commands")
	for {
		fmt.Printf("[%s] > ", a.prompt())
		line, err := a.stdin.ReadString('\n')
		if err != nil {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			fmt.Println("commands: list, select <product-id>, open <category-id>, close, delete-product <id>, delete-category <product-id> <category-id>, reload, quit")
		case "list":
			a.printCatalog()
		case "select":
			if len(fields) != 2 {
				fmt.Println("select <product-id>")
				continue
			}
			if err := a.machine.SelectProduct(fields[1]); err != nil {
				fmt.Println(err)
				continue
			}
			a.printActive()
		case "open":
			if len(fields) != 2 {
				fmt.Println("open <category-id>")
				continue
			}
			if err := a.machine.OpenCategory(fields[1]); err != nil {
				fmt.Println(err)
				continue
			}
			a.printOverlay()
		case "close":
			a.machine.CloseModal()
		case "delete-product":
			if len(fields) != 2 {
				fmt.Println("delete-product <id>")
				continue
			}
			if err := a.deleteProduct(ctx, fields[1]); err != nil {
				fmt.Println(err)
			}
		case "delete-category":
			if len(fields) != 3 {
				fmt.Println("delete-category <product-id> <category-id>")
				continue
			}
			if err := a.store.DeleteCategory(ctx, fields[1], fields[2]); err != nil {
				fmt.Println(err)
			}
		case "reload":
			if err := a.store.Load(ctx); err != nil {
				fmt.Println(err)
			}
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

// confirm is the synchronous yes/no gate injected into the store's
// delete paths.
func (a *app) confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := a.stdin.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *app) prompt() string {
	switch a.machine.State() {
	case selection.ProductActive:
		id, _ := a.machine.ActiveProduct()
		if p, ok := a.store.Product(id); ok {
			return p.Title
		}
		return id
	case selection.CategoryOverlay:
		id, _ := a.machine.OpenedCategory()
		return "category " + id
	default:
		return "catalog"
	}
}

func (a *app) printCatalog() {
	products := a.store.Products()
	if len(products) == 0 {
		fmt.Println("catalog is empty")
		return
	}
	for _, p := range products {
		fmt.Printf("%s  %s\n", p.ID, p.Title)
		if p.Logo != "" {
			fmt.Printf("    logo: %s\n", a.client.ImageURL(p.Logo))
		}
		for _, c := range p.Categories {
			fmt.Printf("    %s  %s: %s ($%.2f)\n", c.ID, c.Title, c.Description, c.Price)
		}
	}
}

func (a *app) printActive() {
	id, ok := a.machine.ActiveProduct()
	if !ok {
		return
	}
	p, ok := a.store.Product(id)
	if !ok {
		return
	}
	if len(p.Categories) == 0 {
		fmt.Println("no categories available for this product")
		return
	}
	for _, c := range p.Categories {
		fmt.Printf("  %s  %s ($%.2f)\n", c.ID, c.Description, c.Price)
	}
}

func (a *app) printOverlay() {
	productID, _ := a.machine.ActiveProduct()
	categoryID, _ := a.machine.OpenedCategory()
	p, ok := a.store.Product(productID)
	if !ok {
		return
	}
	c, ok := p.Category(categoryID)
	if !ok {
		return
	}
	fmt.Printf("%s\n%s\n$%.2f\n", c.Title, c.Description, c.Price)
	if c.Image != "" {
		fmt.Printf("image: %s\n", a.client.ImageURL(c.Image))
	}
}

func readUpload(path string) (domain.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("read upload file: %w", err)
	}
	return domain.Upload{Filename: filepath.Base(path), Data: data}, nil
}
