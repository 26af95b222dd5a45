package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/menuboard/api/internal/enum"
	"github.com/menuboard/api/internal/logger"
	"github.com/menuboard/api/internal/terminal"
	"github.com/menuboard/api/internal/ws"
	"golang.org/x/sync/errgroup"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	tableColor    = color.New(color.FgWhite, color.Bold)
	pendingColor  = color.New(color.FgYellow)
	preparedColor = color.New(color.FgGreen)
	servedColor   = color.New(color.Faint)
	readyColor    = color.New(color.FgBlack, color.BgGreen)
)

func main() {
	apiURL := flag.String("api", envOr("BOARD_API", "http://localhost:8081"), "API base URL")
	tenant := flag.String("tenant", os.Getenv("BOARD_TENANT"), "Tenant ID")
	secret := flag.String("secret", os.Getenv("BOARD_SECRET"), "Terminal secret")
	name := flag.String("terminal", envOr("BOARD_TERMINAL", "board-1"), "Terminal name")
	station := flag.String("station", envOr("BOARD_STATION", "Mutfak"), "Station to display")
	flag.Parse()

	log := logger.New(envOr("LOG_LEVEL", "warn"), "text")

	tenantID, err := uuid.Parse(*tenant)
	if err != nil {
		log.Fatal("a valid -tenant is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := terminal.Login(ctx, *apiURL, tenantID, *secret, *name, enum.RoleStation, *station)
	if err != nil {
		log.WithError(err).Fatal("login failed")
	}

	client := terminal.NewClient(*apiURL, creds)
	board := terminal.NewBoard(client, creds.Station, log)

	// lines maps the numbers shown on screen to items, for toggling.
	var (
		mu    sync.Mutex
		lines []itemRef
	)
	board.OnChange(func(orders []terminal.Order) {
		mu.Lock()
		defer mu.Unlock()
		lines = render(os.Stdout, creds.Station, orders, board)
	})

	// Signals are applied one at a time, in arrival order.
	signals := make(chan ws.Signal, 16)
	watcher := terminal.NewWatcher(client.WebSocketURL(), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx, func(sig ws.Signal) {
			select {
			case signals <- sig:
			default:
				// A refresh is already queued; it will pick this change up.
			}
		})
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case sig := <-signals:
				if err := board.HandleSignal(gctx, sig); err != nil {
					log.WithError(err).Warn("refresh failed")
				}
			}
		}
	})

	// Not part of the group: a blocked stdin read must not hold up shutdown.
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
			if err != nil {
				continue
			}
			mu.Lock()
			var ref itemRef
			ok := n >= 1 && n <= len(lines)
			if ok {
				ref = lines[n-1]
			}
			mu.Unlock()
			if !ok {
				continue
			}
			if err := board.ToggleItem(gctx, ref.order, ref.item); err != nil {
				log.WithError(err).Warn("toggle rejected")
			}
		}
	}()

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("board stopped")
	}
}

type itemRef struct {
	order, item uuid.UUID
}

// render redraws the board and returns the items in on-screen order.
func render(w io.Writer, station string, orders []terminal.Order, board *terminal.Board) []itemRef {
	fmt.Fprint(w, "\033[H\033[2J")
	headerColor.Fprintf(w, "== %s == %d open (type a number to toggle)\n\n", station, len(orders))

	var refs []itemRef
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	for _, o := range orders {
		tableColor.Fprintf(w, "%-12s", o.TableLabel)
		fmt.Fprintf(w, " %s", o.CreatedAt.Local().Format("15:04"))
		if board.AllReady(o.ID) {
			fmt.Fprint(w, " ")
			readyColor.Fprint(w, " READY ")
		}
		fmt.Fprintln(w)

		for _, it := range o.Items {
			c := pendingColor
			switch it.Status {
			case "prepared":
				c = preparedColor
			case "served":
				c = servedColor
			}
			mark := ""
			if it.Pending {
				mark = " …"
			}
			refs = append(refs, itemRef{order: o.ID, item: it.ID})
			c.Fprintf(w, "%3d) %2dx %-28s %-9s%s\n", len(refs), it.Quantity, it.Name, it.Status, mark)
		}
		if o.CustomerNote != nil {
			fmt.Fprintf(w, "   note: %s\n", *o.CustomerNote)
		}
		fmt.Fprintln(w)
	}
	return refs
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
