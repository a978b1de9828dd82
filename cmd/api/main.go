package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lattice.social/internal/authz"
	"lattice.social/internal/directory"
	"lattice.social/internal/friending"
	"lattice.social/internal/httpapi"
	"lattice.social/internal/messaging"
	"lattice.social/internal/nudging"
	"lattice.social/internal/obs"
	"lattice.social/internal/posting"
	"lattice.social/internal/recording"
	"lattice.social/internal/store/pg"
	"lattice.social/internal/stream"
)

var version = "0.3.1"

type services struct {
	ledger   *authz.Ledger
	users    *directory.Service
	posts    *posting.Service
	messages *messaging.Service
	friends  *friending.Service
	records  *recording.Service
	nudges   *nudging.Service
}

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("LATTICE_COMMIT"))

	addr := os.Getenv("LATTICE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var (
		svcs  services
		store *pg.Store
		err   error
	)
	if dsn := os.Getenv("LATTICE_PG_DSN"); dsn != "" {
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		svcs, err = postgresServices(store)
	} else {
		log.Println("LATTICE_PG_DSN not set, using in-memory stores")
		svcs, err = memoryServices()
	}
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}

	activity := stream.New()

	api := httpapi.New(httpapi.Config{
		Ready:    readyProbe(store),
		Version:  version,
		Ledger:   svcs.ledger,
		Users:    svcs.users,
		Posts:    svcs.posts,
		Messages: svcs.messages,
		Friends:  svcs.friends,
		Records:  svcs.records,
		Nudges:   svcs.nudges,
		Activity: activity,
	})

	schedCtx, stopSched := context.WithCancel(context.Background())
	defer stopSched()
	sched := nudging.NewScheduler(svcs.nudges, 30*time.Second, func(ctx context.Context, n nudging.Nudge) {
		sender, _ := svcs.users.Lookup(ctx, n.Sender)
		recipient, _ := svcs.users.Lookup(ctx, n.Recipient)
		activity.Publish(stream.Event{
			Kind:    stream.KindNudgeDelivered,
			Actor:   sender,
			Subject: recipient,
			Detail:  n.Message,
		})
	})
	go sched.Run(schedCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting lattice-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSched()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}

func readyProbe(store *pg.Store) httpapi.ReadyProbe {
	if store == nil {
		return httpapi.ReadyProbe{}
	}
	return httpapi.ReadyProbe{DB: store.DB()}
}

// postgresServices wires every concept over the shared pool. User deletion
// cascades through foreign keys, so no purgers are registered.
func postgresServices(store *pg.Store) (services, error) {
	ledger, err := authz.NewLedger(store)
	if err != nil {
		return services{}, err
	}
	users, err := directory.NewService(store)
	if err != nil {
		return services{}, err
	}
	posts, err := posting.NewService(store.Posts())
	if err != nil {
		return services{}, err
	}
	messages, err := messaging.NewService(store.Messages())
	if err != nil {
		return services{}, err
	}
	friends, err := friending.NewService(store.Friendships())
	if err != nil {
		return services{}, err
	}
	records, err := recording.NewService(store.Records())
	if err != nil {
		return services{}, err
	}
	nudges, err := nudging.NewService(store.Nudges())
	if err != nil {
		return services{}, err
	}
	return services{
		ledger:   ledger,
		users:    users,
		posts:    posts,
		messages: messages,
		friends:  friends,
		records:  records,
		nudges:   nudges,
	}, nil
}

// memoryServices wires the dev-mode stores. In-memory stores have no
// foreign keys, so each registers a purger for user deletion.
func memoryServices() (services, error) {
	authzMem := authz.NewMemory()
	postMem := posting.NewMemory()
	msgMem := messaging.NewMemory()
	friendMem := friending.NewMemory()
	recordMem := recording.NewMemory()
	nudgeMem := nudging.NewMemory()

	ledger, err := authz.NewLedger(authzMem)
	if err != nil {
		return services{}, err
	}
	users, err := directory.NewService(directory.NewMemory(),
		directory.WithPurgers(authzMem, postMem, msgMem, friendMem, recordMem, nudgeMem))
	if err != nil {
		return services{}, err
	}
	posts, err := posting.NewService(postMem)
	if err != nil {
		return services{}, err
	}
	messages, err := messaging.NewService(msgMem)
	if err != nil {
		return services{}, err
	}
	friends, err := friending.NewService(friendMem)
	if err != nil {
		return services{}, err
	}
	records, err := recording.NewService(recordMem)
	if err != nil {
		return services{}, err
	}
	nudges, err := nudging.NewService(nudgeMem)
	if err != nil {
		return services{}, err
	}
	return services{
		ledger:   ledger,
		users:    users,
		posts:    posts,
		messages: messages,
		friends:  friends,
		records:  records,
		nudges:   nudges,
	}, nil
}
