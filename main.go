package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/config"
	"github.com/178inaba/duty-scheduler/handler"
	"github.com/178inaba/duty-scheduler/interval"
	"github.com/178inaba/duty-scheduler/lock"
	"github.com/178inaba/duty-scheduler/memstore"
	"github.com/178inaba/duty-scheduler/notify"
	"github.com/178inaba/duty-scheduler/service"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/slack-go/slack"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v.", err)
	}

	var store service.Store
	if cfg.HasMySQL() {
		db, err := openSqlxDB(cfg.MySQL)
		if err != nil {
			log.Fatalf("Open database: %v.", err)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("Ping database: %v.", err)
		}
		store = service.NewSQLStore(db)
	} else {
		log.Printf("MYSQL_ADDRESS is not set, using an in-memory store.")
		store = memstore.New()
	}

	templates := notify.DefaultTemplates
	if cfg.TemplatesPath != "" {
		if templates, err = notify.LoadTemplates(cfg.TemplatesPath); err != nil {
			log.Fatalf("Load message templates: %v.", err)
		}
	}

	slackClient := slack.New(cfg.SlackToken)
	var sender notify.Sender = notify.LogSender{}
	if cfg.SlackToken != "" {
		sender = notify.NewSlackSender(slackClient)
	}
	dispatcher := notify.NewDispatcher(templates, sender, cfg.Location)

	c := clock.System{Location: cfg.Location}
	locks := &lock.KeyedMutex{}
	scheduler := interval.NewScheduler(cfg.Location, cfg.SchedulerOptions()...)

	h := handler.NewHandler(
		service.NewDutyService(store, c, dispatcher, locks),
		service.NewAppointmentService(store, scheduler, c, dispatcher, locks),
		service.NewMemberService(store),
		slackClient,
		cfg.SlackSigningSecret,
		cfg.Location,
		cfg.CandidateCount,
	)

	log.Printf("Listening on port %s.", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, h.Routes()); err != nil {
		log.Fatalf("End listen and serve: %v.", err)
	}
}

func openSqlxDB(c config.MySQL) (*sqlx.DB, error) {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = c.Protocol
	mc.Addr = c.Address
	mc.DBName = c.DBName
	mc.Collation = "utf8mb4_bin"
	mc.ParseTime = true

	db, err := sqlx.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlx: %w", err)
	}

	return db, nil
}
