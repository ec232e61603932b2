package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/convkit/abtest/internal/feed"
	"github.com/convkit/abtest/pkg/api"
	"github.com/convkit/abtest/pkg/cli"
	"github.com/convkit/abtest/pkg/config"
	"github.com/convkit/abtest/pkg/decision"
	"github.com/convkit/abtest/pkg/logger"
	"github.com/convkit/abtest/pkg/metrics"
	"github.com/convkit/abtest/pkg/report"
	"github.com/convkit/abtest/pkg/schedule"
	"github.com/convkit/abtest/pkg/stats"
	"github.com/convkit/abtest/pkg/storage"
)

type Manager struct {
	cfg *config.Config
	log *logger.Logger
	db  *storage.DB

	mu       sync.Mutex
	rechecks map[string]schedule.Recheck
}

func NewManager(cfg *config.Config, log *logger.Logger, db *storage.DB) *Manager {
	return &Manager{cfg: cfg, log: log, db: db, rechecks: map[string]schedule.Recheck{}}
}

func (m *Manager) ListExperiments() any {
	es, _ := m.db.ListExperiments()
	out := []map[string]any{}
	for _, e := range es {
		row := map[string]any{"experiment": e}
		if c, err := m.db.GetCounts(e.ID); err == nil {
			row["counts"] = c
		}
		if o, err := m.db.GetOutcome(e.ID); err == nil {
			row["outcome"] = o
		}
		out = append(out, row)
	}
	return out
}

func (m *Manager) Record(id, variant string, converted bool) error {
	e, err := m.ensureExperiment(id)
	if err != nil {
		return err
	}
	if e.Concluded {
		return fmt.Errorf("experiment_concluded")
	}
	if _, err := m.db.RecordEvent(id, variant, converted); err != nil {
		return err
	}
	metrics.EventsIngested.WithLabelValues("exposure").Inc()
	if converted {
		metrics.EventsIngested.WithLabelValues("conversion").Inc()
	}
	return nil
}

func (m *Manager) Evaluate(id string) error {
	e, err := m.db.GetExperiment(id)
	if err != nil {
		return err
	}
	return m.evaluateAndDecide(*e)
}

func (m *Manager) Conclude(id string) error {
	e, err := m.db.GetExperiment(id)
	if err != nil {
		return err
	}
	return m.conclude(*e, "")
}

func (m *Manager) Reopen(id string) error {
	e, err := m.db.GetExperiment(id)
	if err != nil {
		return err
	}
	e.Concluded = false
	e.Winner = ""
	m.dropRecheck(id)
	return m.db.PutExperiment(*e)
}

// ensureExperiment registers experiments on first sight so feed events do not
// need a separate creation step.
func (m *Manager) ensureExperiment(id string) (*storage.ExperimentRecord, error) {
	e, err := m.db.GetExperiment(id)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	ne := storage.ExperimentRecord{
		ID: id, Name: id, VariantA: "A", VariantB: "B", CreatedUnix: time.Now().Unix(),
	}
	if err := m.db.PutExperiment(ne); err != nil {
		return nil, err
	}
	m.log.Info("experiment_registered", "id", id)
	return &ne, nil
}

func (m *Manager) conclude(e storage.ExperimentRecord, winner string) error {
	e.Concluded = true
	e.Winner = winner
	if err := m.db.PutExperiment(e); err != nil {
		return err
	}
	if m.cfg.Service.ArchiveDir != "" {
		if _, err := m.db.ArchiveExperiment(e, m.cfg.Service.ArchiveDir); err != nil {
			m.log.Error("archive_failed", "id", e.ID, "err", err.Error())
		}
	}
	m.dropRecheck(e.ID)
	metrics.Conclusions.Inc()
	return nil
}

func (m *Manager) evaluateAndDecide(e storage.ExperimentRecord) error {
	start := time.Now()
	counts := decision.ExperimentCounts{ID: e.ID}
	if c, err := m.db.GetCounts(e.ID); err == nil {
		counts = decision.ExperimentCounts{
			ID: c.ID, ExposuresA: c.ExposuresA, ConversionsA: c.ConversionsA,
			ExposuresB: c.ExposuresB, ConversionsB: c.ConversionsB,
		}
	}
	prm := m.cfg.Params()
	dec := decision.Evaluate(decision.DecisionInput{
		Counts:       counts,
		Params:       prm,
		MaxExposures: m.cfg.Test.MaxExposures,
		Now:          time.Now(),
	})
	metrics.Evaluations.WithLabelValues(string(dec.Result.Kind)).Inc()
	metrics.EvalLatency.Observe(time.Since(start).Seconds())

	wloA, whiA := stats.WilsonInterval(counts.ConversionsA, counts.ExposuresA, prm.ZCritical)
	wloB, whiB := stats.WilsonInterval(counts.ConversionsB, counts.ExposuresB, prm.ZCritical)
	out := storage.OutcomeRecord{
		ID:     e.ID,
		Kind:   string(dec.Result.Kind),
		Winner: string(dec.Winner),
		Z:      dec.Result.Z, PValue: dec.Result.PValue, Diff: dec.Result.Diff,
		IntervalLow: dec.Result.IntervalLow, IntervalHigh: dec.Result.IntervalHigh,
		WilsonLowA: wloA, WilsonHighA: whiA, WilsonLowB: wloB, WilsonHighB: whiB,
		Reason:        dec.Reason,
		EvaluatedUnix: time.Now().Unix(),
	}
	if err := m.db.PutOutcome(out); err != nil {
		return err
	}

	switch dec.Action {
	case decision.ActionConclude:
		if m.cfg.Service.DryRun {
			m.log.Warn("would_conclude_dryrun", "id", e.ID, "winner", string(dec.Winner), "reason", dec.Reason)
			return nil
		}
		if err := m.conclude(e, string(dec.Winner)); err != nil {
			return err
		}
		m.log.Info("experiment_concluded", "id", e.ID, "winner", string(dec.Winner),
			"reason", dec.Reason, "z", fmt.Sprintf("%.4f", dec.Result.Z))
	case decision.ActionContinue:
		m.scheduleRecheck(e.ID)
		m.log.Debug("experiment_inconclusive", "id", e.ID, "z", fmt.Sprintf("%.4f", dec.Result.Z))
	default:
		m.log.Debug("experiment_waiting", "id", e.ID, "reason", dec.Reason)
	}
	return nil
}

func (m *Manager) scheduleRecheck(id string) {
	offsets := m.cfg.RecheckDurations()
	if len(offsets) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rechecks[id]; ok {
		return
	}
	now := time.Now()
	m.rechecks[id] = schedule.Recheck{
		ExperimentID: id, EnteredAt: now, Next: schedule.Build(now, offsets),
	}
}

func (m *Manager) dropRecheck(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rechecks, id)
}

// shouldEvaluate holds an experiment back until its next recheck time when a
// recheck schedule exists; experiments without one are evaluated every sweep.
// An exhausted schedule is dropped so the experiment rejoins the sweep instead
// of going silent.
func (m *Manager) shouldEvaluate(id string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rechecks[id]
	if !ok {
		return true
	}
	if len(r.Next) == 0 {
		delete(m.rechecks, id)
		return true
	}
	due, next := r.Due(now)
	if due {
		if len(next.Next) == 0 {
			delete(m.rechecks, id)
		} else {
			m.rechecks[id] = next
		}
	}
	return due
}

func (m *Manager) ingestFeeds(ctx context.Context) {
	f := feed.HTTPFetcher{}
	for _, u := range m.cfg.Feeds.Sources {
		txt, err := f.Fetch(ctx, u)
		if err != nil {
			metrics.FeedFetches.WithLabelValues("failure").Inc()
			m.log.Warn("feed_fetch_failed", "url", u, "err", err.Error())
			continue
		}
		metrics.FeedFetches.WithLabelValues("success").Inc()
		events := feed.ParseEvents(txt)
		if m.cfg.Feeds.PerSourceLimit > 0 && len(events) > m.cfg.Feeds.PerSourceLimit {
			events = events[:m.cfg.Feeds.PerSourceLimit]
		}
		applied := 0
		for _, ev := range events {
			if err := m.Record(ev.Experiment, ev.Variant, ev.Converted); err != nil {
				m.log.Debug("event_skipped", "experiment", ev.Experiment, "err", err.Error())
				continue
			}
			applied++
		}
		m.log.Info("feed_applied", "url", u, "events", applied)
	}
}

func (m *Manager) backgroundLoop(ctx context.Context) {
	fetchEvery := time.Duration(m.cfg.Feeds.FetchIntervalSeconds) * time.Second
	if fetchEvery <= 0 {
		fetchEvery = 5 * time.Minute
	}
	tickerFetch := time.NewTicker(fetchEvery)
	tickerEval := time.NewTicker(time.Duration(m.cfg.Service.EvaluateScheduleSeconds) * time.Second)
	defer tickerFetch.Stop()
	defer tickerEval.Stop()

	if len(m.cfg.Feeds.Sources) > 0 {
		m.ingestFeeds(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tickerFetch.C:
			if len(m.cfg.Feeds.Sources) > 0 {
				m.ingestFeeds(ctx)
			}
		case <-tickerEval.C:
			es, _ := m.db.ListExperiments()
			now := time.Now()
			sem := make(chan struct{}, m.cfg.Service.Concurrency)
			for _, e := range es {
				if e.Concluded || !m.shouldEvaluate(e.ID, now) {
					continue
				}
				sem <- struct{}{}
				go func(ee storage.ExperimentRecord) {
					defer func() { <-sem }()
					_ = m.evaluateAndDecide(ee)
				}(e)
			}
			for i := 0; i < cap(sem); i++ {
				sem <- struct{}{}
			}
		}
	}
}

func openDB(cfg *config.Config, log *logger.Logger) *storage.DB {
	db, err := storage.Open(filepath.Join(cfg.Service.DataDir, "db.bolt"))
	if err != nil {
		log.Error("db_open", "err", err.Error())
		os.Exit(2)
	}
	return db
}

func main() {
	args := cli.Parse()
	cfg, err := config.Load(args.Config)
	if err != nil {
		fmt.Println("config_load_error:", err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("config_invalid:", err.Error())
		os.Exit(2)
	}
	log := logger.New(cfg.Service.LogLevel)

	switch args.Cmd {
	case cli.CmdConfigTest:
		fmt.Println("config ok")

	case cli.CmdStatus:
		db := openDB(cfg, log)
		defer db.Close()
		es, _ := db.ListExperiments()
		for _, e := range es {
			line := fmt.Sprintf("%s concluded=%v winner=%q", e.ID, e.Concluded, e.Winner)
			if o, err := db.GetOutcome(e.ID); err == nil {
				line += fmt.Sprintf(" kind=%s z=%.4f", o.Kind, o.Z)
			}
			fmt.Println(line)
		}

	case cli.CmdEvaluate:
		db := openDB(cfg, log)
		defer db.Close()
		mgr := NewManager(cfg, log, db)
		if err := mgr.Evaluate(args.ID); err != nil {
			log.Error("evaluate_failed", "id", args.ID, "err", err.Error())
			os.Exit(1)
		}
		e, _ := db.GetExperiment(args.ID)
		o, err := db.GetOutcome(args.ID)
		if err == nil && e != nil {
			res := stats.Result{
				Kind: stats.Kind(o.Kind), Winner: stats.Variant(o.Winner),
				Z: o.Z, PValue: o.PValue, Diff: o.Diff,
				IntervalLow: o.IntervalLow, IntervalHigh: o.IntervalHigh,
			}
			fmt.Println(report.Render(res, e.VariantA, e.VariantB))
		}

	case cli.CmdConclude:
		db := openDB(cfg, log)
		defer db.Close()
		mgr := NewManager(cfg, log, db)
		if err := mgr.Conclude(args.ID); err != nil {
			log.Error("conclude_failed", "id", args.ID, "err", err.Error())
			os.Exit(1)
		}
		fmt.Println("concluded", args.ID)

	case cli.CmdRun:
		metrics.MustRegister()
		db := openDB(cfg, log)
		defer db.Close()
		mgr := NewManager(cfg, log, db)

		apiSrv := api.New(mgr, cfg.Service.MetricsPath, cfg.Service.HealthzPath, cfg.API.RateLimitPerMinute)
		go func() {
			if err := apiSrv.Start(cfg.Service.HTTPListen); err != nil {
				log.Error("api_start", "err", err.Error())
			}
		}()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		log.Info("manager_start", "listen", cfg.Service.HTTPListen, "dry_run", cfg.Service.DryRun)
		mgr.backgroundLoop(ctx)
		log.Info("manager_stop")
	}
}
