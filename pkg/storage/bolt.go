package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketExperiments = []byte("experiments")
	bucketCounts      = []byte("counts")
	bucketOutcomes    = []byte("outcomes")
)

var ErrNotFound = errors.New("not_found")

type DB struct {
	db *bolt.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketExperiments); e != nil {
			return e
		}
		if _, e := tx.CreateBucketIfNotExists(bucketCounts); e != nil {
			return e
		}
		if _, e := tx.CreateBucketIfNotExists(bucketOutcomes); e != nil {
			return e
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

type ExperimentRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	VariantA    string `json:"variant_a"`
	VariantB    string `json:"variant_b"`
	CreatedUnix int64  `json:"created_unix"`
	Concluded   bool   `json:"concluded"`
	Winner      string `json:"winner"`
}

type CountsRecord struct {
	ID            string `json:"id"`
	ExposuresA    int    `json:"exposures_a"`
	ConversionsA  int    `json:"conversions_a"`
	ExposuresB    int    `json:"exposures_b"`
	ConversionsB  int    `json:"conversions_b"`
	LastEventUnix int64  `json:"last_event_unix"`
}

type OutcomeRecord struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Winner        string  `json:"winner"`
	Z             float64 `json:"z"`
	PValue        float64 `json:"p_value"`
	Diff          float64 `json:"diff"`
	IntervalLow   float64 `json:"interval_low"`
	IntervalHigh  float64 `json:"interval_high"`
	WilsonLowA    float64 `json:"wilson_low_a"`
	WilsonHighA   float64 `json:"wilson_high_a"`
	WilsonLowB    float64 `json:"wilson_low_b"`
	WilsonHighB   float64 `json:"wilson_high_b"`
	Reason        string  `json:"reason"`
	EvaluatedUnix int64   `json:"evaluated_unix"`
}

func (d *DB) PutExperiment(e ExperimentRecord) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExperiments)
		j, _ := json.Marshal(e)
		return b.Put([]byte(e.ID), j)
	})
}

func (d *DB) GetExperiment(id string) (*ExperimentRecord, error) {
	var e ExperimentRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketExperiments).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (d *DB) ListExperiments() ([]ExperimentRecord, error) {
	out := []ExperimentRecord{}
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketExperiments).ForEach(func(k, v []byte) error {
			var e ExperimentRecord
			if err := json.Unmarshal(v, &e); err == nil {
				out = append(out, e)
			}
			return nil
		})
	})
	return out, err
}

// RecordEvent applies one exposure to the named variant ("A" or "B"),
// counting a conversion too when converted is set.
func (d *DB) RecordEvent(id, variant string, converted bool) (*CountsRecord, error) {
	if variant != "A" && variant != "B" {
		return nil, fmt.Errorf("unknown_variant_%s", variant)
	}
	var c CountsRecord
	err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCounts)
		v := b.Get([]byte(id))
		if v != nil {
			_ = json.Unmarshal(v, &c)
		} else {
			c = CountsRecord{ID: id}
		}
		if variant == "A" {
			c.ExposuresA++
			if converted {
				c.ConversionsA++
			}
		} else {
			c.ExposuresB++
			if converted {
				c.ConversionsB++
			}
		}
		c.LastEventUnix = time.Now().Unix()
		j, _ := json.Marshal(c)
		return b.Put([]byte(id), j)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) GetCounts(id string) (*CountsRecord, error) {
	var c CountsRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCounts).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) PutOutcome(o OutcomeRecord) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketOutcomes)
		j, _ := json.Marshal(o)
		return b.Put([]byte(o.ID), j)
	})
}

func (d *DB) GetOutcome(id string) (*OutcomeRecord, error) {
	var o OutcomeRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketOutcomes).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ArchiveExperiment writes a JSON snapshot of a concluded experiment, its
// counts and its last outcome to dir and returns the file path.
func (d *DB) ArchiveExperiment(e ExperimentRecord, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	snap := map[string]any{"experiment": e}
	if c, err := d.GetCounts(e.ID); err == nil {
		snap["counts"] = c
	}
	if o, err := d.GetOutcome(e.ID); err == nil {
		snap["outcome"] = o
	}
	name := fmt.Sprintf("%s_%d.json", e.ID, time.Now().Unix())
	path := filepath.Join(dir, name)
	b, _ := json.MarshalIndent(snap, "", "  ")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
